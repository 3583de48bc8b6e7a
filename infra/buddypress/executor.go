package buddypress

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoCandidates is returned when there is nothing to attempt.
var ErrNoCandidates = errors.New("no candidate endpoints")

// Doer performs a single API request.
type Doer interface {
	Do(ctx context.Context, r Request) (Response, error)
}

// Executor attempts candidates in order until one succeeds.
type Executor struct {
	doer   Doer
	logger *slog.Logger
}

// NewExecutor creates an Executor over doer.
func NewExecutor(doer Doer, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{doer: doer, logger: logger}
}

// Execute returns the first 2xx response. Wrong-endpoint failures (400, 401,
// 403, 404, 405) move on to the next candidate; any other failure stops the
// chain and is returned as is. Exhaustion returns the last failure.
func (e *Executor) Execute(ctx context.Context, candidates []Candidate) (Response, Candidate, error) {
	if len(candidates) == 0 {
		return Response{}, Candidate{}, ErrNoCandidates
	}
	var lastErr error
	for _, c := range candidates {
		resp, err := e.doer.Do(ctx, c.Request)
		if err == nil {
			return resp, c, nil
		}
		if !IsWrongEndpoint(err) {
			e.logger.Debug("candidate failed, stopping", "candidate", c.Name, "err", err)
			return Response{}, c, err
		}
		e.logger.Debug("candidate rejected, trying next", "candidate", c.Name, "status", StatusOf(err))
		lastErr = err
	}
	return Response{}, candidates[len(candidates)-1], lastErr
}
