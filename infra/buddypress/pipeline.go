package buddypress

import (
	"context"
	"log/slog"
)

// Pipeline ties route detection, candidate selection and execution together.
type Pipeline struct {
	client   *Client
	prober   *Prober
	selector *Selector
	exec     *Executor
	logger   *slog.Logger
}

// NewPipeline wires a Pipeline over client. The prober is shared by every
// service built on this pipeline, so the route index is read once.
func NewPipeline(client *Client, selector *Selector, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client:   client,
		prober:   NewProber(client, logger),
		selector: selector,
		exec:     NewExecutor(client, logger),
		logger:   logger,
	}
}

// Client returns the underlying HTTP client.
func (p *Pipeline) Client() *Client { return p.client }

// Prober returns the shared capability prober.
func (p *Pipeline) Prober() *Prober { return p.prober }

// Candidates resolves op to concrete requests. A failed probe widens the set
// instead of failing the operation.
func (p *Pipeline) Candidates(ctx context.Context, op Op, activityID int64, content string) []Candidate {
	support, err := p.prober.Detect(ctx)
	if err != nil {
		p.logger.Debug("route support unknown, offering all variants", "op", op, "err", err)
	}
	return p.selector.Candidates(op, activityID, content, support, err)
}

// Run selects candidates for op and executes them in order.
func (p *Pipeline) Run(ctx context.Context, op Op, activityID int64, content string) (Response, Candidate, error) {
	return p.exec.Execute(ctx, p.Candidates(ctx, op, activityID, content))
}
