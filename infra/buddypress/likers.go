package buddypress

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coralnet/reefhub/domain"
)

// likeService implements app.LikeService using whichever liker route the
// backend happens to expose.
type likeService struct {
	pipeline *Pipeline
	members  *memberService
}

// NewLikeService creates a LikeService. members hydrates bare id lists.
func NewLikeService(p *Pipeline, members *memberService) *likeService {
	return &likeService{pipeline: p, members: members}
}

// FetchLikers walks the liker candidates, then the parent activity. A
// candidate that answers 2xx with an unknown shape is skipped like a miss.
// The error is non-nil only when every strategy failed outright.
func (s *likeService) FetchLikers(ctx context.Context, activityID int64) ([]domain.Member, error) {
	logger := s.pipeline.logger.With("activity", activityID)
	var lastErr error
	answered := false

	for _, c := range s.pipeline.Candidates(ctx, OpFetchLikers, activityID, "") {
		resp, err := s.pipeline.client.Do(ctx, c.Request)
		if err != nil {
			logger.Debug("liker candidate failed", "candidate", c.Name, "err", err)
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		answered = true
		set, ok := firstShape(resp.Body, likerParsers...)
		if !ok {
			continue
		}
		members, err := s.hydrate(ctx, set)
		if err == nil && len(members) > 0 {
			return members, nil
		}
	}

	resp, err := s.pipeline.client.Get(ctx, activityPath(activityID), url.Values{"display_comments": {"false"}})
	if err != nil {
		if answered {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching likers for %d: %w", activityID, err)
	}
	set, ok := embeddedLikers(resp.Body)
	if !ok {
		if lastErr != nil && !answered {
			logger.Debug("no liker data found", "err", lastErr)
		}
		return nil, nil
	}
	return s.hydrate(ctx, set)
}

// hydrate resolves bare ids into members, keeping id order.
func (s *likeService) hydrate(ctx context.Context, set likerSet) ([]domain.Member, error) {
	if len(set.Members) > 0 || len(set.IDs) == 0 {
		return set.Members, nil
	}
	found, err := s.members.Lookup(ctx, set.IDs)
	out := make([]domain.Member, 0, len(set.IDs))
	for _, id := range uniqueIDs(set.IDs) {
		if m, ok := found[id]; ok {
			out = append(out, m)
		}
	}
	if len(out) == 0 && err != nil {
		return nil, err
	}
	return out, nil
}
