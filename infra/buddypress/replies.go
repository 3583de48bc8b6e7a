package buddypress

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coralnet/reefhub/domain"
)

// ErrUnrecognizedShape reports a 2xx body that matched none of the known shapes.
var ErrUnrecognizedShape = errors.New("unrecognized response shape")

// replyService implements app.ReplyService using the BuddyPress API.
type replyService struct {
	pipeline *Pipeline
}

// NewReplyService creates a ReplyService backed by BuddyPress.
func NewReplyService(p *Pipeline) *replyService {
	return &replyService{pipeline: p}
}

// FetchReplies reads the replies route. A backend without a usable route
// yields no replies and no error; only genuine failures are returned.
func (s *replyService) FetchReplies(ctx context.Context, activityID int64) ([]domain.Reply, error) {
	resp, c, err := s.pipeline.Run(ctx, OpFetchReplies, activityID, "")
	if errors.Is(err, ErrNoCandidates) || IsWrongEndpoint(err) {
		// No usable replies route; the caller reads the parent activity instead.
		s.pipeline.logger.Debug("no replies route", "activity", activityID, "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching replies for %d: %w", activityID, err)
	}
	replies, ok := firstShape(resp.Body, replyParsers(activityID)...)
	if !ok {
		s.pipeline.logger.Debug("no replies in response", "activity", activityID, "candidate", c.Name)
		return nil, nil
	}
	return replies, nil
}

func (s *replyService) FetchEmbeddedReplies(ctx context.Context, activityID int64) ([]domain.Reply, error) {
	resp, err := s.pipeline.client.Get(ctx, activityPath(activityID), url.Values{"display_comments": {"threaded"}})
	if err != nil {
		return nil, fmt.Errorf("fetching activity %d: %w", activityID, err)
	}
	if _, ok := singleActivity(resp.Body); !ok {
		return nil, fmt.Errorf("reading activity %d: %w", activityID, ErrUnrecognizedShape)
	}
	replies, _ := embeddedReplies(activityID, resp.Body)
	return replies, nil
}

func (s *replyService) PostReply(ctx context.Context, activityID int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ErrEmptyContent
	}
	if !s.pipeline.client.HasToken() {
		return domain.ErrUnauthenticated
	}
	_, c, err := s.pipeline.Run(ctx, OpPostReply, activityID, content)
	if err != nil {
		return fmt.Errorf("replying to %d: %w", activityID, err)
	}
	s.pipeline.logger.Debug("reply posted", "activity", activityID, "candidate", c.Name)
	return nil
}
