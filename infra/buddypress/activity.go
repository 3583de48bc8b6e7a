package buddypress

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coralnet/reefhub/domain"
)

// activityService implements app.ActivityService using the BuddyPress API.
type activityService struct {
	pipeline     *Pipeline
	activityType string // Optional type filter, e.g. "activity_update".
}

// NewActivityService creates an ActivityService backed by BuddyPress.
func NewActivityService(p *Pipeline, activityType string) *activityService {
	return &activityService{pipeline: p, activityType: strings.TrimSpace(activityType)}
}

var activityListParsers = []shapeParser[[]bpActivity]{
	activityList,
	underKey("activities", activityList),
	underKey("data", activityList),
}

func (s *activityService) FetchPage(ctx context.Context, page, perPage int) ([]domain.Activity, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("display_comments", "false")
	if s.activityType != "" {
		q.Set("type", s.activityType)
	}

	resp, err := s.pipeline.client.Get(ctx, "/buddypress/v1/activity", q)
	if err != nil {
		return nil, fmt.Errorf("fetching activity page %d: %w", page, err)
	}

	list, ok := firstShape(resp.Body, activityListParsers...)
	if !ok {
		return nil, fmt.Errorf("parsing activity page %d: unrecognized response", page)
	}

	out := make([]domain.Activity, 0, len(list))
	for _, a := range list {
		if a.ID == 0 {
			continue
		}
		out = append(out, a.toDomain())
	}
	return out, nil
}

func (s *activityService) PostStatus(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ErrEmptyContent
	}
	form := url.Values{}
	form.Set("content", content)
	form.Set("type", "activity_update")
	form.Set("component", "activity")

	_, err := s.pipeline.client.Do(ctx, Request{Method: http.MethodPost, Path: "/buddypress/v1/activity", Form: form, Auth: true})
	if err != nil {
		return fmt.Errorf("posting status: %w", err)
	}
	return nil
}

func (s *activityService) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	if !s.pipeline.client.HasToken() {
		return domain.ErrUnauthenticated
	}
	op := OpFavorite
	if !favorite {
		op = OpUnfavorite
	}
	if _, _, err := s.pipeline.Run(ctx, op, id, ""); err != nil {
		if favorite {
			return fmt.Errorf("liking activity %d: %w", id, err)
		}
		return fmt.Errorf("unliking activity %d: %w", id, err)
	}
	return nil
}
