package hub

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

const (
	signedIn  = auth.StaticToken("secret")
	signedOut = auth.StaticToken("")
)

var (
	viewer  = domain.Member{ID: 99, Name: "Robin"}
	epoch   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type stubActivities struct {
	fetch    func(ctx context.Context, page, perPage int) ([]domain.Activity, error)
	post     func(ctx context.Context, content string) error
	favorite func(ctx context.Context, id int64, favorite bool) error
}

func (s stubActivities) FetchPage(ctx context.Context, page, perPage int) ([]domain.Activity, error) {
	if s.fetch == nil {
		return nil, nil
	}
	return s.fetch(ctx, page, perPage)
}

func (s stubActivities) PostStatus(ctx context.Context, content string) error {
	if s.post == nil {
		return nil
	}
	return s.post(ctx, content)
}

func (s stubActivities) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	if s.favorite == nil {
		return nil
	}
	return s.favorite(ctx, id, favorite)
}

type stubReplies struct {
	fetch    func(ctx context.Context, id int64) ([]domain.Reply, error)
	embedded func(ctx context.Context, id int64) ([]domain.Reply, error)
	post     func(ctx context.Context, id int64, content string) error
}

func (s stubReplies) FetchReplies(ctx context.Context, id int64) ([]domain.Reply, error) {
	if s.fetch == nil {
		return nil, nil
	}
	return s.fetch(ctx, id)
}

func (s stubReplies) FetchEmbeddedReplies(ctx context.Context, id int64) ([]domain.Reply, error) {
	if s.embedded == nil {
		return nil, nil
	}
	return s.embedded(ctx, id)
}

func (s stubReplies) PostReply(ctx context.Context, id int64, content string) error {
	if s.post == nil {
		return nil
	}
	return s.post(ctx, id, content)
}

type stubLikes func(ctx context.Context, id int64) ([]domain.Member, error)

func (f stubLikes) FetchLikers(ctx context.Context, id int64) ([]domain.Member, error) {
	return f(ctx, id)
}

type stubMembers map[int64]domain.Member

func (s stubMembers) Lookup(_ context.Context, ids []int64) (map[int64]domain.Member, error) {
	out := make(map[int64]domain.Member, len(ids))
	for _, id := range ids {
		if m, ok := s[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s stubMembers) Me(context.Context) (domain.Member, error) { return viewer, nil }

func makeActivity(id int64, age time.Duration) domain.Activity {
	return domain.Activity{
		ID:        id,
		UserID:    id * 10,
		Timestamp: epoch.Add(-age),
		Body:      "<p>hello</p>",
		Text:      "hello",
	}
}

func makeReply(id, parent int64, at time.Duration) domain.Reply {
	return domain.Reply{ID: id, ParentID: parent, UserID: 5, Timestamp: epoch.Add(at), Text: "reply"}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
