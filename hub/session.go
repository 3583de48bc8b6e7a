package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/coralnet/reefhub/app"
	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

// ErrNoDetector is returned by Session.Routes when no detector was wired.
var ErrNoDetector = errors.New("route detection unavailable")

// Deps are the services a Session is built from.
type Deps struct {
	Activities app.ActivityService
	Replies    app.ReplyService
	Likes      app.LikeService
	Members    app.MemberService
	Routes     app.RouteDetector
	Tokens     auth.TokenProvider
	Viewer     domain.Member
	PerPage    int
	Logger     *slog.Logger
}

// Session owns the synchronizers for one run of the application.
type Session struct {
	deps    Deps
	feed    *Feed
	threads *Threads

	mu    sync.Mutex
	likes map[int64]*Like
}

// NewSession wires a feed, a thread manager and lazily created like engines.
func NewSession(d Deps) *Session {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	s := &Session{
		deps:    d,
		feed:    NewFeed(d.Activities, d.Members, d.Tokens, d.PerPage, d.Logger),
		threads: NewThreads(d.Replies, d.Members, d.Tokens, d.Viewer, d.Logger),
		likes:   make(map[int64]*Like),
	}
	s.feed.onLike = s.likeSettled
	return s
}

func (s *Session) Feed() *Feed           { return s.feed }
func (s *Session) Threads() *Threads     { return s.threads }
func (s *Session) Viewer() domain.Member { return s.deps.Viewer }

// Routes reports the backend's route support, probing on first use.
func (s *Session) Routes(ctx context.Context) (domain.RouteSupport, error) {
	if s.deps.Routes == nil {
		return domain.RouteSupport{}, ErrNoDetector
	}
	return s.deps.Routes.Detect(ctx)
}

// Likes returns the like engine for a, creating it from a's current
// counters on first use. A toggle settled through the engine updates the
// feed item, and a toggle settled through the feed updates the engine.
func (s *Session) Likes(a domain.Activity) *Like {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.likes[a.ID]; ok {
		return l
	}
	l := NewLike(a, s.deps.Activities, s.deps.Likes, s.deps.Tokens, s.deps.Viewer, s.deps.Logger)
	id := a.ID
	l.onChange = func(liked bool, count int) { s.feed.adoptLike(id, liked, count) }
	s.likes[a.ID] = l
	return l
}

func (s *Session) likeSettled(id int64, liked bool, count int) {
	s.mu.Lock()
	l := s.likes[id]
	s.mu.Unlock()
	if l != nil {
		l.adopt(liked, count)
	}
}

// Close cancels outstanding background work and waits for it to stop.
func (s *Session) Close() {
	s.threads.Close()
	s.mu.Lock()
	likes := make([]*Like, 0, len(s.likes))
	for _, l := range s.likes {
		likes = append(likes, l)
	}
	s.mu.Unlock()
	for _, l := range likes {
		l.Close()
	}
}
