package hub

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/coralnet/reefhub/app"
	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

// maxLikers bounds the liker sample kept per activity.
const maxLikers = 20

// LikeSnapshot is a copy of one activity's like state.
type LikeSnapshot struct {
	Liked    bool
	Count    int
	Likers   []domain.Member
	Toggling bool
	Err      error
}

// Like tracks the like state of a single activity.
type Like struct {
	id         int64
	activities app.ActivityService
	likes      app.LikeService
	tokens     auth.TokenProvider
	viewer     domain.Member
	logger     *slog.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	// onChange receives the settled state after a successful toggle.
	onChange func(liked bool, count int)

	mu       sync.Mutex
	liked    bool
	count    int
	likers   []domain.Member
	toggling bool
	fetchSeq uint64
	err      error
	closed   bool
}

// NewLike seeds the engine from the activity as last fetched.
func NewLike(a domain.Activity, activities app.ActivityService, likes app.LikeService, tokens auth.TokenProvider, viewer domain.Member, logger *slog.Logger) *Like {
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &Like{
		id:         a.ID,
		activities: activities,
		likes:      likes,
		tokens:     tokens,
		viewer:     viewer,
		logger:     logger.With("component", "like", "activity", a.ID),
		base:       base,
		stop:       stop,
		liked:      a.Favorited,
		count:      max(a.FavoriteCount, 0),
	}
}

// Snapshot returns a copy of the current state.
func (l *Like) Snapshot() LikeSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LikeSnapshot{
		Liked:    l.liked,
		Count:    l.count,
		Likers:   slices.Clone(l.likers),
		Toggling: l.toggling,
		Err:      l.err,
	}
}

// Summary renders the like line for the current state.
func (l *Like) Summary() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.likers))
	for _, m := range l.likers {
		if l.isViewer(m) {
			continue
		}
		names = append(names, m.Name)
	}
	return LikeSummary(names, l.liked, l.count)
}

// Toggle flips the like. A call made while another toggle is in flight is
// ignored. On failure the flag, count and liker sample are restored together.
// On success the liker sample is refreshed in the background.
func (l *Like) Toggle(ctx context.Context) error {
	if err := requireSession(l.tokens); err != nil {
		return err
	}

	l.mu.Lock()
	if l.toggling {
		l.mu.Unlock()
		return nil
	}
	l.toggling = true
	l.mu.Unlock()

	var want bool
	apply := func() func() {
		prevLiked, prevCount, prevLikers := l.liked, l.count, slices.Clone(l.likers)
		want = !l.liked
		l.liked = want
		l.count = adjustCount(l.count, prevLiked, want)
		l.likers = slices.DeleteFunc(l.likers, l.isViewer)
		if want && l.viewer.ID != 0 {
			l.likers = append([]domain.Member{l.viewer}, l.likers...)
		}
		l.err = nil
		return func() {
			l.liked, l.count, l.likers = prevLiked, prevCount, prevLikers
		}
	}
	remote := func() error {
		return l.activities.SetFavorite(ctx, l.id, want)
	}
	var liked bool
	var count int
	settle := func(err error) {
		l.toggling = false
		l.err = err
		if err != nil {
			return
		}
		liked, count = l.liked, l.count
		if !l.closed {
			l.wg.Go(func() { l.RefreshLikers(l.base) })
		}
	}
	if err := speculate(&l.mu, apply, remote, settle); err != nil {
		l.logger.Warn("like reverted", "err", err)
		return err
	}
	if l.onChange != nil {
		l.onChange(liked, count)
	}
	return nil
}

// adopt takes over a like state settled elsewhere, such as a toggle made
// from the feed. It is ignored while a toggle of this engine is in flight.
func (l *Like) adopt(liked bool, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.toggling {
		return
	}
	l.liked, l.count = liked, max(count, 0)
	l.likers = slices.DeleteFunc(l.likers, l.isViewer)
	if liked && l.viewer.ID != 0 {
		l.likers = append([]domain.Member{l.viewer}, l.likers...)
	}
}

// RefreshLikers reloads the liker sample. It never fails: when nothing can
// be fetched the held sample is kept and an empty list returned. Results of
// a fetch superseded by a newer one are dropped.
func (l *Like) RefreshLikers(ctx context.Context) []domain.Member {
	l.mu.Lock()
	l.fetchSeq++
	seq := l.fetchSeq
	l.mu.Unlock()

	members, err := l.likes.FetchLikers(ctx, l.id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.fetchSeq {
		l.logger.Debug("discarding superseded likers")
		return slices.Clone(l.likers)
	}
	if err != nil {
		l.logger.Debug("likers unavailable", "err", err)
		return nil
	}
	if len(members) > maxLikers {
		members = members[:maxLikers]
	}
	l.likers = slices.Clone(members)
	return members
}

// Wait blocks until background refreshes finish.
func (l *Like) Wait() {
	l.wg.Wait()
}

// Close cancels background refreshes and waits for them. No refresh starts
// after Close.
func (l *Like) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.stop()
	l.wg.Wait()
}

func (l *Like) isViewer(m domain.Member) bool {
	return l.viewer.ID != 0 && m.ID == l.viewer.ID
}
