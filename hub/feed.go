package hub

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/coralnet/reefhub/app"
	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

const defaultPerPage = 20

// FeedSnapshot is an immutable copy of the feed state.
type FeedSnapshot struct {
	Items   []domain.Activity
	Page    int
	HasMore bool
	Loading bool
	Err     error
}

// Feed keeps an ordered, deduplicated, paginated view of the activity stream.
// State is only mutated through its methods; readers get snapshots.
type Feed struct {
	activities app.ActivityService
	members    app.MemberService
	tokens     auth.TokenProvider
	perPage    int
	logger     *slog.Logger

	// onLike receives the settled state after a successful ToggleLike.
	onLike func(id int64, liked bool, count int)

	mu       sync.Mutex
	items    []domain.Activity
	page     int
	hasMore  bool
	inflight int
	gen      uint64 // bumped by every replacing load
	err      error
}

// NewFeed creates an empty feed. members may be nil to skip author resolution.
func NewFeed(activities app.ActivityService, members app.MemberService, tokens auth.TokenProvider, perPage int, logger *slog.Logger) *Feed {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		activities: activities,
		members:    members,
		tokens:     tokens,
		perPage:    perPage,
		logger:     logger.With("component", "feed"),
		hasMore:    true,
	}
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FeedSnapshot{
		Items:   append([]domain.Activity(nil), f.items...),
		Page:    f.page,
		HasMore: f.hasMore,
		Loading: f.inflight > 0,
		Err:     f.err,
	}
}

// Load fetches one page. A replacing load swaps the held state and always
// runs; it supersedes older in-flight loads. A non-replacing load merges by
// ID and is dropped while any other load is in flight.
func (f *Feed) Load(ctx context.Context, page int, replace bool) error {
	if page < 1 {
		page = 1
	}

	f.mu.Lock()
	if !replace && f.inflight > 0 {
		f.mu.Unlock()
		f.logger.Debug("load coalesced", "page", page)
		return nil
	}
	if replace {
		f.gen++
	}
	gen := f.gen
	f.inflight++
	f.mu.Unlock()

	fetched, err := f.activities.FetchPage(ctx, page, f.perPage)
	if err == nil {
		activityAuthors(ctx, f.members, fetched, f.logger)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if gen != f.gen {
		f.logger.Debug("discarding superseded page", "page", page)
		return nil
	}
	if err != nil {
		f.err = err
		return err
	}
	f.err = nil

	if replace {
		f.items = domain.MergeActivities(nil, fetched)
		f.page = page
	} else {
		f.items = domain.MergeActivities(f.items, fetched)
		if len(fetched) > 0 {
			f.page = page
		}
	}
	f.hasMore = len(fetched) > 0
	return nil
}

// Refresh reloads the first page, replacing held state.
func (f *Feed) Refresh(ctx context.Context) error {
	return f.Load(ctx, 1, true)
}

// LoadMore fetches the next page unless a load is running or the end was reached.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.inflight > 0 || !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	next := f.page + 1
	f.mu.Unlock()
	return f.Load(ctx, next, false)
}

// SubmitStatus publishes a status and reloads the feed so the server's
// ordering, ID and sanitized body are authoritative.
func (f *Feed) SubmitStatus(ctx context.Context, text string) error {
	if err := requireSession(f.tokens); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyContent
	}
	if err := f.activities.PostStatus(ctx, text); err != nil {
		return err
	}
	if err := f.Refresh(ctx); err != nil {
		f.logger.Warn("refresh after post failed", "err", err)
	}
	return nil
}

// ToggleLike flips the like on id immediately and reverts to the exact
// prior flag and count if the backend rejects it.
func (f *Feed) ToggleLike(ctx context.Context, id int64, currentlyLiked bool) error {
	if err := requireSession(f.tokens); err != nil {
		return err
	}
	want := !currentlyLiked
	var missing bool
	var settled int

	apply := func() func() {
		i := f.indexOf(id)
		if i < 0 {
			missing = true
			return nil
		}
		prevLiked, prevCount := f.items[i].Favorited, f.items[i].FavoriteCount
		f.items[i].Favorited = want
		f.items[i].FavoriteCount = adjustCount(prevCount, prevLiked, want)
		return func() {
			// The item may have moved after a merge.
			if j := f.indexOf(id); j >= 0 {
				f.items[j].Favorited = prevLiked
				f.items[j].FavoriteCount = prevCount
			}
		}
	}
	remote := func() error {
		if missing {
			return domain.ErrNotFound
		}
		return f.activities.SetFavorite(ctx, id, want)
	}
	settle := func(err error) {
		if err != nil {
			return
		}
		if j := f.indexOf(id); j >= 0 {
			settled = f.items[j].FavoriteCount
		}
	}
	err := speculate(&f.mu, apply, remote, settle)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			f.logger.Warn("like toggle reverted", "activity", id, "err", err)
		}
		return err
	}
	if f.onLike != nil {
		f.onLike(id, want, settled)
	}
	return nil
}

// adoptLike copies a like state settled outside the feed onto item id.
func (f *Feed) adoptLike(id int64, liked bool, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.indexOf(id); i >= 0 {
		f.items[i].Favorited = liked
		f.items[i].FavoriteCount = max(count, 0)
	}
}

func (f *Feed) indexOf(id int64) int {
	for i := range f.items {
		if f.items[i].ID == id {
			return i
		}
	}
	return -1
}

// adjustCount moves count by one in the direction of the flag change, never below zero.
func adjustCount(count int, from, to bool) int {
	switch {
	case !from && to:
		count++
	case from && !to:
		count--
	}
	return max(count, 0)
}
