package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coralnet/reefhub/domain"
)

func pagedActivities(pages map[int][]domain.Activity, calls *atomic.Int32) stubActivities {
	return stubActivities{
		fetch: func(_ context.Context, page, _ int) ([]domain.Activity, error) {
			if calls != nil {
				calls.Add(1)
			}
			return append([]domain.Activity(nil), pages[page]...), nil
		},
	}
}

func ids(items []domain.Activity) []int64 {
	out := make([]int64, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFeedLoad_MergesByIDAndKeepsOrder(t *testing.T) {
	updated := makeActivity(2, 2*time.Minute)
	updated.Text = "edited"
	pages := map[int][]domain.Activity{
		1: {makeActivity(1, time.Minute), makeActivity(2, 2*time.Minute)},
		2: {updated, makeActivity(3, 3*time.Minute)},
	}
	f := NewFeed(pagedActivities(pages, nil), nil, signedIn, 2, discard)

	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := f.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}

	snap := f.Snapshot()
	if got := ids(snap.Items); !equalIDs(got, []int64{1, 2, 3}) {
		t.Fatalf("ids = %v, want [1 2 3]", got)
	}
	if snap.Items[1].Text != "edited" {
		t.Fatalf("later data should win on collision, got %q", snap.Items[1].Text)
	}
	if snap.Page != 2 {
		t.Fatalf("page = %d, want 2", snap.Page)
	}
}

func TestFeedLoad_ReplaceDropsHeldItems(t *testing.T) {
	pages := map[int][]domain.Activity{
		1: {makeActivity(1, time.Minute)},
		2: {makeActivity(2, 2*time.Minute)},
	}
	f := NewFeed(pagedActivities(pages, nil), nil, signedIn, 1, discard)
	_ = f.Refresh(context.Background())
	_ = f.LoadMore(context.Background())

	pages[1] = []domain.Activity{makeActivity(5, 0)}
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(f.Snapshot().Items); !equalIDs(got, []int64{5}) {
		t.Fatalf("ids after replace = %v, want [5]", got)
	}
}

func TestFeedLoadMore_StopsAfterEmptyPage(t *testing.T) {
	var calls atomic.Int32
	pages := map[int][]domain.Activity{
		1: {makeActivity(1, time.Minute)},
		2: {makeActivity(2, 2*time.Minute)},
	}
	f := NewFeed(pagedActivities(pages, &calls), nil, signedIn, 1, discard)
	ctx := context.Background()

	_ = f.Refresh(ctx)
	_ = f.LoadMore(ctx)
	if !f.Snapshot().HasMore {
		t.Fatalf("expected more pages after a non-empty page")
	}
	_ = f.LoadMore(ctx) // page 3 is empty
	snap := f.Snapshot()
	if snap.HasMore {
		t.Fatalf("expected HasMore=false after an empty page")
	}
	if snap.Page != 2 {
		t.Fatalf("page = %d, want 2", snap.Page)
	}

	before := calls.Load()
	_ = f.LoadMore(ctx)
	if calls.Load() != before {
		t.Fatalf("LoadMore fetched after the end was reached")
	}
}

func TestFeedLoad_NonReplacingLoadCoalescedWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	acts := stubActivities{
		fetch: func(_ context.Context, page, _ int) ([]domain.Activity, error) {
			calls.Add(1)
			if page == 2 {
				close(started)
				<-release
			}
			return []domain.Activity{makeActivity(int64(page), time.Duration(page)*time.Minute)}, nil
		},
	}
	f := NewFeed(acts, nil, signedIn, 1, discard)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Go(func() { _ = f.Load(ctx, 2, false) })
	<-started

	if !f.Snapshot().Loading {
		t.Fatalf("expected Loading while a page is in flight")
	}
	if err := f.Load(ctx, 3, false); err != nil {
		t.Fatalf("coalesced load: %v", err)
	}
	if err := f.LoadMore(ctx); err != nil {
		t.Fatalf("coalesced load more: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1 while a load is in flight", calls.Load())
	}

	// Replacing loads always run.
	if err := f.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("fetch calls = %d, want 2 after refresh", calls.Load())
	}

	close(release)
	wg.Wait()

	// The page-2 load started before the refresh, so its result is stale.
	if got := ids(f.Snapshot().Items); !equalIDs(got, []int64{1}) {
		t.Fatalf("ids = %v, want [1]", got)
	}
	if f.Snapshot().Loading {
		t.Fatalf("expected Loading=false after all loads settle")
	}
}

func TestFeedLoad_ErrorRecorded(t *testing.T) {
	boom := errors.New("server exploded")
	acts := stubActivities{
		fetch: func(context.Context, int, int) ([]domain.Activity, error) { return nil, boom },
	}
	f := NewFeed(acts, nil, signedIn, 20, discard)
	if err := f.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !errors.Is(f.Snapshot().Err, boom) {
		t.Fatalf("snapshot err = %v, want %v", f.Snapshot().Err, boom)
	}
}

func TestFeedLoad_ResolvesAuthors(t *testing.T) {
	pages := map[int][]domain.Activity{
		1: {makeActivity(1, time.Minute), makeActivity(2, 2*time.Minute)},
	}
	members := stubMembers{10: {ID: 10, Name: "Ana"}}
	f := NewFeed(pagedActivities(pages, nil), members, signedIn, 20, discard)
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	items := f.Snapshot().Items
	if items[0].Author.Name != "Ana" {
		t.Fatalf("author = %q, want Ana", items[0].Author.Name)
	}
	if items[1].Author.Name != "" {
		t.Fatalf("unknown author should stay unresolved, got %q", items[1].Author.Name)
	}
}

func TestFeedToggleLike_RestoresExactPriorStateOnFailure(t *testing.T) {
	item := makeActivity(1, time.Minute)
	item.FavoriteCount = 5
	acts := pagedActivities(map[int][]domain.Activity{1: {item}}, nil)
	acts.favorite = func(context.Context, int64, bool) error { return errors.New("nope") }
	f := NewFeed(acts, nil, signedIn, 20, discard)
	_ = f.Refresh(context.Background())

	if err := f.ToggleLike(context.Background(), 1, false); err == nil {
		t.Fatalf("expected error from failed toggle")
	}
	got := f.Snapshot().Items[0]
	if got.Favorited || got.FavoriteCount != 5 {
		t.Fatalf("state = {%v %d}, want {false 5}", got.Favorited, got.FavoriteCount)
	}
}

func TestFeedToggleLike_AppliesOnSuccess(t *testing.T) {
	item := makeActivity(1, time.Minute)
	item.Favorited = true
	item.FavoriteCount = 1
	var sent []bool
	acts := pagedActivities(map[int][]domain.Activity{1: {item}}, nil)
	acts.favorite = func(_ context.Context, _ int64, fav bool) error {
		sent = append(sent, fav)
		return nil
	}
	f := NewFeed(acts, nil, signedIn, 20, discard)
	_ = f.Refresh(context.Background())

	if err := f.ToggleLike(context.Background(), 1, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	got := f.Snapshot().Items[0]
	if got.Favorited || got.FavoriteCount != 0 {
		t.Fatalf("state = {%v %d}, want {false 0}", got.Favorited, got.FavoriteCount)
	}
	if len(sent) != 1 || sent[0] {
		t.Fatalf("favorite calls = %v, want [false]", sent)
	}
}

func TestFeedToggleLike_UnknownID(t *testing.T) {
	f := NewFeed(stubActivities{}, nil, signedIn, 20, discard)
	if err := f.ToggleLike(context.Background(), 42, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFeedSubmitStatus_RequiresSessionWithoutNetwork(t *testing.T) {
	var posted, fetched atomic.Int32
	acts := stubActivities{
		fetch: func(context.Context, int, int) ([]domain.Activity, error) {
			fetched.Add(1)
			return nil, nil
		},
		post: func(context.Context, string) error {
			posted.Add(1)
			return nil
		},
	}
	f := NewFeed(acts, nil, signedOut, 20, discard)

	if err := f.SubmitStatus(context.Background(), "hello"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if err := f.ToggleLike(context.Background(), 1, false); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("toggle err = %v, want ErrUnauthenticated", err)
	}
	if posted.Load() != 0 || fetched.Load() != 0 {
		t.Fatalf("network used without a session: posts=%d fetches=%d", posted.Load(), fetched.Load())
	}
}

func TestFeedSubmitStatus_PostsThenRefreshes(t *testing.T) {
	var content string
	var pagesFetched []int
	acts := stubActivities{
		fetch: func(_ context.Context, page, _ int) ([]domain.Activity, error) {
			pagesFetched = append(pagesFetched, page)
			return []domain.Activity{makeActivity(7, 0)}, nil
		},
		post: func(_ context.Context, c string) error {
			content = c
			return nil
		},
	}
	f := NewFeed(acts, nil, signedIn, 20, discard)

	if err := f.SubmitStatus(context.Background(), "   "); !errors.Is(err, domain.ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
	if err := f.SubmitStatus(context.Background(), "  low tide today  "); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if content != "low tide today" {
		t.Fatalf("posted %q, want trimmed text", content)
	}
	if len(pagesFetched) != 1 || pagesFetched[0] != 1 {
		t.Fatalf("pages fetched = %v, want [1]", pagesFetched)
	}
	if got := ids(f.Snapshot().Items); !equalIDs(got, []int64{7}) {
		t.Fatalf("ids = %v, want [7]", got)
	}
}
