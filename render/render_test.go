package render

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/coralnet/reefhub/domain"
)

func TestActivity_ShowsAuthorCountsAndSummary(t *testing.T) {
	a := domain.Activity{
		ID:            12,
		UserID:        4,
		Author:        domain.Member{ID: 4, Name: "Ana"},
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Text:          "Staghorn fragments planted on the north transect.",
		Favorited:     true,
		FavoriteCount: 3,
		CommentCount:  2,
	}
	out := ansi.Strip(Activity(a, "You and Ben liked this", Options{Width: 80}))
	for _, want := range []string{"Ana", "#12", "♥ 3", "↩ 2", "You and Ben liked this", "Staghorn"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestActivity_UnresolvedAuthorFallsBackToID(t *testing.T) {
	out := ansi.Strip(Activity(domain.Activity{ID: 1, UserID: 77, Text: "x"}, "", Options{}))
	if !strings.Contains(out, "member #77") {
		t.Fatalf("expected id fallback, got %q", out)
	}
}

func TestActivity_RespectsWidthAndMaxLines(t *testing.T) {
	long := strings.Repeat("coral ", 60)
	out := ansi.Strip(Activity(domain.Activity{ID: 1, UserID: 1, Text: long}, "", Options{Width: 40, MaxLines: 2}))
	for line := range strings.SplitSeq(out, "\n") {
		if ansi.StringWidth(line) > 40 {
			t.Fatalf("line wider than 40: %q", line)
		}
	}
	if strings.Count(out, "┃") != 2 {
		t.Fatalf("expected two body lines, got %q", out)
	}
}

func TestThread_MarksPendingReplies(t *testing.T) {
	replies := []domain.Reply{
		{ID: -1, UserID: 9, Author: domain.Member{Name: "Robin"}, Text: "on my way", Pending: true},
		{ID: 5, UserID: 3, Author: domain.Member{Name: "Ben"}, Text: "nice", Timestamp: time.Now()},
	}
	out := ansi.Strip(Thread(replies, Options{Width: 60}))
	if !strings.Contains(out, "(posting...)") || !strings.Contains(out, "Ben") {
		t.Fatalf("unexpected thread: %q", out)
	}
	if got := ansi.Strip(Thread(nil, Options{})); !strings.Contains(got, "No replies") {
		t.Fatalf("unexpected empty thread: %q", got)
	}
}

func TestRoutes_ListsEveryFlag(t *testing.T) {
	out := ansi.Strip(Routes(domain.RouteSupport{RepliesGet: true, Favorite: true}))
	if strings.Count(out, "✓") != 2 || strings.Count(out, "✗") != 7 {
		t.Fatalf("unexpected marks: %q", out)
	}
}

func TestLikers(t *testing.T) {
	out := ansi.Strip(Likers([]domain.Member{{ID: 1, Name: "Ana"}, {ID: 2, Slug: "ben"}}, "Ana and @ben liked this"))
	if !strings.Contains(out, "• Ana") || !strings.Contains(out, "• @ben") {
		t.Fatalf("unexpected likers: %q", out)
	}
	if !strings.Contains(ansi.Strip(Likers(nil, "")), "No likes yet.") {
		t.Fatalf("expected empty message")
	}
}
