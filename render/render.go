// Package render formats activities, threads and route support for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/coralnet/reefhub/domain"
)

// Options control card layout.
type Options struct {
	Width    int
	MaxLines int // 0 keeps the whole body
	ViewerID int64
}

// Activity renders one activity card. summary is the like line, possibly empty.
func Activity(a domain.Activity, summary string, opts Options) string {
	var b strings.Builder
	b.WriteString(renderAuthor(a.Author, a.UserID, opts.ViewerID))
	b.WriteString(" ")
	b.WriteString(TimestampStyle.Render(a.Timestamp.Local().Format("Jan 02 15:04")))
	b.WriteString(MetadataStyle.Render(fmt.Sprintf("  #%d", a.ID)))
	b.WriteString("\n")

	indicator := indicatorStyle.Render("┃ ")
	for line := range strings.SplitSeq(truncateLines(a.Text, contentWidth(opts.Width), opts.MaxLines), "\n") {
		b.WriteString(indicator + ContentStyle.Render(line) + "\n")
	}

	likeIcon, likeStyle := "♡", MetadataStyle
	if a.Favorited {
		likeIcon, likeStyle = "♥", LikeActiveStyle
	}
	b.WriteString(fmt.Sprintf("%s %d  ↩ %d", likeStyle.Render(likeIcon), a.FavoriteCount, a.CommentCount))
	if summary != "" {
		b.WriteString("  " + MetadataStyle.Render(summary))
	}
	return clampLinesToWidth(b.String(), opts.Width)
}

// Feed renders activities separated by blank lines.
func Feed(items []domain.Activity, summary func(domain.Activity) string, opts Options) string {
	if len(items) == 0 {
		return MetadataStyle.Render("No activity yet.")
	}
	cards := make([]string, 0, len(items))
	for _, a := range items {
		s := ""
		if summary != nil {
			s = summary(a)
		}
		cards = append(cards, Activity(a, s, opts))
	}
	return strings.Join(cards, "\n\n")
}

// Reply renders one reply line block, indented under its parent.
func Reply(r domain.Reply, opts Options) string {
	var b strings.Builder
	b.WriteString("  ↳ ")
	b.WriteString(renderAuthor(r.Author, r.UserID, opts.ViewerID))
	b.WriteString(" ")
	if r.Pending {
		b.WriteString(PendingStyle.Render("(posting...)"))
	} else {
		b.WriteString(TimestampStyle.Render(r.Timestamp.Local().Format("Jan 02 15:04")))
	}
	b.WriteString("\n")
	for line := range strings.SplitSeq(truncateLines(r.Text, contentWidth(opts.Width)-4, 0), "\n") {
		b.WriteString("    " + ContentStyle.Render(line) + "\n")
	}
	return clampLinesToWidth(strings.TrimSuffix(b.String(), "\n"), opts.Width)
}

// Thread renders replies oldest first.
func Thread(replies []domain.Reply, opts Options) string {
	if len(replies) == 0 {
		return MetadataStyle.Render("  No replies.")
	}
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		parts = append(parts, Reply(r, opts))
	}
	return strings.Join(parts, "\n")
}

// Likers renders the like summary followed by the sampled names.
func Likers(members []domain.Member, summary string) string {
	var b strings.Builder
	if summary == "" {
		summary = "No likes yet."
	}
	b.WriteString(TitleStyle.Render(summary))
	for _, m := range members {
		b.WriteString("\n  • " + displayName(m, m.ID))
	}
	return b.String()
}

// Routes renders which route variants the backend advertises.
func Routes(rs domain.RouteSupport) string {
	rows := []struct {
		label string
		ok    bool
	}{
		{"GET replies", rs.RepliesGet},
		{"POST replies", rs.RepliesPost},
		{"POST activity comment", rs.ActivityComment},
		{"POST vendor comment", rs.VendorComment},
		{"GET favorites", rs.FavoritesGet},
		{"GET vendor favorites", rs.VendorFavorites},
		{"GET vendor likes", rs.VendorLikes},
		{"GET custom likers", rs.CustomLikers},
		{"favorite toggle", rs.Favorite},
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Route support"))
	for _, r := range rows {
		mark := ErrorStyle.Render("✗")
		if r.ok {
			mark = SuccessStyle.Render("✓")
		}
		b.WriteString(fmt.Sprintf("\n  %s %s", mark, r.label))
	}
	return b.String()
}

func contentWidth(width int) int {
	if width <= 0 {
		return 70
	}
	return width - 2
}
