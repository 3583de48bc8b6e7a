package render

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/coralnet/reefhub/domain"
)

func authorStyleFor(name string, isOwn bool) lipgloss.Style {
	if isOwn {
		return lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A6DA95"))
	}
	palette := []string{
		"#7DC4E4", "#8BD5CA", "#F5A97F", "#C6A0F6", "#EBA0AC",
		"#A6DA95", "#F9E2AF", "#89B4FA", "#F38BA8", "#94E2D5",
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	idx := int(h.Sum32() % uint32(len(palette)))
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(palette[idx]))
}

// displayName falls back to the member ID when the author is unresolved.
func displayName(m domain.Member, userID int64) string {
	if name := strings.TrimSpace(m.Name); name != "" {
		return name
	}
	if m.Slug != "" {
		return "@" + m.Slug
	}
	return fmt.Sprintf("member #%d", userID)
}

func renderAuthor(m domain.Member, userID int64, viewerID int64) string {
	isOwn := viewerID != 0 && userID == viewerID
	name := displayName(m, userID)
	return authorStyleFor(name, isOwn).Render(name)
}

// truncateLines wraps text to width and keeps at most n lines.
func truncateLines(text string, width, n int) string {
	if width < 12 {
		width = 12
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(text)
	lines := strings.Split(wrapped, "\n")
	if n <= 0 || len(lines) <= n {
		return wrapped
	}
	return strings.Join(lines[:n], "\n") + "..."
}

func clampLinesToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		if ansi.StringWidth(ln) <= width {
			continue
		}
		lines[i] = ansi.Cut(ln, 0, width)
	}
	return strings.Join(lines, "\n")
}
