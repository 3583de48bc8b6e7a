package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/coralnet/reefhub/infra/auth"
	"github.com/coralnet/reefhub/infra/buddypress"
	"github.com/coralnet/reefhub/infra/config"
)

func TestResolveVersionInfo(t *testing.T) {
	settings := map[string]string{"vcs.revision": "0123456789abcdef", "vcs.time": "2026-01-02T03:04:05Z"}
	v, c, d := resolveVersionInfo("dev", "none", "unknown", "v1.2.3", settings)
	if v != "v1.2.3" || c != "0123456789ab" || d != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected version info: %s %s %s", v, c, d)
	}

	v, c, d = resolveVersionInfo("v9", "abc", "today", "(devel)", settings)
	if v != "v9" || c != "abc" || d != "today" {
		t.Fatalf("linker values must win: %s %s %s", v, c, d)
	}
}

func TestParseCLIArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		wantErr bool
	}{
		{name: "feed by default", args: nil, command: "feed"},
		{name: "feed pages", args: []string{"feed", "--pages", "3"}, command: "feed"},
		{name: "probe", args: []string{"probe"}, command: "probe"},
		{name: "thread", args: []string{"thread", "7"}, command: "thread <id>"},
		{name: "reply with text", args: []string{"reply", "7", "nice", "reef"}, command: "reply <id> <text>"},
		{name: "reply via editor", args: []string{"reply", "7"}, command: "reply <id>"},
		{name: "unlike", args: []string{"like", "7", "--unlike"}, command: "like <id>"},
		{name: "thread needs id", args: []string{"thread"}, wantErr: true},
		{name: "non-numeric id", args: []string{"likers", "abc"}, wantErr: true},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cli CLI
			parser, err := newParser(&cli)
			if err != nil {
				t.Fatalf("parser: %v", err)
			}
			kctx, err := parser.Parse(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if kctx.Command() != tc.command {
				t.Fatalf("command = %q, want %q", kctx.Command(), tc.command)
			}
		})
	}
}

// fakeSite serves a small BuddyPress site keyed by "METHOD /path".
type fakeSite struct {
	mu     sync.Mutex
	routes map[string]string
	posted []string
}

func (s *fakeSite) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.Method + " " + strings.TrimPrefix(req.URL.Path, "/wp-json")
	s.mu.Lock()
	body, ok := s.routes[key]
	if req.Method != http.MethodGet {
		_ = req.ParseForm()
		s.posted = append(s.posted, key+" "+req.PostForm.Get("content"))
	}
	s.mu.Unlock()

	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	if !ok {
		rec.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(rec, `{"code":"rest_no_route"}`)
	} else {
		_, _ = io.WriteString(rec, body)
	}
	return rec.Result(), nil
}

func newTestRuntime(t *testing.T, site *fakeSite, token string) (*runtime, *bytes.Buffer) {
	t.Helper()
	settings := config.Settings{
		BaseURL:         "https://reef.test",
		PageSize:        20,
		MemberChunkSize: 20,
		TimeoutSeconds:  5,
		ReplyStrategies: []string{"replies", "activity", "vendor"},
	}
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := wireRuntime(context.Background(), settings, auth.StaticToken(token), logger, &out,
		buddypress.WithHTTPClient(&http.Client{Transport: site}))
	if err != nil {
		t.Fatalf("wire runtime: %v", err)
	}
	t.Cleanup(rt.Close)
	return rt, &out
}

func newSite() *fakeSite {
	return &fakeSite{routes: map[string]string{
		"GET /": `{"routes": {
			"/buddypress/v1/activity": {"methods": ["GET", "POST"]},
			"/buddypress/v1/activity/(?P<id>[\\d]+)/comments": {"methods": ["GET", "POST"]}
		}}`,
		"GET /buddypress/v1/activity": `[
			{"id": 7, "user_id": 3, "date_gmt": "2026-03-01T10:00:00", "content": "<p>Spawning tonight</p>",
			 "favorited": false, "favorite_count": 2, "comment_count": 1}
		]`,
		"GET /buddypress/v1/members":              `[{"id": 3, "name": "Ana"}, {"id": 4, "name": "Ben"}]`,
		"GET /buddypress/v1/members/me":           `{"id": 9, "name": "Robin"}`,
		"GET /buddypress/v1/activity/7/comments":  `[{"id": 70, "user_id": 4, "date_gmt": "2026-03-01T11:00:00", "content": "Count me in"}]`,
		"POST /buddypress/v1/activity/7/comments": `{"id": 71}`,
		"POST /buddypress/v1/activity/7/favorite": `{"id": 7, "favorited": true}`,
	}}
}

func TestFeedCommand(t *testing.T) {
	rt, out := newTestRuntime(t, newSite(), "")
	if err := (&feedCmd{Pages: 1}).Run(rt); err != nil {
		t.Fatalf("feed: %v", err)
	}
	text := ansi.Strip(out.String())
	for _, want := range []string{"Ana", "Spawning tonight", "2 people liked this"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in %q", want, text)
		}
	}
}

func TestProbeCommand(t *testing.T) {
	rt, out := newTestRuntime(t, newSite(), "")
	if err := (&probeCmd{}).Run(rt); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !strings.Contains(ansi.Strip(out.String()), "✓ GET replies") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestThreadCommand(t *testing.T) {
	rt, out := newTestRuntime(t, newSite(), "")
	if err := (&threadCmd{ID: 7}).Run(rt); err != nil {
		t.Fatalf("thread: %v", err)
	}
	text := ansi.Strip(out.String())
	if !strings.Contains(text, "Ben") || !strings.Contains(text, "Count me in") {
		t.Fatalf("unexpected thread: %q", text)
	}
}

func TestReplyCommand(t *testing.T) {
	site := newSite()
	rt, _ := newTestRuntime(t, site, "tok")
	if err := (&replyCmd{ID: 7, Text: []string{"see", "you", "there"}}).Run(rt); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if len(site.posted) != 1 || site.posted[0] != "POST /buddypress/v1/activity/7/comments see you there" {
		t.Fatalf("posted = %v", site.posted)
	}
	if rt.session.Viewer().Name != "Robin" {
		t.Fatalf("viewer = %+v, want the signed-in member", rt.session.Viewer())
	}
}

func TestReplyCommand_RequiresSession(t *testing.T) {
	site := newSite()
	rt, _ := newTestRuntime(t, site, "")
	err := (&replyCmd{ID: 7, Text: []string{"hi"}}).Run(rt)
	if err == nil || !strings.Contains(errorLine(err), "hint:") {
		t.Fatalf("expected unauthenticated error with hint, got %v", err)
	}
	if len(site.posted) != 0 {
		t.Fatalf("posted without a session: %v", site.posted)
	}
}

func TestLikeCommand(t *testing.T) {
	site := newSite()
	rt, out := newTestRuntime(t, site, "tok")
	if err := (&likeCmd{ID: 7}).Run(rt); err != nil {
		t.Fatalf("like: %v", err)
	}
	if len(site.posted) != 1 || site.posted[0] != "POST /buddypress/v1/activity/7/favorite " {
		t.Fatalf("posted = %v", site.posted)
	}
	text := ansi.Strip(out.String())
	if !strings.Contains(text, "Robin") || !strings.Contains(text, "You liked this") {
		t.Fatalf("unexpected likers: %q", text)
	}
}

func TestLikeCommand_AlreadyInState(t *testing.T) {
	site := newSite()
	rt, out := newTestRuntime(t, site, "tok")
	if err := (&likeCmd{ID: 7, Unlike: true}).Run(rt); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if len(site.posted) != 0 {
		t.Fatalf("posted = %v, want nothing", site.posted)
	}
	if !strings.Contains(ansi.Strip(out.String()), "Nothing to change.") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
