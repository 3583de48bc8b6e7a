package buddypress

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/coralnet/reefhub/infra/auth"
)

type handlerRoundTripper struct {
	h http.Handler
}

func (rt handlerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := newResponseRecorder()
	rt.h.ServeHTTP(rec, req)
	return rec.response(req), nil
}

type responseRecorder struct {
	header http.Header
	body   strings.Builder
	code   int
}

func newResponseRecorder() *responseRecorder {
	return &responseRecorder{header: make(http.Header), code: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header         { return r.header }
func (r *responseRecorder) Write(p []byte) (int, error) { return r.body.Write(p) }
func (r *responseRecorder) WriteHeader(statusCode int)  { r.code = statusCode }

func (r *responseRecorder) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: r.code,
		Header:     r.header.Clone(),
		Body:       io.NopCloser(strings.NewReader(r.body.String())),
		Request:    req,
	}
}

func newTestClient(h http.Handler, token string) *Client {
	return NewClient("http://example.test", auth.StaticToken(token),
		WithHTTPClient(&http.Client{Transport: handlerRoundTripper{h: h}}))
}

// routeMux answers "METHOD /path" keys (path relative to /wp-json) and
// records every request it sees. Unknown routes answer 404.
type routeMux struct {
	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	seen   []string
}

func newRouteMux() *routeMux {
	return &routeMux{routes: make(map[string]func(http.ResponseWriter, *http.Request))}
}

func (m *routeMux) handle(key string, fn func(w http.ResponseWriter, r *http.Request)) {
	m.routes[key] = fn
}

func (m *routeMux) json(key string, status int, body string) {
	m.handle(key, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func (m *routeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/wp-json")
	m.mu.Lock()
	m.seen = append(m.seen, key)
	fn, ok := m.routes[key]
	m.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"rest_no_route"}`)
		return
	}
	fn(w, r)
}

func (m *routeMux) requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

func (m *routeMux) count(key string) int {
	n := 0
	for _, k := range m.requests() {
		if k == key {
			n++
		}
	}
	return n
}

func newTestPipeline(t *testing.T, mux *routeMux, token string) *Pipeline {
	t.Helper()
	sel, err := NewSelector(nil)
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	return NewPipeline(newTestClient(mux, token), sel, nil)
}

const routeIndexAll = `{"routes": {
	"/buddypress/v1/activity": {"methods": ["GET", "POST"]},
	"/buddypress/v1/activity/(?P<id>[\\d]+)": {"methods": ["GET", "PUT", "DELETE"]},
	"/buddypress/v1/activity/(?P<id>[\\d]+)/comments": {"endpoints": [{"methods": ["GET"]}, {"methods": ["POST"]}]},
	"/buddypress/v1/activity/(?P<id>[\\d]+)/favorite": {"methods": ["PATCH"]},
	"/buddyboss/v1/activity/(?P<id>[\\d]+)/comment": {"methods": ["POST"]},
	"/buddyboss/v1/activity/(?P<id>[\\d]+)/likes": {"methods": ["GET"]},
	"/reefhub/v1/activity/(?P<id>[\\d]+)/likers/": {"methods": ["get"]}
}}`
