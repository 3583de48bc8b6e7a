package buddypress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/coralnet/reefhub/domain"
)

// Prober discovers which route variants the backend advertises.
// The route index is fetched at most once per Prober, and the outcome is kept
// whether it succeeded or not. Concurrent callers share the single request.
type Prober struct {
	client *Client
	logger *slog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	done   bool
	cached domain.RouteSupport
	err    error
}

// NewProber creates a Prober backed by client.
func NewProber(client *Client, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{client: client, logger: logger}
}

// Detect returns the RouteSupport from the first probe of the route index.
// A failed probe keeps returning its error, so callers fall back to offering
// every variant without touching the network again.
func (p *Prober) Detect(ctx context.Context) (domain.RouteSupport, error) {
	if rs, ok, err := p.load(); ok {
		return rs, err
	}
	v, err, _ := p.group.Do("routes", func() (any, error) {
		if rs, ok, err := p.load(); ok {
			return rs, err
		}
		// Shared by every waiter, so one caller's cancellation must not abort it.
		rs, err := p.probe(context.WithoutCancel(ctx))
		p.mu.Lock()
		p.done, p.cached, p.err = true, rs, err
		p.mu.Unlock()
		if err != nil {
			p.logger.Warn("route probe failed, every variant will be tried", "err", err)
			return domain.RouteSupport{}, err
		}
		p.logger.Debug("route probe complete", "support", fmt.Sprintf("%+v", rs))
		return rs, nil
	})
	if err != nil {
		return domain.RouteSupport{}, err
	}
	return v.(domain.RouteSupport), nil
}

func (p *Prober) load() (domain.RouteSupport, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cached, p.done, p.err
}

func (p *Prober) probe(ctx context.Context) (domain.RouteSupport, error) {
	resp, err := p.client.Get(ctx, "/", nil)
	if err != nil {
		return domain.RouteSupport{}, fmt.Errorf("fetching route index: %w", err)
	}
	return ParseRouteIndex(resp.Body)
}

type routeIndex struct {
	Routes map[string]struct {
		Methods   []string `json:"methods"`
		Endpoints []struct {
			Methods []string `json:"methods"`
		} `json:"endpoints"`
	} `json:"routes"`
}

var paramGroupRe = regexp.MustCompile(`\(\?P<[^>]+>[^)]*\)`)

type routeSignature struct {
	pattern string
	method  string
	flag    func(*domain.RouteSupport)
}

var routeSignatures = []routeSignature{
	{"/buddypress/v1/activity/{id}/comments", "GET", func(r *domain.RouteSupport) { r.RepliesGet = true }},
	{"/buddypress/v1/activity/{id}/comments", "POST", func(r *domain.RouteSupport) { r.RepliesPost = true }},
	{"/buddypress/v1/activity", "POST", func(r *domain.RouteSupport) { r.ActivityComment = true }},
	{"/buddyboss/v1/activity/{id}/comment", "POST", func(r *domain.RouteSupport) { r.VendorComment = true }},
	{"/buddypress/v1/activity/{id}/favorites", "GET", func(r *domain.RouteSupport) { r.FavoritesGet = true }},
	{"/buddyboss/v1/activity/{id}/favorites", "GET", func(r *domain.RouteSupport) { r.VendorFavorites = true }},
	{"/buddyboss/v1/activity/{id}/likes", "GET", func(r *domain.RouteSupport) { r.VendorLikes = true }},
	{"/reefhub/v1/activity/{id}/likers", "GET", func(r *domain.RouteSupport) { r.CustomLikers = true }},
	{"/buddypress/v1/activity/{id}/favorite", "POST", func(r *domain.RouteSupport) { r.Favorite = true }},
	{"/buddypress/v1/activity/{id}/favorite", "PATCH", func(r *domain.RouteSupport) { r.Favorite = true }},
}

// ParseRouteIndex maps a WordPress REST route index to RouteSupport flags.
func ParseRouteIndex(data []byte) (domain.RouteSupport, error) {
	var idx routeIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return domain.RouteSupport{}, fmt.Errorf("parsing route index: %w", err)
	}

	methods := make(map[string]map[string]struct{}, len(idx.Routes))
	for route, def := range idx.Routes {
		key := normalizeRoute(route)
		set := methods[key]
		if set == nil {
			set = make(map[string]struct{})
			methods[key] = set
		}
		for _, m := range def.Methods {
			set[strings.ToUpper(m)] = struct{}{}
		}
		for _, ep := range def.Endpoints {
			for _, m := range ep.Methods {
				set[strings.ToUpper(m)] = struct{}{}
			}
		}
	}

	var rs domain.RouteSupport
	for _, sig := range routeSignatures {
		if _, ok := methods[sig.pattern][sig.method]; ok {
			sig.flag(&rs)
		}
	}
	return rs, nil
}

// normalizeRoute collapses regex parameter groups into "{id}" and trims slashes.
func normalizeRoute(route string) string {
	route = paramGroupRe.ReplaceAllString(route, "{id}")
	route = "/" + strings.Trim(route, "/")
	return route
}
