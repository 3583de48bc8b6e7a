package buddypress

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coralnet/reefhub/domain"
)

// Op is a logical operation that may map to several concrete routes.
type Op int

const (
	OpFetchReplies Op = iota
	OpPostReply
	OpFetchLikers
	OpFavorite
	OpUnfavorite
)

// Reply strategy names, used for ordering policy.
const (
	StrategyReplies  = "replies"  // dedicated comments sub-resource
	StrategyActivity = "activity" // generic activity creation with a parent
	StrategyVendor   = "vendor"   // BuddyBoss comment endpoint
)

// DefaultReplyOrder is the conventional preference when several variants are supported.
var DefaultReplyOrder = []string{StrategyReplies, StrategyActivity, StrategyVendor}

// Candidate is one concrete request the executor may attempt.
type Candidate struct {
	Name    string
	Request Request
	// Supported is true when the route index confirmed this variant.
	Supported bool
}

// Selector turns logical operations into ordered candidate lists.
type Selector struct {
	order []string
}

// NewSelector builds a Selector with the given reply strategy order. Unknown
// names are ignored and missing ones are appended in default order.
func NewSelector(order []string) (*Selector, error) {
	seen := make(map[string]struct{}, len(DefaultReplyOrder))
	out := make([]string, 0, len(DefaultReplyOrder))
	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		switch name {
		case StrategyReplies, StrategyActivity, StrategyVendor:
		default:
			return nil, fmt.Errorf("unknown reply strategy %q", name)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range DefaultReplyOrder {
		if _, ok := seen[name]; !ok {
			out = append(out, name)
		}
	}
	return &Selector{order: out}, nil
}

// Candidates returns the ordered requests for op. probeErr signals that the
// route support is unknown, in which case every known variant is offered.
func (s *Selector) Candidates(op Op, activityID int64, content string, support domain.RouteSupport, probeErr error) []Candidate {
	var all []Candidate
	switch op {
	case OpFetchReplies:
		all = []Candidate{{
			Name:      "replies-get",
			Request:   Request{Method: http.MethodGet, Path: activityPath(activityID) + "/comments", Query: url.Values{"per_page": {"100"}}},
			Supported: support.RepliesGet,
		}}
		// The single route is the only candidate; without confirmation the
		// embedded-replies read covers it.
		return s.filter(all, probeErr, false)
	case OpPostReply:
		byName := map[string]Candidate{
			StrategyReplies: {
				Name:      StrategyReplies,
				Request:   Request{Method: http.MethodPost, Path: activityPath(activityID) + "/comments", Form: url.Values{"content": {content}}, Auth: true},
				Supported: support.RepliesPost,
			},
			StrategyActivity: {
				Name: StrategyActivity,
				Request: Request{Method: http.MethodPost, Path: "/buddypress/v1/activity", Auth: true, Form: url.Values{
					"content":           {content},
					"type":              {"activity_comment"},
					"component":         {"activity"},
					"primary_item_id":   {itoa(activityID)},
					"secondary_item_id": {itoa(activityID)},
					"parent":            {itoa(activityID)},
				}},
				Supported: support.ActivityComment,
			},
			StrategyVendor: {
				Name:      StrategyVendor,
				Request:   Request{Method: http.MethodPost, Path: "/buddyboss/v1/activity/" + itoa(activityID) + "/comment", Form: url.Values{"content": {content}}, Auth: true},
				Supported: support.VendorComment,
			},
		}
		for _, name := range s.order {
			all = append(all, byName[name])
		}
		return s.filter(all, probeErr, true)
	case OpFetchLikers:
		all = []Candidate{
			{Name: "favorites", Request: Request{Method: http.MethodGet, Path: activityPath(activityID) + "/favorites"}, Supported: support.FavoritesGet},
			{Name: "vendor-favorites", Request: Request{Method: http.MethodGet, Path: "/buddyboss/v1/activity/" + itoa(activityID) + "/favorites"}, Supported: support.VendorFavorites},
			{Name: "vendor-likes", Request: Request{Method: http.MethodGet, Path: "/buddyboss/v1/activity/" + itoa(activityID) + "/likes"}, Supported: support.VendorLikes},
			{Name: "custom-likers", Request: Request{Method: http.MethodGet, Path: "/reefhub/v1/activity/" + itoa(activityID) + "/likers"}, Supported: support.CustomLikers},
		}
		return s.filter(all, probeErr, true)
	case OpFavorite, OpUnfavorite:
		method := http.MethodPost
		if op == OpUnfavorite {
			method = http.MethodDelete
		}
		all = []Candidate{
			{Name: "favorite", Request: Request{Method: method, Path: activityPath(activityID) + "/favorite", Auth: true}, Supported: support.Favorite},
			{Name: "favorite-toggle", Request: Request{Method: http.MethodPatch, Path: activityPath(activityID) + "/favorite", Auth: true}, Supported: support.Favorite},
		}
		// Favorite actions are always attempted; a route index that omits
		// them says nothing useful.
		return s.filter(all, probeErr, true)
	}
	return nil
}

// filter keeps confirmed candidates first. When the probe failed, or when
// nothing is confirmed and fallback is allowed, every candidate is offered.
func (s *Selector) filter(all []Candidate, probeErr error, fallback bool) []Candidate {
	out := make([]Candidate, 0, len(all))
	for _, c := range all {
		if c.Supported {
			out = append(out, c)
		}
	}
	if probeErr == nil && (len(out) > 0 || !fallback) {
		return out
	}
	for _, c := range all {
		if !c.Supported {
			out = append(out, c)
		}
	}
	return out
}

func activityPath(id int64) string {
	return "/buddypress/v1/activity/" + itoa(id)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
