package buddypress

import (
	"bytes"
	"encoding/json"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/coralnet/reefhub/domain"
)

// flexInt accepts JSON numbers, numeric strings, booleans and null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
	case 't':
		*f = 1
	case 'f':
		*f = 0
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		i, err := n.Int64()
		if err != nil {
			fl, ferr := n.Float64()
			if ferr != nil {
				return ferr
			}
			i = int64(fl)
		}
		*f = flexInt(i)
	}
	return nil
}

// flexBool accepts booleans, 0/1 and their string forms.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(strings.ToLower(string(bytes.TrimSpace(b))), `"`) {
	case "true", "1", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

// renderedField accepts either a plain string or a {"rendered": "..."} object.
type renderedField string

func (r *renderedField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = renderedField(s)
		return nil
	}
	var obj struct {
		Rendered string `json:"rendered"`
		Raw      string `json:"raw"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Rendered != "" {
		*r = renderedField(obj.Rendered)
	} else {
		*r = renderedField(obj.Raw)
	}
	return nil
}

// bpActivity is the subset of the BuddyPress activity entity we care about.
type bpActivity struct {
	ID              flexInt       `json:"id"`
	UserID          flexInt       `json:"user_id"`
	Type            string        `json:"type"`
	PrimaryItemID   flexInt       `json:"primary_item_id"`
	SecondaryItemID flexInt       `json:"secondary_item_id"`
	Date            string        `json:"date"`
	DateGMT         string        `json:"date_gmt"`
	Content         renderedField `json:"content"`
	Link            string        `json:"link"`
	Favorited       flexBool      `json:"favorited"`
	FavoriteCount   flexInt       `json:"favorite_count"`
	FavoritesCount  flexInt       `json:"favorites_count"`
	CommentCount    flexInt       `json:"comment_count"`

	// Embedded reply arrays under the names different plugins use.
	Comments         json.RawMessage `json:"comments"`
	Children         json.RawMessage `json:"children"`
	Replies          json.RawMessage `json:"replies"`
	ActivityComments json.RawMessage `json:"activity_comments"`

	// Embedded liker id arrays.
	FavoritedUsers json.RawMessage `json:"favorited_users"`
	FavoriteUsers  json.RawMessage `json:"favorite_users"`
	Likes          json.RawMessage `json:"likes"`
	Favorites      json.RawMessage `json:"favorites"`
}

func (a bpActivity) toDomain() domain.Activity {
	body := sanitizeHTML(string(a.Content))
	count := int(a.FavoriteCount)
	if count == 0 {
		count = int(a.FavoritesCount)
	}
	return domain.Activity{
		ID:            int64(a.ID),
		UserID:        int64(a.UserID),
		Type:          a.Type,
		Timestamp:     normalizeTimestamp(a.DateGMT, a.Date),
		Body:          body,
		Text:          stripHTML(body),
		Link:          sanitizeForTerminal(a.Link),
		Favorited:     bool(a.Favorited),
		FavoriteCount: max(count, 0),
		CommentCount:  max(int(a.CommentCount), 0),
	}
}

func (a bpActivity) toReply(parentID int64) domain.Reply {
	body := sanitizeHTML(string(a.Content))
	return domain.Reply{
		ID:        int64(a.ID),
		ParentID:  parentID,
		UserID:    int64(a.UserID),
		Timestamp: normalizeTimestamp(a.DateGMT, a.Date),
		Body:      body,
		Text:      stripHTML(body),
	}
}

// bpMember is the subset of the BuddyPress member entity we care about.
type bpMember struct {
	ID          flexInt `json:"id"`
	UserID      flexInt `json:"user_id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	UserLogin   string  `json:"user_login"`
	MentionName string  `json:"mention_name"`
	AvatarURLs  struct {
		Thumb string `json:"thumb"`
		Full  string `json:"full"`
	} `json:"avatar_urls"`
	Avatar string `json:"avatar"`
}

func (m bpMember) toDomain() (domain.Member, bool) {
	id := int64(m.ID)
	if id == 0 {
		id = int64(m.UserID)
	}
	if id == 0 {
		return domain.Member{}, false
	}
	name := firstNonEmpty(m.Name, m.DisplayName, m.MentionName, m.UserLogin)
	thumb := firstNonEmpty(m.AvatarURLs.Thumb, m.Avatar)
	return domain.Member{
		ID:          id,
		Name:        sanitizeForTerminal(strings.TrimSpace(html.UnescapeString(name))),
		Slug:        sanitizeForTerminal(firstNonEmpty(m.MentionName, m.UserLogin)),
		AvatarThumb: sanitizeForTerminal(thumb),
		AvatarFull:  sanitizeForTerminal(firstNonEmpty(m.AvatarURLs.Full, thumb)),
	}, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Shape parsers. Each is total: malformed input yields ok=false, never a panic
// or an error. Callers try them in order and keep the first hit.

type shapeParser[T any] func(data []byte) (T, bool)

func firstShape[T any](data []byte, parsers ...shapeParser[T]) (T, bool) {
	for _, p := range parsers {
		if v, ok := p(data); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// objectField returns the raw value of key when data is a JSON object.
func objectField(data []byte, key string) ([]byte, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null" {
		return nil, false
	}
	return v, true
}

// underKey lifts a parser to read from a named field of an object envelope.
func underKey[T any](key string, p shapeParser[T]) shapeParser[T] {
	return func(data []byte) (T, bool) {
		v, ok := objectField(data, key)
		if !ok {
			var zero T
			return zero, false
		}
		return p(v)
	}
}

// activityList parses a JSON array of activity objects.
func activityList(data []byte) ([]bpActivity, bool) {
	var list []bpActivity
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false
	}
	return list, true
}

// singleActivity parses either an activity object or a one-element array,
// the latter being what BuddyPress returns for GET activity/{id}.
func singleActivity(data []byte) (bpActivity, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return bpActivity{}, false
	}
	if data[0] == '[' {
		list, ok := activityList(data)
		if !ok || len(list) == 0 {
			return bpActivity{}, false
		}
		return list[0], true
	}
	var a bpActivity
	if err := json.Unmarshal(data, &a); err != nil || a.ID == 0 {
		return bpActivity{}, false
	}
	return a, true
}

// replyList parses a non-empty array of reply objects, flattening nested children.
func replyList(parentID int64) shapeParser[[]domain.Reply] {
	return func(data []byte) ([]domain.Reply, bool) {
		list, ok := activityList(data)
		if !ok || len(list) == 0 {
			return nil, false
		}
		out := make([]domain.Reply, 0, len(list))
		flattenReplies(parentID, list, &out, 0)
		if len(out) == 0 {
			return nil, false
		}
		domain.SortReplies(out)
		return out, true
	}
}

const maxReplyDepth = 8

func flattenReplies(parentID int64, list []bpActivity, out *[]domain.Reply, depth int) {
	for _, a := range list {
		if a.ID == 0 || int64(a.ID) == parentID {
			continue
		}
		*out = append(*out, a.toReply(parentID))
		if depth >= maxReplyDepth {
			continue
		}
		for _, nested := range [][]byte{a.Children, a.Comments, a.Replies} {
			if children, ok := activityList(nested); ok {
				flattenReplies(parentID, children, out, depth+1)
			}
		}
	}
}

// replyParsers covers the response shapes seen for reply listings.
func replyParsers(parentID int64) []shapeParser[[]domain.Reply] {
	list := replyList(parentID)
	return []shapeParser[[]domain.Reply]{
		list,
		underKey("comments", list),
		underKey("replies", list),
		underKey("data", list),
	}
}

// embeddedReplyFields are the activity fields that may carry replies, in priority order.
var embeddedReplyFields = []string{"comments", "children", "replies", "activity_comments"}

// embeddedReplies extracts replies embedded in the parent activity.
func embeddedReplies(parentID int64, data []byte) ([]domain.Reply, bool) {
	parent, ok := singleActivity(data)
	if !ok {
		return nil, false
	}
	fields := map[string]json.RawMessage{
		"comments":          parent.Comments,
		"children":          parent.Children,
		"replies":           parent.Replies,
		"activity_comments": parent.ActivityComments,
	}
	list := replyList(parentID)
	for _, name := range embeddedReplyFields {
		if replies, ok := list(fields[name]); ok {
			return replies, true
		}
	}
	return nil, false
}

// likerSet is either resolved members or bare ids needing a lookup.
type likerSet struct {
	Members []domain.Member
	IDs     []int64
}

func memberList(data []byte) (likerSet, bool) {
	var list []bpMember
	if err := json.Unmarshal(data, &list); err != nil || len(list) == 0 {
		return likerSet{}, false
	}
	out := make([]domain.Member, 0, len(list))
	for _, m := range list {
		if dm, ok := m.toDomain(); ok {
			out = append(out, dm)
		}
	}
	if len(out) == 0 {
		return likerSet{}, false
	}
	return likerSet{Members: out}, true
}

func idList(data []byte) (likerSet, bool) {
	var raw []flexInt
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return likerSet{}, false
	}
	ids := make([]int64, 0, len(raw))
	for _, id := range raw {
		if id > 0 {
			ids = append(ids, int64(id))
		}
	}
	if len(ids) == 0 {
		return likerSet{}, false
	}
	return likerSet{IDs: ids}, true
}

// idMap handles PHP-style associative arrays serialized as {"0": "12", "1": "40"}.
func idMap(data []byte) (likerSet, bool) {
	var raw map[string]flexInt
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return likerSet{}, false
	}
	ids := make([]int64, 0, len(raw))
	for _, id := range raw {
		if id > 0 {
			ids = append(ids, int64(id))
		}
	}
	if len(ids) == 0 {
		return likerSet{}, false
	}
	slices.Sort(ids)
	return likerSet{IDs: ids}, true
}

// likerParsers covers the response shapes seen for "who liked this" listings.
var likerParsers = func() []shapeParser[likerSet] {
	base := []shapeParser[likerSet]{memberList, idList}
	out := append([]shapeParser[likerSet]{}, base...)
	for _, key := range []string{"users", "favorites", "likes", "members", "data"} {
		for _, p := range base {
			out = append(out, underKey(key, p))
		}
	}
	return out
}()

// embeddedLikerFields are the activity fields that may carry liker ids, in priority order.
var embeddedLikerFields = []string{"favorited_users", "favorite_users", "likes", "favorites"}

// embeddedLikers extracts liker ids or members embedded in the parent activity.
func embeddedLikers(data []byte) (likerSet, bool) {
	parent, ok := singleActivity(data)
	if !ok {
		return likerSet{}, false
	}
	fields := map[string]json.RawMessage{
		"favorited_users": parent.FavoritedUsers,
		"favorite_users":  parent.FavoriteUsers,
		"likes":           parent.Likes,
		"favorites":       parent.Favorites,
	}
	for _, name := range embeddedLikerFields {
		if set, ok := firstShape(fields[name], memberList, idList, idMap); ok {
			return set, true
		}
	}
	return likerSet{}, false
}
