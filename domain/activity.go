package domain

import "time"

// Member is a community member profile as returned by the member lookup.
type Member struct {
	ID          int64
	Name        string
	Slug        string
	AvatarThumb string
	AvatarFull  string
}

// Activity is a single item of the community activity stream.
type Activity struct {
	ID            int64
	UserID        int64
	Author        Member
	Type          string
	Timestamp     time.Time // UTC
	Body          string    // Sanitized HTML, never raw
	Text          string    // Plain text, terminal-safe
	Link          string
	Favorited     bool // Did the current viewer like it
	FavoriteCount int
	CommentCount  int
}

// Reply is a comment on an activity. Optimistic placeholders carry negative IDs.
type Reply struct {
	ID        int64
	ParentID  int64
	UserID    int64
	Author    Member
	Timestamp time.Time
	Body      string
	Text      string
	Pending   bool
}

// RouteSupport records which backend route variants the route index advertises.
// It is built once per session and never mutated afterwards.
type RouteSupport struct {
	RepliesGet      bool // GET  activity/{id}/comments
	RepliesPost     bool // POST activity/{id}/comments
	ActivityComment bool // POST activity with a parent discriminator
	VendorComment   bool // POST buddyboss activity/{id}/comment
	FavoritesGet    bool // GET  activity/{id}/favorites
	VendorFavorites bool // GET  buddyboss activity/{id}/favorites
	VendorLikes     bool // GET  buddyboss activity/{id}/likes
	CustomLikers    bool // GET  reefhub activity/{id}/likers
	Favorite        bool // POST/PATCH activity/{id}/favorite
}
