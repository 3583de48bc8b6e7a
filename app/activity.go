package app

import (
	"context"

	"github.com/coralnet/reefhub/domain"
)

// ActivityService reads and writes the community activity stream.
type ActivityService interface {
	// FetchPage returns one page of activity, 1-based. Authors are not resolved.
	FetchPage(ctx context.Context, page, perPage int) ([]domain.Activity, error)

	// PostStatus publishes a top-level status update.
	PostStatus(ctx context.Context, content string) error

	// SetFavorite marks or unmarks the activity as liked by the viewer.
	SetFavorite(ctx context.Context, id int64, favorite bool) error
}

// ReplyService reads and writes replies under an activity.
type ReplyService interface {
	// FetchReplies lists replies through the probed endpoint chain.
	FetchReplies(ctx context.Context, activityID int64) ([]domain.Reply, error)

	// FetchEmbeddedReplies reads the parent activity and extracts any embedded replies.
	FetchEmbeddedReplies(ctx context.Context, activityID int64) ([]domain.Reply, error)

	// PostReply creates a reply through the probed endpoint chain.
	PostReply(ctx context.Context, activityID int64, content string) error
}

// LikeService lists who liked an activity.
type LikeService interface {
	// FetchLikers returns a sample of members who liked the activity.
	FetchLikers(ctx context.Context, activityID int64) ([]domain.Member, error)
}
