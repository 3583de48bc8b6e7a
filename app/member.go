package app

import (
	"context"

	"github.com/coralnet/reefhub/domain"
)

// MemberService resolves member profiles.
type MemberService interface {
	// Lookup resolves the given IDs. Unknown IDs are absent from the result.
	Lookup(ctx context.Context, ids []int64) (map[int64]domain.Member, error)

	// Me returns the authenticated member.
	Me(ctx context.Context) (domain.Member, error)
}
