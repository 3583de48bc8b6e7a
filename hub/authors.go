package hub

import (
	"context"
	"log/slog"

	"github.com/coralnet/reefhub/app"
	"github.com/coralnet/reefhub/domain"
)

// lookupAuthors resolves the distinct ids best-effort. A failed lookup logs
// and returns whatever was resolved.
func lookupAuthors(ctx context.Context, members app.MemberService, ids []int64, logger *slog.Logger) map[int64]domain.Member {
	ids = distinctIDs(ids)
	if members == nil || len(ids) == 0 {
		return nil
	}
	found, err := members.Lookup(ctx, ids)
	if err != nil {
		logger.Warn("author lookup failed", "ids", len(ids), "err", err)
	}
	return found
}

func activityAuthors(ctx context.Context, members app.MemberService, items []domain.Activity, logger *slog.Logger) {
	ids := make([]int64, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.UserID)
	}
	found := lookupAuthors(ctx, members, ids, logger)
	for i := range items {
		if m, ok := found[items[i].UserID]; ok {
			items[i].Author = m
		}
	}
}

func replyAuthors(ctx context.Context, members app.MemberService, items []domain.Reply, logger *slog.Logger) {
	ids := make([]int64, 0, len(items))
	for _, r := range items {
		ids = append(ids, r.UserID)
	}
	found := lookupAuthors(ctx, members, ids, logger)
	for i := range items {
		if m, ok := found[items[i].UserID]; ok {
			items[i].Author = m
		}
	}
}

func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
