package buddypress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/coralnet/reefhub/domain"
)

// DefaultMemberChunk bounds the number of ids sent in one lookup request.
const DefaultMemberChunk = 20

const memberLookupParallelism = 4

// MemberCache stores resolved profiles between lookups.
type MemberCache interface {
	Get(ctx context.Context, ids []int64) (map[int64]domain.Member, error)
	Put(ctx context.Context, members []domain.Member) error
}

// memberService implements app.MemberService using the BuddyPress API.
type memberService struct {
	client *Client
	chunk  int
	cache  MemberCache
	logger *slog.Logger
}

// NewMemberService creates a MemberService. cache may be nil.
func NewMemberService(client *Client, chunk int, cache MemberCache, logger *slog.Logger) *memberService {
	if chunk <= 0 {
		chunk = DefaultMemberChunk
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &memberService{client: client, chunk: chunk, cache: cache, logger: logger}
}

var memberListParsers = []shapeParser[likerSet]{
	memberList,
	underKey("members", memberList),
	underKey("data", memberList),
}

// Lookup resolves ids in bounded chunks. On a partial failure the members
// resolved so far are returned alongside the error.
func (s *memberService) Lookup(ctx context.Context, ids []int64) (map[int64]domain.Member, error) {
	ids = uniqueIDs(ids)
	out := make(map[int64]domain.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	missing := ids
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ids)
		if err != nil {
			s.logger.Warn("member cache read failed", "err", err)
		}
		missing = missing[:0:0]
		for _, id := range ids {
			if m, ok := cached[id]; ok {
				out[id] = m
				continue
			}
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	var (
		mu      sync.Mutex
		fetched []domain.Member
	)
	// A failed chunk must not cancel its siblings; partial results are kept.
	var g errgroup.Group
	g.SetLimit(memberLookupParallelism)
	for start := 0; start < len(missing); start += s.chunk {
		chunk := missing[start:min(start+s.chunk, len(missing))]
		g.Go(func() error {
			members, err := s.fetchChunk(ctx, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			fetched = append(fetched, members...)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	for _, m := range fetched {
		out[m.ID] = m
	}
	if s.cache != nil && len(fetched) > 0 {
		if perr := s.cache.Put(ctx, fetched); perr != nil {
			s.logger.Warn("member cache write failed", "err", perr)
		}
	}
	if err != nil {
		return out, fmt.Errorf("looking up members: %w", err)
	}
	return out, nil
}

func (s *memberService) fetchChunk(ctx context.Context, ids []int64) ([]domain.Member, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	q := url.Values{}
	q.Set("include", strings.Join(parts, ","))
	q.Set("per_page", strconv.Itoa(len(ids)))

	resp, err := s.client.Get(ctx, "/buddypress/v1/members", q)
	if err != nil {
		return nil, err
	}
	set, ok := firstShape(resp.Body, memberListParsers...)
	if !ok {
		return nil, nil
	}
	return set.Members, nil
}

func (s *memberService) Me(ctx context.Context) (domain.Member, error) {
	resp, err := s.client.Do(ctx, Request{Method: http.MethodGet, Path: "/buddypress/v1/members/me", Auth: true})
	if err != nil {
		return domain.Member{}, fmt.Errorf("fetching current member: %w", err)
	}
	if set, ok := firstShape(resp.Body, memberList); ok {
		return set.Members[0], nil
	}
	var m bpMember
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return domain.Member{}, fmt.Errorf("parsing current member: %w", err)
	}
	dm, ok := m.toDomain()
	if !ok {
		return domain.Member{}, fmt.Errorf("parsing current member: %w", ErrUnrecognizedShape)
	}
	return dm, nil
}

func uniqueIDs(ids []int64) []int64 {
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
