package hub

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coralnet/reefhub/app"
	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

// ThreadState is a copy of one reply thread.
type ThreadState struct {
	Open       bool
	Loading    bool
	Submitting bool
	Replies    []domain.Reply
	Draft      string
	Err        error
}

type thread struct {
	open       bool
	loading    bool
	submitting bool
	replies    []domain.Reply
	draft      string
	err        error
	loadErr    bool // err came from a load, not a submit
	seq        uint64
	cancel     context.CancelFunc
}

// Threads manages the reply threads of the activities in a session.
// Entries are created lazily and live until the manager is closed.
type Threads struct {
	replies app.ReplyService
	members app.MemberService
	tokens  auth.TokenProvider
	viewer  domain.Member
	logger  *slog.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu        sync.Mutex
	threads   map[int64]*thread
	lastLocal int64
	closed    bool
}

// NewThreads creates a thread manager. viewer labels optimistic replies.
func NewThreads(replies app.ReplyService, members app.MemberService, tokens auth.TokenProvider, viewer domain.Member, logger *slog.Logger) *Threads {
	if logger == nil {
		logger = slog.Default()
	}
	base, stop := context.WithCancel(context.Background())
	return &Threads{
		replies: replies,
		members: members,
		tokens:  tokens,
		viewer:  viewer,
		logger:  logger.With("component", "threads"),
		base:    base,
		stop:    stop,
		threads: make(map[int64]*thread),
	}
}

// entry must be called with mu held.
func (t *Threads) entry(id int64) *thread {
	th, ok := t.threads[id]
	if !ok {
		th = &thread{}
		t.threads[id] = th
	}
	return th
}

// Snapshot returns a copy of the thread for id. Unknown ids report the zero state.
func (t *Threads) Snapshot(id int64) ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	th, ok := t.threads[id]
	if !ok {
		return ThreadState{}
	}
	return ThreadState{
		Open:       th.open,
		Loading:    th.loading,
		Submitting: th.submitting,
		Replies:    slices.Clone(th.replies),
		Draft:      th.draft,
		Err:        th.err,
	}
}

func (t *Threads) IsOpen(id int64) bool            { return t.Snapshot(id).Open }
func (t *Threads) IsLoading(id int64) bool         { return t.Snapshot(id).Loading }
func (t *Threads) IsSubmitting(id int64) bool      { return t.Snapshot(id).Submitting }
func (t *Threads) Replies(id int64) []domain.Reply { return t.Snapshot(id).Replies }
func (t *Threads) Draft(id int64) string           { return t.Snapshot(id).Draft }
func (t *Threads) Err(id int64) error              { return t.Snapshot(id).Err }

// SetDraft stores the unsent reply text for id.
func (t *Threads) SetDraft(id int64, text string) {
	t.mu.Lock()
	t.entry(id).draft = text
	t.mu.Unlock()
}

// ToggleOpen opens or closes the thread and reports the new state.
// Closing cancels any fetch and clears the draft and error but keeps the
// replies. Opening starts a background load unless one is running.
func (t *Threads) ToggleOpen(id int64) bool {
	t.mu.Lock()
	th := t.entry(id)
	th.open = !th.open
	th.err, th.loadErr = nil, false
	if !th.open {
		if th.cancel != nil {
			th.cancel()
			th.cancel = nil
		}
		th.seq++
		th.loading = false
		th.draft = ""
		t.mu.Unlock()
		return false
	}
	if !th.loading && !t.closed {
		t.wg.Go(func() { t.Load(t.base, id) })
	}
	t.mu.Unlock()
	return true
}

// Load fetches the replies for id, superseding any earlier fetch for the
// same id. Results of a superseded or cancelled fetch are dropped.
func (t *Threads) Load(ctx context.Context, id int64) {
	t.mu.Lock()
	th := t.entry(id)
	if th.cancel != nil {
		th.cancel()
	}
	th.seq++
	seq := th.seq
	ctx, cancel := context.WithCancel(ctx)
	detach := context.AfterFunc(t.base, cancel)
	th.cancel = cancel
	th.loading = true
	t.mu.Unlock()

	defer func() {
		detach()
		cancel()
	}()

	replies, err := t.fetch(ctx, id)
	if err == nil {
		replyAuthors(ctx, t.members, replies, t.logger)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if th.seq != seq {
		t.logger.Debug("discarding superseded replies", "activity", id)
		return
	}
	th.loading = false
	th.cancel = nil
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		t.logger.Warn("replies unavailable", "activity", id, "err", err)
		th.err, th.loadErr = err, true
		return
	}
	if th.loadErr {
		th.err, th.loadErr = nil, false
	}
	th.replies = append(pendingReplies(th.replies), replies...)
}

// fetch tries the endpoint chain, then the replies embedded in the parent
// activity. It only fails when both paths fail.
func (t *Threads) fetch(ctx context.Context, id int64) ([]domain.Reply, error) {
	replies, pipeErr := t.replies.FetchReplies(ctx, id)
	if pipeErr == nil && len(replies) > 0 {
		domain.SortReplies(replies)
		return replies, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pipeErr != nil {
		t.logger.Debug("reply endpoints failed, reading parent activity", "activity", id, "err", pipeErr)
	}

	embedded, err := t.replies.FetchEmbeddedReplies(ctx, id)
	if err != nil {
		if pipeErr != nil {
			return nil, errors.Join(pipeErr, err)
		}
		t.logger.Debug("parent activity unreadable", "activity", id, "err", err)
		return nil, nil
	}
	domain.SortReplies(embedded)
	return embedded, nil
}

// Submit posts a reply to id. The reply shows up immediately as a pending
// placeholder; on failure it is withdrawn and the text goes back to the draft.
func (t *Threads) Submit(ctx context.Context, id int64, text string) error {
	if err := requireSession(t.tokens); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	t.mu.Lock()
	th := t.entry(id)
	if th.submitting {
		t.mu.Unlock()
		return nil
	}
	th.submitting = true
	t.lastLocal--
	placeholder := domain.Reply{
		ID:        t.lastLocal,
		ParentID:  id,
		UserID:    t.viewer.ID,
		Author:    t.viewer,
		Timestamp: time.Now().UTC(),
		Body:      html.EscapeString(text),
		Text:      text,
		Pending:   true,
	}
	t.mu.Unlock()

	apply := func() func() {
		th.replies = append([]domain.Reply{placeholder}, th.replies...)
		th.draft = ""
		return func() {
			if th.draft == "" {
				th.draft = text
			}
		}
	}
	remote := func() error {
		return t.replies.PostReply(ctx, id, text)
	}
	settle := func(err error) {
		th.submitting = false
		th.replies = slices.DeleteFunc(th.replies, func(r domain.Reply) bool {
			return r.ID == placeholder.ID
		})
		if err != nil {
			th.err, th.loadErr = err, false
		}
	}
	if err := speculate(&t.mu, apply, remote, settle); err != nil {
		t.logger.Warn("reply failed", "activity", id, "err", err)
		return err
	}

	t.Load(ctx, id)
	return nil
}

// Close cancels outstanding fetches and waits for background loads.
// Opening a thread after Close starts no load.
func (t *Threads) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.stop()
	t.wg.Wait()
}

// Wait blocks until background loads started by ToggleOpen finish.
func (t *Threads) Wait() {
	t.wg.Wait()
}

func pendingReplies(replies []domain.Reply) []domain.Reply {
	var out []domain.Reply
	for _, r := range replies {
		if r.Pending {
			out = append(out, r)
		}
	}
	return out
}
