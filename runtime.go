package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/coralnet/reefhub/app"
	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/hub"
	"github.com/coralnet/reefhub/infra/auth"
	"github.com/coralnet/reefhub/infra/buddypress"
	"github.com/coralnet/reefhub/infra/config"
	"github.com/coralnet/reefhub/infra/editor"
	"github.com/coralnet/reefhub/infra/memberstore"
	"github.com/coralnet/reefhub/render"
)

// runtime carries the wired services shared by all commands.
type runtime struct {
	ctx      context.Context
	settings config.Settings
	logger   *slog.Logger
	out      io.Writer
	session  *hub.Session
	members  app.MemberService
	composer app.Composer
	store    *memberstore.Store
}

func newRuntime(ctx context.Context, configPath string, out io.Writer) (*runtime, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger, err := config.NewLogger(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return wireRuntime(ctx, settings, auth.NewFileTokenProvider(settings.TokenFile), logger, out, buddypress.WithTimeout(settings.Timeout()))
}

func wireRuntime(ctx context.Context, settings config.Settings, tokens auth.TokenProvider, logger *slog.Logger, out io.Writer, opts ...buddypress.Option) (*runtime, error) {
	selector, err := buddypress.NewSelector(settings.ReplyStrategies)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	rt := &runtime{
		ctx:      ctx,
		settings: settings,
		logger:   logger,
		out:      out,
		composer: editor.NewEnvEditor(),
	}

	var cache buddypress.MemberCache
	if settings.MemberCache != "" {
		store, err := memberstore.Open(settings.MemberCache, memberstore.DefaultMaxAge)
		if err != nil {
			logger.Warn("member cache disabled", "path", settings.MemberCache, "err", err)
		} else {
			rt.store = store
			cache = store
		}
	}

	client := buddypress.NewClient(settings.BaseURL, tokens, append(opts, buddypress.WithLogger(logger))...)
	pipeline := buddypress.NewPipeline(client, selector, logger)
	members := buddypress.NewMemberService(client, settings.MemberChunkSize, cache, logger)
	rt.members = members

	rt.session = hub.NewSession(hub.Deps{
		Activities: buddypress.NewActivityService(pipeline, settings.ActivityType),
		Replies:    buddypress.NewReplyService(pipeline),
		Likes:      buddypress.NewLikeService(pipeline, members),
		Members:    members,
		Routes:     pipeline.Prober(),
		Tokens:     tokens,
		Viewer:     rt.resolveViewer(ctx, client.HasToken()),
		PerPage:    settings.PageSize,
		Logger:     logger,
	})
	return rt, nil
}

// resolveViewer identifies the signed-in member, best-effort.
func (rt *runtime) resolveViewer(ctx context.Context, signedIn bool) domain.Member {
	if id := rt.settings.ViewerID; id > 0 {
		found, err := rt.members.Lookup(ctx, []int64{id})
		if err != nil {
			rt.logger.Debug("viewer lookup failed", "id", id, "err", err)
		}
		if m, ok := found[id]; ok {
			return m
		}
		return domain.Member{ID: id}
	}
	if !signedIn {
		return domain.Member{}
	}
	me, err := rt.members.Me(ctx)
	if err != nil {
		rt.logger.Debug("viewer unknown", "err", err)
		return domain.Member{}
	}
	return me
}

func (rt *runtime) renderOptions() render.Options {
	return render.Options{Width: 80, ViewerID: rt.session.Viewer().ID}
}

// findActivity looks for id on the first feed page.
func (rt *runtime) findActivity(id int64) (domain.Activity, bool) {
	feed := rt.session.Feed()
	if len(feed.Snapshot().Items) == 0 {
		if err := feed.Refresh(rt.ctx); err != nil {
			rt.logger.Debug("feed unavailable", "err", err)
		}
	}
	for _, a := range feed.Snapshot().Items {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Activity{ID: id}, false
}

func (rt *runtime) Close() {
	rt.session.Close()
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Debug("closing member cache", "err", err)
		}
	}
}

// errorLine renders err with a hint for the common local failures.
func errorLine(err error) string {
	msg := render.ErrorStyle.Render("error: ") + err.Error()
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		msg += "\nhint: put a bearer token in the file named by token_file"
	case errors.Is(err, editor.ErrCancelled):
		msg = "nothing to send"
	}
	return msg
}
