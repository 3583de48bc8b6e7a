package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/hub"
	"github.com/coralnet/reefhub/render"
)

type feedCmd struct {
	Pages int  `help:"Number of pages to load" default:"1"`
	Full  bool `help:"Show whole bodies instead of two-line previews"`
}

func (c *feedCmd) Run(rt *runtime) error {
	feed := rt.session.Feed()
	if err := feed.Refresh(rt.ctx); err != nil {
		return err
	}
	for i := 1; i < c.Pages; i++ {
		if !feed.Snapshot().HasMore {
			break
		}
		if err := feed.LoadMore(rt.ctx); err != nil {
			return err
		}
	}

	opts := rt.renderOptions()
	if !c.Full {
		opts.MaxLines = 2
	}
	snap := feed.Snapshot()
	summary := func(a domain.Activity) string { return rt.session.Likes(a).Summary() }
	fmt.Fprintln(rt.out, render.Feed(snap.Items, summary, opts))
	if !snap.HasMore {
		fmt.Fprintln(rt.out, render.MetadataStyle.Render("\nEnd of feed."))
	}
	return nil
}

type probeCmd struct{}

func (c *probeCmd) Run(rt *runtime) error {
	rs, err := rt.session.Routes(rt.ctx)
	if err != nil {
		return fmt.Errorf("route index unavailable, every known endpoint will be tried: %w", err)
	}
	fmt.Fprintln(rt.out, render.Routes(rs))
	return nil
}

type threadCmd struct {
	ID int64 `arg:"" help:"Activity ID"`
}

func (c *threadCmd) Run(rt *runtime) error {
	threads := rt.session.Threads()
	threads.Load(rt.ctx, c.ID)
	return printThread(rt, threads.Snapshot(c.ID))
}

type replyCmd struct {
	ID   int64    `arg:"" help:"Activity ID"`
	Text []string `arg:"" optional:"" help:"Reply text (opens $EDITOR when empty)"`
}

func (c *replyCmd) Run(rt *runtime) error {
	text, err := messageText(rt, c.Text)
	if err != nil {
		return err
	}
	threads := rt.session.Threads()
	if err := threads.Submit(rt.ctx, c.ID, text); err != nil {
		return err
	}
	fmt.Fprintln(rt.out, render.SuccessStyle.Render("Reply posted."))
	return printThread(rt, threads.Snapshot(c.ID))
}

type postCmd struct {
	Text []string `arg:"" optional:"" help:"Status text (opens $EDITOR when empty)"`
}

func (c *postCmd) Run(rt *runtime) error {
	text, err := messageText(rt, c.Text)
	if err != nil {
		return err
	}
	feed := rt.session.Feed()
	if err := feed.SubmitStatus(rt.ctx, text); err != nil {
		return err
	}
	fmt.Fprintln(rt.out, render.SuccessStyle.Render("Posted."))
	snap := feed.Snapshot()
	if snap.Err != nil {
		return nil
	}
	opts := rt.renderOptions()
	opts.MaxLines = 2
	fmt.Fprintln(rt.out, render.Feed(snap.Items, nil, opts))
	return nil
}

type likeCmd struct {
	ID     int64 `arg:"" help:"Activity ID"`
	Unlike bool  `help:"Remove your like instead"`
}

func (c *likeCmd) Run(rt *runtime) error {
	a, found := rt.findActivity(c.ID)
	if !found {
		a.Favorited = c.Unlike
	}
	if a.Favorited != c.Unlike {
		fmt.Fprintln(rt.out, render.MetadataStyle.Render("Nothing to change."))
		return nil
	}

	like := rt.session.Likes(a)
	if err := like.Toggle(rt.ctx); err != nil {
		return err
	}
	like.Wait()
	snap := like.Snapshot()
	fmt.Fprintln(rt.out, render.Likers(snap.Likers, like.Summary()))
	return nil
}

type likersCmd struct {
	ID int64 `arg:"" help:"Activity ID"`
}

func (c *likersCmd) Run(rt *runtime) error {
	a, found := rt.findActivity(c.ID)
	like := rt.session.Likes(a)
	members := like.RefreshLikers(rt.ctx)

	summary := like.Summary()
	if !found {
		names := make([]string, 0, len(members))
		for _, m := range members {
			names = append(names, m.Name)
		}
		summary = hub.LikeSummary(names, false, len(members))
	}
	fmt.Fprintln(rt.out, render.Likers(members, summary))
	return nil
}

func messageText(rt *runtime, args []string) (string, error) {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text != "" {
		return text, nil
	}
	return rt.composer.Compose(rt.ctx)
}

func printThread(rt *runtime, st hub.ThreadState) error {
	fmt.Fprintln(rt.out, render.Thread(st.Replies, rt.renderOptions()))
	if st.Err != nil {
		return errors.Join(errors.New("replies unavailable"), st.Err)
	}
	return nil
}
