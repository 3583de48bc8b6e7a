package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI is the reefhub command line.
type CLI struct {
	Config  string           `help:"Config file (default ~/.config/reefhub/config.yaml)" type:"path" env:"REEFHUB_CONFIG"`
	Version kong.VersionFlag `short:"v" help:"Print version information and exit"`

	Feed   feedCmd   `cmd:"" default:"withargs" help:"Show the activity feed"`
	Probe  probeCmd  `cmd:"" help:"Show which route variants the site advertises"`
	Thread threadCmd `cmd:"" help:"Show the replies to an activity"`
	Reply  replyCmd  `cmd:"" help:"Reply to an activity"`
	Post   postCmd   `cmd:"" help:"Publish a status update"`
	Like   likeCmd   `cmd:"" help:"Like or unlike an activity"`
	Likers likersCmd `cmd:"" help:"List who liked an activity"`
}

func newParser(cli *CLI) (*kong.Kong, error) {
	v, c, d := resolvedRuntimeVersionInfo(version, commit, date)
	return kong.New(cli,
		kong.Name("reefhub"),
		kong.Description("Follow and take part in a BuddyPress community from the terminal."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("reefhub %s\ncommit: %s\nbuilt: %s", v, c, d)},
	)
}

func resolveVersionInfo(v, c, d, moduleVersion string, settings map[string]string) (string, string, string) {
	if v == "dev" {
		mv := strings.TrimSpace(moduleVersion)
		if mv != "" && mv != "(devel)" {
			v = mv
		}
	}
	if c == "none" {
		rev := strings.TrimSpace(settings["vcs.revision"])
		if rev != "" {
			if len(rev) > 12 {
				rev = rev[:12]
			}
			c = rev
		}
	}
	if d == "unknown" {
		t := strings.TrimSpace(settings["vcs.time"])
		if t != "" {
			d = t
		}
	}
	return v, c, d
}

func buildSettingsMap(in []debug.BuildSetting) map[string]string {
	out := make(map[string]string, len(in))
	for _, s := range in {
		out[s.Key] = s.Value
	}
	return out
}

func resolvedRuntimeVersionInfo(v, c, d string) (string, string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return v, c, d
	}
	return resolveVersionInfo(v, c, d, info.Main.Version, buildSettingsMap(info.Settings))
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reefhub: %v\n", err)
		os.Exit(1)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 1. Load settings and wire services.
	rt, err := newRuntime(ctx, cli.Config, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reefhub: %v\n", err)
		os.Exit(1)
	}

	// 2. Run the selected command.
	err = kctx.Run(rt)
	rt.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errorLine(err))
		os.Exit(1)
	}
}
