// Package config loads reefhub settings from flags' defaults, the
// environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// Settings holds application-level configuration.
type Settings struct {
	BaseURL         string   `yaml:"base_url" kong:"help='Community site URL (https only)',default='https://community.example.org',env='REEFHUB_BASE_URL'"`
	TokenFile       string   `yaml:"token_file" kong:"help='File holding the bearer token',env='REEFHUB_TOKEN_FILE'"`
	PageSize        int      `yaml:"page_size" kong:"help='Activities per page',default='20',env='REEFHUB_PAGE_SIZE'"`
	MemberChunkSize int      `yaml:"member_chunk_size" kong:"help='Member IDs per lookup request',default='20',env='REEFHUB_MEMBER_CHUNK_SIZE'"`
	TimeoutSeconds  int      `yaml:"timeout_seconds" kong:"help='Per-request timeout in seconds',default='15',env='REEFHUB_TIMEOUT_SECONDS'"`
	ReplyStrategies []string `yaml:"reply_strategies" kong:"help='Reply endpoint preference (replies, activity, vendor)',default='replies,activity,vendor',env='REEFHUB_REPLY_STRATEGIES'"`
	ActivityType    string   `yaml:"activity_type" kong:"help='Restrict the feed to one activity type',env='REEFHUB_ACTIVITY_TYPE'"`
	MemberCache     string   `yaml:"member_cache" kong:"help='SQLite member cache path (empty disables)',env='REEFHUB_MEMBER_CACHE'"`
	ViewerID        int64    `yaml:"viewer_id" kong:"help='Member ID of the signed-in user (0 asks the server)',default='0',env='REEFHUB_VIEWER_ID'"`
	LogLevel        string   `yaml:"log_level" kong:"help='Log level (debug, info, warn, error)',default='info',env='REEFHUB_LOG_LEVEL'"`
}

// Timeout returns the per-request timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DefaultPath returns ~/.config/reefhub/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "reefhub", "config.yaml"), nil
}

// Load resolves settings. path may be empty to use DefaultPath; a missing
// file is not an error.
func Load(path string) (Settings, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Settings{}, err
		}
		path = p
	}

	var options []kong.Option
	if _, err := os.Stat(path); err == nil {
		options = append(options, kong.Configuration(yamlKongLoader, path))
	}

	var s Settings
	parser, err := kong.New(&s, options...)
	if err != nil {
		return Settings{}, err
	}
	if _, err := parser.Parse([]string{}); err != nil {
		return Settings{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := s.normalize(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) normalize() error {
	parsed, err := url.Parse(strings.TrimSpace(s.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("invalid base_url: must be an absolute URL")
	}
	if parsed.Scheme != "https" {
		return errors.New("invalid base_url: only https is allowed")
	}
	s.BaseURL = strings.TrimRight(parsed.String(), "/")

	if s.TokenFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		s.TokenFile = filepath.Join(home, ".config", "reefhub", "token")
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("invalid page_size %d", s.PageSize)
	}
	if s.MemberChunkSize <= 0 {
		return fmt.Errorf("invalid member_chunk_size %d", s.MemberChunkSize)
	}
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout_seconds %d", s.TimeoutSeconds)
	}

	strategies := make([]string, 0, len(s.ReplyStrategies))
	for _, raw := range s.ReplyStrategies {
		for item := range strings.FieldsSeq(strings.ReplaceAll(raw, ",", " ")) {
			strategies = append(strategies, strings.ToLower(item))
		}
	}
	s.ReplyStrategies = strategies
	s.ActivityType = strings.TrimSpace(s.ActivityType)
	return nil
}

func yamlKongLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		for _, name := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
			if v, ok := values[name]; ok {
				return v, nil
			}
		}
		return nil, nil
	}
	return f, nil
}

// NewLogger builds a text logger on stderr at the named level.
func NewLogger(level string) (*slog.Logger, error) {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
