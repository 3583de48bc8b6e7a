package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoToken reports that no access token is available for the session.
var ErrNoToken = errors.New("no access token")

// TokenProvider supplies an access token for API authentication.
type TokenProvider interface {
	AccessToken() (string, error)
}

// FileTokenProvider reads a bearer token from a file on disk.
// Token persistence itself is owned by whatever writes the file.
type FileTokenProvider struct {
	path string
}

// NewFileTokenProvider creates a TokenProvider that reads from the given file path.
func NewFileTokenProvider(path string) *FileTokenProvider {
	return &FileTokenProvider{path: path}
}

// AccessToken reads and returns the token, trimming whitespace.
func (f *FileTokenProvider) AccessToken() (string, error) {
	if strings.TrimSpace(f.path) == "" {
		return "", ErrNoToken
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoToken, f.path)
		}
		return "", fmt.Errorf("reading token from %s: %w", f.path, err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: token file %s is empty", ErrNoToken, f.path)
	}

	return token, nil
}

// StaticToken is a fixed token, typically injected from the environment.
// The empty value means "no session".
type StaticToken string

// AccessToken returns the token or ErrNoToken when empty.
func (s StaticToken) AccessToken() (string, error) {
	tok := strings.TrimSpace(string(s))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}
