package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrCancelled reports that the user left the editor without writing anything.
var ErrCancelled = errors.New("composition cancelled")

// EnvEditor composes text in $EDITOR (fallback: "vi").
type EnvEditor struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewEnvEditor creates an EnvEditor attached to the process terminal.
func NewEnvEditor() *EnvEditor {
	return &EnvEditor{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
}

const instructionComment = `<!--
reefhub: write your post below.

- SAVE and EXIT to publish (e.g., :wq in vi).
- Leaving the file empty cancels.
-->

`

// Cmd prepares the editor command and the temp file it edits.
// The file is seeded with an instruction comment followed by content.
func (e *EnvEditor) Cmd(ctx context.Context, content string) (*exec.Cmd, string, error) {
	fields := strings.Fields(os.Getenv("EDITOR"))
	if len(fields) == 0 {
		fields = []string{"vi"}
	}

	tmpFile, err := os.CreateTemp("", "reefhub-*.md")
	if err != nil {
		return nil, "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(instructionComment + content); err != nil {
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("writing to temp file: %w", err)
	}

	args := append(fields[1:], "+", tmpPath)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.stdin, e.stdout, e.stderr
	return cmd, tmpPath, nil
}

// ReadContent reads the temp file, strips the instruction comment, trims
// whitespace and removes the file.
func (e *EnvEditor) ReadContent(path string) (string, error) {
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}

	content := string(data)
	if idx := strings.Index(content, "-->"); idx != -1 {
		content = content[idx+3:]
	}
	return strings.TrimSpace(content), nil
}

// Compose runs the editor and returns what the user wrote.
func (e *EnvEditor) Compose(ctx context.Context) (string, error) {
	cmd, path, err := e.Cmd(ctx, "")
	if err != nil {
		return "", err
	}
	if err := cmd.Run(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("running editor: %w", err)
	}
	content, err := e.ReadContent(path)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", ErrCancelled
	}
	return content, nil
}
