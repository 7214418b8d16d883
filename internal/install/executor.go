package install

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Executor runs one install command inside a working copy.
type Executor interface {
	Run(ctx context.Context, dir, command string) error
}

// SimulateExecutor records nothing and fails nothing: every command is
// treated as if it completed. This is the default so that onboarding never
// executes repository-controlled commands unless explicitly enabled.
type SimulateExecutor struct{}

func (SimulateExecutor) Run(_ context.Context, dir, command string) error {
	slog.Debug("install: simulated", "dir", dir, "command", command)
	return nil
}

// commandTimeout bounds a single install command.
const commandTimeout = 10 * time.Minute

// ShellExecutor actually runs commands through the shell. Opt-in via the
// install.execute config flag.
type ShellExecutor struct{}

func (ShellExecutor) Run(ctx context.Context, dir, command string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if len(out) > 512 {
			out = out[len(out)-512:]
		}
		return fmt.Errorf("running %q: %w: %s", command, err, out)
	}
	slog.Debug("install: executed", "dir", dir, "command", command)
	return nil
}
