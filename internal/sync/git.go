package sync

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const gitCommitMessage = "lexigraph: update link export"

// GitDestination commits the export to a file in a local clone and pushes
// the branch to origin. Unchanged exports produce no commit.
type GitDestination struct {
	dir    string
	path   string
	branch string
}

// NewGitDestination writes to path (slash-separated, relative to the clone
// at dir) on branch.
func NewGitDestination(dir, path, branch string) *GitDestination {
	return &GitDestination{dir: dir, path: path, branch: branch}
}

func (d *GitDestination) Name() string { return "git:" + d.dir }

func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	git := func(args ...string) error {
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = d.dir
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
		}
		return nil
	}

	if err := git("checkout", d.branch); err != nil {
		return err
	}
	// Fails harmlessly when origin does not have the branch yet.
	_ = git("pull", "--ff-only", "origin", d.branch)

	target := filepath.Join(d.dir, filepath.FromSlash(d.path))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return err
	}
	if err := git("add", "--", d.path); err != nil {
		return err
	}
	if git("diff", "--cached", "--quiet") == nil {
		return nil
	}
	if err := git("commit", "-m", gitCommitMessage); err != nil {
		return err
	}
	return git("push", "origin", d.branch)
}
