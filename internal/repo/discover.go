package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/gsync/internal/gitexec"
)

// Discover enumerates the repositories participating in a session: the
// superproject first, then one Repository per entry in its submodule
// manifest, in manifest order. A superproject without a manifest yields
// a single-element list.
func Discover(ctx context.Context, git gitexec.Runner, root string) ([]*Repository, error) {
	repos := []*Repository{New(root, "")}

	// Exit 1 from --get-regexp means no matches (or no manifest);
	// either way the superproject stands alone.
	out, err := git.Run(ctx, root, "config", "--file", ".gitmodules", "--get-regexp", `^submodule\..*\.path$`)
	if err != nil {
		if gitexec.ExitCode(err) == 1 {
			return repos, nil
		}
		return nil, fmt.Errorf("read submodule manifest: %w", err)
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Line format: "submodule.<name>.path <relative path>".
		_, rel, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed submodule manifest line %q", line)
		}
		repos = append(repos, New(filepath.Join(root, filepath.FromSlash(rel)), rel))
	}

	return repos, nil
}
