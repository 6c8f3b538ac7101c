package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional per-project configuration file, looked up
// at the superproject root.
const ProjectFile = ".gsync.yml"

// defaultIgnore lists directory names never watched. .git must stay in
// this set: commit cycles mutate it and watching it would re-trigger
// the watcher on every commit.
var defaultIgnore = []string{".git", "node_modules", "vendor", ".direnv"}

// Project holds the tunables read from .gsync.yml. The zero value means
// "use defaults".
type Project struct {
	// Master overrides the working branch name.
	Master string `yaml:"master"`

	// DebounceMS overrides the pending-retry delay, in milliseconds.
	DebounceMS int `yaml:"debounce_ms"`

	// Ignore lists additional directory names to exclude from
	// watching, on top of the built-in set.
	Ignore []string `yaml:"ignore"`
}

// LoadProject reads .gsync.yml from the given root. A missing file is
// not an error and yields the zero Project; a malformed file is.
func LoadProject(root string) (Project, error) {
	var p Project

	data, err := os.ReadFile(filepath.Join(root, ProjectFile))
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read %s: %w", ProjectFile, err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", ProjectFile, err)
	}
	if p.DebounceMS < 0 {
		return p, fmt.Errorf("parse %s: debounce_ms must not be negative", ProjectFile)
	}
	return p, nil
}

func (p Project) debounce() time.Duration {
	if p.DebounceMS > 0 {
		return time.Duration(p.DebounceMS) * time.Millisecond
	}
	return DefaultDebounce
}

func (p Project) ignore() []string {
	out := make([]string, 0, len(defaultIgnore)+len(p.Ignore))
	out = append(out, defaultIgnore...)
	out = append(out, p.Ignore...)
	return out
}
