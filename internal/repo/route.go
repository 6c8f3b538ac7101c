package repo

import "strings"

// Routes maps changed paths to the repository that owns them.
//
// Ownership is a longest-prefix match over the repositories' declared
// prefixes, so a submodule takes precedence over the superproject for
// paths inside it. Equal-length prefixes tie-break by registration
// order: candidates are scanned in order and only a strictly longer
// prefix displaces the current best.
type Routes struct {
	repos []*Repository
}

// NewRoutes builds a routing table over the given repositories in
// registration order.
func NewRoutes(repos []*Repository) *Routes {
	return &Routes{repos: repos}
}

// Match returns the repository owning the given path, relative to the
// superproject root. Paths are normalized to slash form before
// matching. Returns nil when no repository matches, which only happens
// with an empty table: the superproject's empty prefix matches any path.
func (t *Routes) Match(path string) *Repository {
	path = strings.ReplaceAll(path, "\\", "/")

	var best *Repository
	bestLen := -1
	for _, r := range t.repos {
		if len(r.Prefix) > bestLen && strings.HasPrefix(path, r.Prefix) {
			best = r
			bestLen = len(r.Prefix)
		}
	}
	return best
}

// Repos returns the table's repositories in registration order.
func (t *Routes) Repos() []*Repository {
	return t.repos
}
