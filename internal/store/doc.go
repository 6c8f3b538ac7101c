// Package store persists gsync state between runs in a SQLite database
// kept inside the superproject's .git directory.
//
// Two kinds of state live here:
//
// Configuration: a key-value namespace scoped per repository (the scope
// is the repository's path prefix, empty for the superproject). It
// remembers the mirror branch and remote URI so subsequent runs can
// omit them. Values are plain strings; booleans round-trip through the
// literal strings "true" and "false".
//
// History: one row per sync session and one per commit cycle, for the
// "gsync history" command. History is informational - the engine never
// reads it back to make decisions.
package store
