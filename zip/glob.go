package zip

import "github.com/bmatcuk/doublestar/v4"

// Glob returns every entry name (subject to the same AppleDouble-sidecar
// filtering as Names) matching a doublestar pattern, adapted from
// elliotnunn-BeHierarchic/path.go's use of doublestar.MatchUnvalidated for
// its own glob walk — simplified here to a direct scan over the archive's
// already-indexed name list rather than that file's concurrent directory
// walk, since a zip central directory is already fully in memory.
func (r *Reader) Glob(pattern string) []string {
	var matches []string
	for _, name := range r.Names() {
		if doublestar.MatchUnvalidated(pattern, name) {
			matches = append(matches, name)
		}
	}
	return matches
}
