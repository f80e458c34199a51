package filesystem

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// ResolvePath turns a file:// URI into a local path, decoding percent
// escapes when they are well formed. Anything else is returned as given.
func ResolvePath(uri string) string {
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return uri
	}
	if decoded, err := url.PathUnescape(rest); err == nil {
		return decoded
	}
	return rest
}

// isHidden reports whether a path segment other than "." or ".." is a
// dotfile.
func isHidden(path string) bool {
	return slices.ContainsFunc(strings.Split(filepath.ToSlash(path), "/"), func(seg string) bool {
		return len(seg) > 1 && seg[0] == '.' && seg != ".."
	})
}
