package util

import "strings"

// MediaURL resolves a stored media path against the media origin. Absolute
// http(s) URLs are returned unchanged; an empty path stays empty.
func MediaURL(origin, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}
