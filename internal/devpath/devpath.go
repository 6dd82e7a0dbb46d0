// Package devpath handles logical device paths. A logical path names a
// node on a device as "<device name>/<storage>/<dir>/.../<name>" with "/"
// as the separator regardless of platform; backend-native separators
// never appear at this level.
package devpath

import "strings"

// Separator is the logical path separator used at the public boundary.
const Separator = "/"

// Normalize converts backend-native separators to the logical separator
// and trims a trailing one.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, "\\", Separator)
	if len(path) > 1 {
		path = strings.TrimSuffix(path, Separator)
	}
	return path
}

// Segments splits a logical path into its non-empty segments.
func Segments(path string) []string {
	var segs []string
	for _, seg := range strings.Split(Normalize(path), Separator) {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Join joins path segments with the logical separator, skipping empty
// parts.
func Join(parts ...string) string {
	var segs []string
	for _, part := range parts {
		if part != "" {
			segs = append(segs, part)
		}
	}
	return strings.Join(segs, Separator)
}

// Cut splits a logical path into its first segment and the remainder.
func Cut(path string) (first, rest string) {
	segs := Segments(path)
	if len(segs) == 0 {
		return "", ""
	}
	return segs[0], strings.Join(segs[1:], Separator)
}

// Base returns the last segment of a logical path, or "" for an empty
// path.
func Base(path string) string {
	segs := Segments(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}
