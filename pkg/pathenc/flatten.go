// Package pathenc implements the lossy path flattening used by assistant
// tools for their per-project directory names, and its best-effort inverse.
//
// Flattening replaces every path separator with a hyphen. Because hyphens
// that were already part of a segment name are not escaped, the encoding is
// ambiguous and no pure string algorithm can invert it. Reconstruction
// therefore consults the live filesystem as an oracle and caches the first
// successful resolution in a metadata sidecar.
package pathenc

import (
	"strings"
)

// Flatten encodes a real filesystem path into the directory-name-safe form
// the assistant tools generate. Pure, deterministic, one-way.
//
//	/home/jdoe/proj          → -home-jdoe-proj
//	C:\Users\jdoe\proj       → C--Users-jdoe-proj
//	/                        → -
//	""                       → ""
func Flatten(realPath string) string {
	if realPath == "" {
		return ""
	}

	s := strings.ReplaceAll(realPath, `\`, "-")
	s = strings.ReplaceAll(s, "/", "-")

	// A leading drive token keeps its letter; the colon flattens to a hyphen
	// so the result stays a legal directory name on every platform.
	if len(s) >= 2 && isDriveLetter(s[0]) && s[1] == ':' {
		s = s[:1] + "-" + s[2:]
	}

	return s
}

func isDriveLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
