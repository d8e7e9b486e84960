// Package claudedir locates Claude Code state on disk: it encodes workspace
// paths into the CLI's project directory names, enumerates projects and
// session logs, and loads them through the parser.
//
// The encoding is lossy (underscores collide with hyphens), so decoded names
// are display-only; every functional lookup starts from a caller-supplied
// absolute path.
package claudedir

import (
	"path/filepath"
	"strings"
)

// EncodePath maps an absolute workspace path to the CLI's project directory
// name. Path separators become '-', a separator followed by a dot becomes
// "--" (the dot itself is dropped), and underscores collapse to '-'.
//
//	/Users/name/project    → -Users-name-project
//	/Users/name/.hidden    → -Users-name--hidden
//	/Users/name/with_under → -Users-name-with-under
func EncodePath(path string) string {
	var b strings.Builder
	runes := []rune(path)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '/', '\\':
			b.WriteByte('-')
			if i+1 < len(runes) && runes[i+1] == '.' {
				b.WriteByte('-')
				i++
			}
		case '_':
			b.WriteByte('-')
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// DecodePath reverses the encoding on a best-effort basis for display. It
// cannot distinguish hyphens that were separators, underscores, or literal
// hyphens, so the result must never drive a filesystem lookup.
func DecodePath(encoded string) string {
	return strings.ReplaceAll(encoded, "-", "/")
}

// ProjectName returns the last component of a workspace path.
func ProjectName(path string) string {
	return filepath.Base(path)
}
