package api

import (
	"strings"
	"unicode/utf8"
)

// TrimStrToRect cuts s to at most maxHeight lines of at most maxWidth bytes,
// marking every cut with "[...]". A cut never splits a multi-byte character.
func TrimStrToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
		lines = append(lines, "[...]")
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if len(line) > maxWidth {
			cut := maxWidth
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			b.WriteString(line[:cut])
			b.WriteString("[...]")
		} else {
			b.WriteString(line)
		}
	}
	return b.String()
}
