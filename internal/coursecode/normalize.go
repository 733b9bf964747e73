// Package coursecode canonicalizes user-typed course codes.
package coursecode

import (
	"regexp"
	"strings"
)

var separatorRuns = regexp.MustCompile(`[\s_-]+`)

// Normalize maps a raw course code to its canonical form: trimmed, upper-case,
// separator-free and restricted to [A-Z0-9]. It is total and idempotent, so
// "cs 101", "CS-101" and "cs_101" all become "CS101".
func Normalize(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	code = separatorRuns.ReplaceAllString(code, "")
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, code)
}
