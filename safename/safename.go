// Package safename derives filesystem-safe artifact names from page titles.
//
// Sanitized names contain no characters reserved on Windows, NTFS or POSIX
// filesystems, never exceed the configured length, and are never empty.
package safename

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Fallback is used when sanitisation leaves nothing of the input.
const Fallback = "untitled"

// suffixReserve is how much of the length budget Unique gives back to the
// stem so a numeric collision suffix always fits.
const suffixReserve = 10

var (
	reservedRe   = regexp.MustCompile(`[<>:"/\\|?*]`)
	disallowedRe = regexp.MustCompile(`[^\w\s.-]`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
)

// Sanitize converts an arbitrary title into a safe filename stem of at most
// max runes. Reserved characters become underscores, anything outside
// [\w\s.-] is dropped, whitespace runs collapse to a single space, and
// truncation prefers the last word boundary. Empty results fall back to
// Fallback.
func Sanitize(title string, max int) string {
	if max <= 0 {
		max = len(Fallback)
	}

	safe := reservedRe.ReplaceAllString(title, "_")
	safe = disallowedRe.ReplaceAllString(safe, "")
	safe = spaceRunRe.ReplaceAllString(safe, " ")
	safe = strings.TrimSpace(safe)

	if runes := []rune(safe); len(runes) > max {
		safe = string(runes[:max])
		// Cut at the last space so names don't end mid-word.
		if i := strings.LastIndex(safe, " "); i > 0 {
			safe = safe[:i]
		}
		safe = strings.TrimSpace(safe)
	}

	if safe == "" {
		return Fallback
	}
	return safe
}

// Unique returns a path under dir for the given title that does not collide
// with an existing file. The first candidate is <stem><ext>; collisions get
// numeric suffixes (<shorter stem>_1<ext>, _2, …) with the stem re-truncated
// so the suffix stays inside the length budget.
func Unique(dir, title string, max int, ext string) string {
	stem := Sanitize(title, max)
	path := filepath.Join(dir, stem+ext)

	for n := 1; exists(path); n++ {
		short := Sanitize(title, max-suffixReserve)
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", short, n, ext))
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
