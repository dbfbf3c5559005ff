// file: internals/helpers/level.go
package helper

import (
	"strings"
)

// Known canonical level-tags. The school runs Form 1..Form 5; anything else
// is treated as unknown and skipped by the expansion engine.
var knownLevels = map[string]string{
	"form 1": "Form 1",
	"form 2": "Form 2",
	"form 3": "Form 3",
	"form 4": "Form 4",
	"form 5": "Form 5",
	"1":      "Form 1",
	"2":      "Form 2",
	"3":      "Form 3",
	"4":      "Form 4",
	"5":      "Form 5",
}

// CanonicalLevel normalizes a stored level-tag: "3", "form 3", "Form  3" and
// "FORM 3" all canonicalize to "Form 3". Returns "" when the tag is unknown.
// Callers must apply this at write time and on every join key.
func CanonicalLevel(tag string) string {
	s := strings.ToLower(strings.TrimSpace(tag))
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ") // collapse inner whitespace
	if c, ok := knownLevels[s]; ok {
		return c
	}
	// "form3" without a space
	if strings.HasPrefix(s, "form") {
		if c, ok := knownLevels[strings.TrimSpace("form "+strings.TrimSpace(strings.TrimPrefix(s, "form")))]; ok {
			return c
		}
	}
	return ""
}

// SameLevel reports whether two level-tags canonicalize to the same form.
func SameLevel(a, b string) bool {
	ca := CanonicalLevel(a)
	return ca != "" && ca == CanonicalLevel(b)
}

// AllLevels returns the canonical forms in order.
func AllLevels() []string {
	return []string{"Form 1", "Form 2", "Form 3", "Form 4", "Form 5"}
}
