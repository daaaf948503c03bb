package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

// Strategy is a single normalization step; Pipeline chains them.
type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepWordChars = regexp.MustCompile(`[^0-9\p{L} .'\-]+`)
	reMultiSpace    = regexp.MustCompile(`\s+`)
	reRegionChars   = regexp.MustCompile(`[^0-9a-z\-]+`)
	reMultiDash     = regexp.MustCompile(`-+`)
)

func trimAndCollapse(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

// SanitizeName normalizes operator display names: collapsed whitespace,
// punctuation stripped down to word characters.
func SanitizeName(input string) string {
	p := Pipeline{
		trimAndCollapse,
		func(s string) string { return reKeepWordChars.ReplaceAllString(s, "") },
		func(s string) string { return reMultiSpace.ReplaceAllString(s, " ") },
		strings.TrimSpace,
	}
	return p.Apply(input)
}

// SanitizeEmail lowercases and trims; structural validity is the
// validator's job, not the sanitizer's.
func SanitizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// SanitizeRegion normalizes region identifiers to lowercase slugs.
func SanitizeRegion(input string) string {
	p := Pipeline{
		func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
		func(s string) string { return strings.ReplaceAll(s, " ", "-") },
		func(s string) string { return reRegionChars.ReplaceAllString(s, "") },
		func(s string) string { return reMultiDash.ReplaceAllString(s, "-") },
		func(s string) string { return strings.Trim(s, "-") },
	}
	return p.Apply(input)
}

// SanitizeSlice applies a strategy and removes empties and duplicates
// while preserving first-seen order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
