// Package slug canonicalizes assessment URLs into comparable name tokens.
//
// A slug is the last path segment of a URL, lower-cased and reduced to
// [a-z0-9-] with runs of hyphens collapsed. Catalog URLs and ground-truth
// URLs disagree on hosts, prefixes and trailing slashes, so evaluation
// compares slugs rather than raw URLs.
package slug

import (
	"strings"
)

// Normalize returns the canonical slug for raw. It returns an empty string
// when raw has no usable path segment; callers treat that as unmatchable.
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s, _, _ = strings.Cut(s, "?")
	s, _, _ = strings.Cut(s, "#")

	s = unescape(s)
	s = strings.Trim(s, "/")
	if s == "" {
		return ""
	}

	var last string
	for _, part := range strings.Split(s, "/") {
		if part != "" {
			last = part
		}
	}

	return clean(strings.ToLower(last))
}

// Match reports whether a returned slug satisfies an expected slug under the
// relaxed rule: equal, either one a suffix of the other, or either one a
// substring of the other. Empty slugs never match, and "java" matches
// "javascript".
func Match(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return got == expected ||
		strings.HasSuffix(got, expected) ||
		strings.HasSuffix(expected, got) ||
		strings.Contains(expected, got) ||
		strings.Contains(got, expected)
}

// clean keeps [a-z0-9-], collapses hyphen runs and trims edge hyphens.
func clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevHyphen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
			prevHyphen = false
		case c == '-':
			if !prevHyphen {
				b.WriteByte(c)
			}
			prevHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// unescape decodes %XX sequences and leaves malformed escapes untouched.
// Unlike url.PathUnescape it never fails, and '+' is kept as is.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
