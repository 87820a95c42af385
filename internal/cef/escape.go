package cef

import (
	"math"
	"strconv"
	"strings"
)

// SanitizeHeaderField escapes a value for use as one of the seven header
// fields. Backslash and pipe are prefixed with a backslash, CR and LF become
// a single space. A backslash that already starts a \\ or \| pair is copied
// through with its partner, so sanitizing twice is the same as sanitizing
// once.
func SanitizeHeaderField(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '|') {
				b.WriteByte('\\')
				b.WriteByte(s[i+1])
				i++
				continue
			}
			b.WriteString(`\\`)
		case '|':
			b.WriteString(`\|`)
		case '\n', '\r':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SanitizeExtensionKey drops every byte that is not an ASCII letter or digit.
// The result is not reversible.
func SanitizeExtensionKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SanitizeExtensionValue escapes backslash and equals with a backslash and
// turns CR or LF into the two character sequence \n.
func SanitizeExtensionValue(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '=':
			b.WriteString(`\=`)
		case '\n', '\r':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// UnescapeHeaderField reverses SanitizeHeaderField for \\ and \|. Newlines
// collapsed to spaces cannot be recovered.
func UnescapeHeaderField(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '|') {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeExtensionValue reverses SanitizeExtensionValue. \n and \r both
// decode to a line feed.
func UnescapeExtensionValue(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '\\', '=':
			b.WriteByte(s[i+1])
			i++
		case 'n', 'r':
			b.WriteByte('\n')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsValidSeverity reports whether s is an integer, or a float whose canonical
// string form is exactly s, with an integer part strictly between 0 and 10.
func IsValidSeverity(s string) bool {
	whole, ok := severityWhole(s)
	return ok && whole > 0 && whole < 10
}

// NormalizeSeverity trims s, replaces it with fallback when it is not a valid
// severity, and returns the integer string form. ok is false when the
// fallback was used.
func NormalizeSeverity(s, fallback string) (sev string, ok bool) {
	sev = strings.TrimSpace(s)
	ok = IsValidSeverity(sev)
	if !ok {
		sev = fallback
	}
	if whole, parsed := severityWhole(sev); parsed {
		return strconv.Itoa(whole), ok
	}
	return sev, ok
}

// severityWhole parses s as an integer or a float that round-trips through
// its canonical form and returns the integer part.
func severityWhole(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil && strconv.Itoa(n) == s {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) >= math.MaxInt32 || canonicalFloat(f) != s {
		return 0, false
	}
	return int(f), true
}

// canonicalFloat formats f with the shortest representation and always keeps
// a fractional part, so 5 formats as "5.0".
func canonicalFloat(f float64) string {
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}
