package cef

import "strings"

// HeaderFields is the number of positional fields before the extension
// section.
const HeaderFields = 7

const versionPrefix = "CEF:"

// Header is the fixed part of a CEF line as it appeared on the wire. Text
// fields are not unescaped.
type Header struct {
	Version       int
	Vendor        string
	Product       string
	DeviceVersion string
	SignatureID   string
	Name          string
	Severity      string

	// Fields is how many of the seven positional fields were present.
	// Fields after that count are absent rather than empty.
	Fields int
}

// Complete reports whether all seven fields were present.
func (h Header) Complete() bool {
	return h.Fields == HeaderFields
}

// Has reports whether the field at position i (0 is the version) was
// present.
func (h Header) Has(i int) bool {
	return i >= 0 && i < h.Fields
}

// SplitHeader splits line on its first seven unescaped pipes. The result has
// one element per field found plus, when all seven pipes exist, the
// remainder as an eighth element. A pipe directly after a backslash is not a
// separator.
func SplitHeader(line string) []string {
	parts := make([]string, 0, HeaderFields+1)
	start := 0
	for i := 0; i < len(line) && len(parts) < HeaderFields; i++ {
		if line[i] == '|' && (i == 0 || line[i-1] != '\\') {
			parts = append(parts, line[start:i])
			start = i + 1
		}
	}
	return append(parts, line[start:])
}

// headerLine is the result of the header stage.
type headerLine struct {
	header    Header
	syslog    string
	hasSyslog bool
	message   *string
}

func parseHeader(line string) headerLine {
	line = stripQuotes(line)
	parts := SplitHeader(line)

	var out headerLine
	out.header.Fields = min(len(parts), HeaderFields)

	version := parts[0]
	if idx := strings.LastIndexByte(version, ' '); idx >= 0 {
		out.syslog = version[:idx]
		out.hasSyslog = true
		version = version[idx+1:]
	}
	out.header.Version = leadingInt(strings.TrimPrefix(version, versionPrefix))

	fields := []*string{
		&out.header.Vendor,
		&out.header.Product,
		&out.header.DeviceVersion,
		&out.header.SignatureID,
		&out.header.Name,
		&out.header.Severity,
	}
	for i, dst := range fields {
		if i+1 < out.header.Fields {
			*dst = parts[i+1]
		}
	}

	if len(parts) > HeaderFields {
		msg := parts[HeaderFields]
		out.message = &msg
	}
	return out
}

// stripQuotes removes one leading and one trailing byte when the line starts
// with a double quote. The trailing byte is not checked.
func stripQuotes(line string) string {
	if !strings.HasPrefix(line, `"`) {
		return line
	}
	if len(line) < 2 {
		return ""
	}
	return line[1 : len(line)-1]
}

// leadingInt parses an optionally signed run of leading digits after any
// leading whitespace. Anything else yields 0.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<30 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
