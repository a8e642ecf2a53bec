package textutils

import (
	"strings"
)

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Prepends indent nIndent times to each line in s. Lines containing only
// whitespace become empty.
func IndentString(s string, indent string, nIndent int) string {
	prefix := strings.Repeat(indent, nIndent)

	var res strings.Builder
	res.Grow(len(s) + (strings.Count(s, "\n")+1)*len(prefix))
	for line := range strings.Lines(s) {
		if isBlank(line) {
			if strings.HasSuffix(line, "\n") {
				res.WriteByte('\n')
			}
			continue
		}
		res.WriteString(prefix)
		res.WriteString(line)
	}
	return res.String()
}

// PrefixLines prepends prefix to each line in s. Trailing whitespace is
// trimmed from the result lines, so empty lines get a bare prefix without
// trailing spaces.
func PrefixLines(s string, prefix string) string {
	var res strings.Builder
	for line := range strings.Lines(s) {
		res.WriteString(strings.TrimRight(prefix+strings.TrimRight(line, "\r\n"), " \t"))
		res.WriteByte('\n')
	}
	return res.String()
}

// EnsureNewline makes sure a non-empty s ends with "\n". Other line
// endings are kept.
func EnsureNewline(s string) string {
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}
