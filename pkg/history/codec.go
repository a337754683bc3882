package history

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// EntrySize returns the number of bytes text occupies in a history file once
// escaped and newline terminated. Newlines and backslashes cost two bytes each.
func EntrySize(text string) int {
	size := len(text) + 1
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' || text[i] == '\\' {
			size++
		}
	}
	return size
}

// Escape converts text into a single history file line
func Escape(text string) string {
	if !strings.ContainsAny(text, "\n\\") {
		return text
	}

	var b strings.Builder
	b.Grow(EntrySize(text) - 1)
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape decodes a history file line and returns the entry text together with
// its EntrySize. Unknown escapes and a trailing backslash decode literally, so
// the only failure is a line that is not valid UTF-8.
func Unescape(line string) (string, int, error) {
	if !utf8.ValidString(line) {
		return "", 0, fmt.Errorf("%w: line is not valid UTF-8", ErrInvalidContent)
	}

	if strings.IndexByte(line, '\\') < 0 {
		return line, len(line) + 1, nil
	}

	var b strings.Builder
	b.Grow(len(line))
	size := 1
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			switch line[i+1] {
			case 'n':
				c = '\n'
				i++
			case '\\':
				i++
			}
		}
		b.WriteByte(c)
		size++
		if c == '\n' || c == '\\' {
			size++
		}
	}
	return b.String(), size, nil
}
