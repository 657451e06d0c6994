package checker

import (
	"fmt"
	"strings"
)

const (
	rubyQuotesMessage     = "Prefer double-quoted strings unless you need single quotes to avoid extra backslashes for escaping."
	rubyWhitespaceMessage = "Trailing whitespace detected."
)

func NewRuby() *LineChecker {
	return NewLineChecker("ruby",
		TrailingWhitespaceRule{Message: rubyWhitespaceMessage},
		TabIndentationRule{Message: "Tab detected."},
		LineLengthRule{Max: 80, Message: func(length, max int) string {
			return fmt.Sprintf("Line is too long. [%d/%d]", length, max)
		}},
		SingleQuoteRule{},
	)
}

// SingleQuoteRule flags single-quoted string literals that hold neither a
// double quote nor a backslash.
type SingleQuoteRule struct{}

func (SingleQuoteRule) ID() string          { return "string-literals" }
func (SingleQuoteRule) Description() string { return "Prefers double-quoted string literals." }

func (SingleQuoteRule) Check(line string) (string, bool) {
	inDouble := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case inDouble:
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inDouble = false
			}
		case ch == '#':
			return "", false
		case ch == '"':
			inDouble = true
		case ch == '\'':
			end := closingQuote(line, i+1, '\'')
			if end < 0 {
				return "", false
			}
			if !strings.ContainsAny(line[i+1:end], "\"\\") {
				return rubyQuotesMessage, true
			}
			i = end
		}
	}
	return "", false
}

func closingQuote(line string, from int, quote byte) int {
	for i := from; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}
