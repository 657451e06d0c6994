package checker

import (
	"regexp"
	"strings"
)

func NewJavaScript() *LineChecker {
	return NewLineChecker("javascript",
		TrailingWhitespaceRule{Message: "Trailing whitespace."},
		LineLengthRule{Max: 80, Message: func(int, int) string {
			return "Line is too long."
		}},
		EqualityRule{},
		PatternRule{
			RuleID:  "debugger",
			Desc:    "Flags debugger statements left in code.",
			Pattern: regexp.MustCompile(`\bdebugger\b`),
			Comment: "//",
			Message: "Forgotten 'debugger' statement?",
		},
	)
}

// EqualityRule flags loose equality operators.
type EqualityRule struct{}

func (EqualityRule) ID() string          { return "eqeqeq" }
func (EqualityRule) Description() string { return "Requires === and !== over == and !=." }

func (EqualityRule) Check(line string) (string, bool) {
	code := codeOnly(line, "//")
	for i := 0; i+1 < len(code); i++ {
		if code[i+1] != '=' {
			continue
		}
		op := code[i : i+2]
		if op != "==" && op != "!=" {
			continue
		}
		if i+2 < len(code) && code[i+2] == '=' {
			i += 2
			continue
		}
		if op == "==" && i > 0 && strings.ContainsRune("=!<>", rune(code[i-1])) {
			continue
		}
		return "Expected '" + op + "=' and instead saw '" + op + "'.", true
	}
	return "", false
}
