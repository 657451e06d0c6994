package checker

import "regexp"

func NewCoffeeScript() *LineChecker {
	return NewLineChecker("coffeescript",
		TrailingWhitespaceRule{Message: "Line contains trailing whitespace"},
		TabIndentationRule{Message: "Line contains tab indentation"},
		LineLengthRule{Max: 80, Message: func(int, int) string {
			return "Line exceeds maximum allowed length"
		}},
		PatternRule{
			RuleID:  "no-trailing-semicolons",
			Desc:    "Flags statements terminated by a semicolon.",
			Pattern: regexp.MustCompile(`;\s*$`),
			Comment: "#",
			Message: "Line contains a trailing semicolon",
		},
	)
}
