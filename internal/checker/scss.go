package checker

import (
	"regexp"
	"strings"
)

func NewSCSS() *LineChecker {
	return NewLineChecker("scss",
		TrailingWhitespaceRule{Message: "Line contains trailing whitespace"},
		TabIndentationRule{Message: "Line should be indented with spaces, not tabs"},
		HexColorRule{},
		PatternRule{
			RuleID:  "important-rule",
			Desc:    "Flags !important declarations.",
			Pattern: regexp.MustCompile(`!\s*important\b`),
			Comment: "//",
			Message: "!important should not be used",
		},
	)
}

var hexColor = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)

// HexColorRule requires lower-case hexadecimal colors.
type HexColorRule struct{}

func (HexColorRule) ID() string          { return "hex-notation" }
func (HexColorRule) Description() string { return "Requires lower-case hexadecimal colors." }

func (HexColorRule) Check(line string) (string, bool) {
	for _, color := range hexColor.FindAllString(codeOnly(line, "//"), -1) {
		if lower := strings.ToLower(color); lower != color {
			return "Color `" + color + "` should be written as `" + lower + "`", true
		}
	}
	return "", false
}
