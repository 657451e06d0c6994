package checker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// LineRule inspects a single source line.
type LineRule interface {
	ID() string
	Description() string
	Check(line string) (string, bool)
}

// LineChecker runs a fixed list of line rules over every line of a file.
// Findings come out ordered by line, then by rule order.
type LineChecker struct {
	language string
	rules    []LineRule
}

func NewLineChecker(language string, rules ...LineRule) *LineChecker {
	return &LineChecker{language: language, rules: rules}
}

func (c *LineChecker) Language() string { return c.language }

func (c *LineChecker) Check(ctx context.Context, content string) ([]Finding, error) {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var findings []Finding
	for i, line := range lines {
		if i%1000 == 0 && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCheckerFailure, ctx.Err())
		}
		line = strings.TrimSuffix(line, "\r")
		for _, rule := range c.rules {
			if message, ok := rule.Check(line); ok {
				findings = append(findings, Finding{Line: i + 1, RuleID: rule.ID(), Message: message})
			}
		}
	}
	return findings, nil
}

// WithOptions applies "max_line_length" to the line length rule.
func (c *LineChecker) WithOptions(options map[string]any) Checker {
	max, ok := intOption(options, "max_line_length")
	if !ok {
		return c
	}
	rules := make([]LineRule, len(c.rules))
	for i, rule := range c.rules {
		if length, ok := rule.(LineLengthRule); ok {
			length.Max = max
			rule = length
		}
		rules[i] = rule
	}
	return &LineChecker{language: c.language, rules: rules}
}

type TrailingWhitespaceRule struct {
	Message string
}

func (TrailingWhitespaceRule) ID() string          { return "trailing-whitespace" }
func (TrailingWhitespaceRule) Description() string { return "Flags spaces or tabs at the end of a line." }

func (r TrailingWhitespaceRule) Check(line string) (string, bool) {
	if line != strings.TrimRight(line, " \t") {
		return r.Message, true
	}
	return "", false
}

type TabIndentationRule struct {
	Message string
}

func (TabIndentationRule) ID() string          { return "tab-indentation" }
func (TabIndentationRule) Description() string { return "Flags tabs used for indentation." }

func (r TabIndentationRule) Check(line string) (string, bool) {
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if strings.Contains(indent, "\t") {
		return r.Message, true
	}
	return "", false
}

type LineLengthRule struct {
	Max     int
	Message func(length, max int) string
}

func (LineLengthRule) ID() string          { return "line-length" }
func (LineLengthRule) Description() string { return "Flags lines longer than the configured maximum." }

func (r LineLengthRule) Check(line string) (string, bool) {
	length := utf8.RuneCountInString(line)
	if r.Max <= 0 || length <= r.Max {
		return "", false
	}
	return r.Message(length, r.Max), true
}

// PatternRule flags lines whose code, with string literals and comments
// removed, matches Pattern.
type PatternRule struct {
	RuleID  string
	Desc    string
	Pattern *regexp.Regexp
	Comment string
	Message string
}

func (r PatternRule) ID() string          { return r.RuleID }
func (r PatternRule) Description() string { return r.Desc }

func (r PatternRule) Check(line string) (string, bool) {
	if r.Pattern.MatchString(codeOnly(line, r.Comment)) {
		return r.Message, true
	}
	return "", false
}

// codeOnly blanks out the contents of quoted literals and drops a trailing
// comment, so rules do not fire on text inside strings.
func codeOnly(line, comment string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			switch ch {
			case '\\':
				i++
			case quote:
				quote = 0
				b.WriteByte(ch)
			}
			continue
		}
		if comment != "" && strings.HasPrefix(line[i:], comment) {
			break
		}
		if ch == '"' || ch == '\'' || ch == '`' {
			quote = ch
		}
		b.WriteByte(ch)
	}
	return b.String()
}
