// Package checker holds the per-language style checkers and the registry
// that picks one for a file name.
package checker

import (
	"context"
	"errors"
)

// ErrCheckerFailure marks a checker that could not analyse its input.
// Callers treat it as "no opinion" rather than as a clean result.
var ErrCheckerFailure = errors.New("checker failure")

// Finding is raw checker output. Line is 1-based against the full content.
type Finding struct {
	Line    int
	RuleID  string
	Message string
}

// Checker analyses the full content of one file.
type Checker interface {
	Language() string
	Check(ctx context.Context, content string) ([]Finding, error)
}

// Configurable checkers accept per-repository options from the
// enablement config and return a configured copy.
type Configurable interface {
	WithOptions(options map[string]any) Checker
}

type unsupported struct{}

// Unsupported is returned for files no enabled checker handles. It never
// reports anything.
var Unsupported Checker = unsupported{}

func (unsupported) Language() string { return "" }

func (unsupported) Check(context.Context, string) ([]Finding, error) { return nil, nil }

func IsUnsupported(c Checker) bool {
	_, ok := c.(unsupported)
	return c == nil || ok
}

func intOption(options map[string]any, key string) (int, bool) {
	switch v := options[key].(type) {
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0
	case float64:
		return int(v), v > 0
	default:
		return 0, false
	}
}
