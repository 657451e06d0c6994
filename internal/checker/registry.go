package checker

import (
	"path"
	"strings"

	"github.com/example/pr-style-reviewer/internal/config"
)

// Registry maps file suffixes to checkers. It is populated at start-up and
// read-only afterwards.
type Registry struct {
	bySuffix map[string]Checker
}

func NewRegistry() *Registry {
	return &Registry{bySuffix: make(map[string]Checker)}
}

// NewDefaultRegistry registers every bundled checker.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewRuby(), "rb", "rake", "gemspec", "ru", "jbuilder")
	r.Register(NewCoffeeScript(), "coffee")
	r.Register(NewJavaScript(), "js", "jsx", "es6")
	r.Register(NewSCSS(), "scss")
	r.Register(NewGo(), "go")
	r.Register(NewFlake8(), "py")
	return r
}

// Register binds c to each suffix. Suffixes are matched without the
// leading dot and case-insensitively; compound suffixes like "coffee.erb"
// are allowed.
func (r *Registry) Register(c Checker, suffixes ...string) {
	for _, suffix := range suffixes {
		suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
		if suffix != "" {
			r.bySuffix[suffix] = c
		}
	}
}

// Resolve picks the checker for filename. The first candidate suffix with
// a registered checker decides; if its language is not enabled in cfg the
// file is Unsupported. Resolve does no I/O.
func (r *Registry) Resolve(filename string, cfg config.Enablement) Checker {
	for _, suffix := range Candidates(filename) {
		c, ok := r.bySuffix[suffix]
		if !ok {
			continue
		}
		if !cfg.Enabled(c.Language()) {
			return Unsupported
		}
		if configurable, ok := c.(Configurable); ok {
			if options := cfg.Options(c.Language()); len(options) > 0 {
				return configurable.WithOptions(options)
			}
		}
		return c
	}
	return Unsupported
}

// Candidates lists the suffixes probed for filename, most specific first:
// compound suffixes from longest to shortest, then the inner extensions
// from right to left. "test.coffee.erb" yields coffee.erb, erb, coffee.
// Only the trailing run of alphanumeric segments is considered.
func Candidates(filename string) []string {
	base := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	segments := strings.Split(base, ".")
	if len(segments) < 2 {
		return nil
	}

	var exts []string
	for i := len(segments) - 1; i >= 1; i-- {
		if !isAlphanumeric(segments[i]) {
			break
		}
		exts = append([]string{segments[i]}, exts...)
	}
	if len(exts) == 0 {
		return nil
	}

	seen := make(map[string]bool, 2*len(exts))
	candidates := make([]string, 0, 2*len(exts))
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			candidates = append(candidates, s)
		}
	}
	for i := range exts {
		add(strings.Join(exts[i:], "."))
	}
	for i := len(exts) - 2; i >= 0; i-- {
		add(exts[i])
	}
	return candidates
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
