package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ExternalConfig describes a linter run as a subprocess.
type ExternalConfig struct {
	// Language is the enablement key, e.g. "python".
	Language string

	// Command is the linter executable, e.g. "flake8".
	Command string

	// Args are passed before the path of the file under check.
	Args []string

	// Extension is used for the temporary file so the tool picks the right parser.
	Extension string

	// Timeout bounds one run. Zero means 30 seconds.
	Timeout time.Duration
}

// ExternalChecker writes content to a temporary file, runs the configured
// tool on it and parses "path:line[:col]: message" lines from stdout.
type ExternalChecker struct {
	config ExternalConfig
}

func NewExternal(config ExternalConfig) *ExternalChecker {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &ExternalChecker{config: config}
}

func NewFlake8() *ExternalChecker {
	return NewExternal(ExternalConfig{
		Language:  "python",
		Command:   "flake8",
		Args:      []string{"--format=%(path)s:%(row)d:%(col)d: %(code)s %(text)s"},
		Extension: ".py",
	})
}

func (c *ExternalChecker) Language() string { return c.config.Language }

func (c *ExternalChecker) Check(ctx context.Context, content string) ([]Finding, error) {
	if _, err := exec.LookPath(c.config.Command); err != nil {
		return nil, fmt.Errorf("%w: %s not installed: %v", ErrCheckerFailure, c.config.Command, err)
	}

	tmpFile, err := os.CreateTemp("", "stylecheck-*"+c.config.Extension)
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp file: %v", ErrCheckerFailure, err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("%w: writing temp file: %v", ErrCheckerFailure, err)
	}
	tmpFile.Close()

	output, err := c.execute(ctx, tmpPath)
	if err != nil {
		return nil, err
	}
	return parseLintOutput(output), nil
}

func (c *ExternalChecker) execute(ctx context.Context, path string) ([]byte, error) {
	args := make([]string, len(c.config.Args), len(c.config.Args)+1)
	copy(args, c.config.Args)
	args = append(args, path)

	cmdCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, c.config.Command, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s timed out: %w", ErrCheckerFailure, c.config.Command, context.DeadlineExceeded)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckerFailure, ctx.Err())
	}
	// Linters exit non-zero when they report issues; only an exit without
	// any stdout is a failure.
	if err != nil && stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s failed: %v: %s", ErrCheckerFailure, c.config.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

var lintLine = regexp.MustCompile(`^.*?:(\d+):(?:\d+:)?\s*(.+)$`)

func parseLintOutput(output []byte) []Finding {
	var findings []Finding
	for _, raw := range strings.Split(string(output), "\n") {
		match := lintLine.FindStringSubmatch(strings.TrimSpace(raw))
		if match == nil {
			continue
		}
		line, err := strconv.Atoi(match[1])
		if err != nil || line < 1 {
			continue
		}
		message := strings.TrimSpace(match[2])
		ruleID := ""
		if code, rest, ok := strings.Cut(message, " "); ok && isRuleCode(code) {
			ruleID = code
			message = strings.TrimSpace(rest)
		}
		findings = append(findings, Finding{Line: line, RuleID: ruleID, Message: message})
	}
	return findings
}

var ruleCode = regexp.MustCompile(`^[A-Z]+[0-9]+$`)

func isRuleCode(s string) bool {
	return ruleCode.MatchString(s)
}
