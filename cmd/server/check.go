package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/pr-style-reviewer/internal/checker"
	"github.com/example/pr-style-reviewer/internal/config"
	"github.com/example/pr-style-reviewer/internal/logger"
	"github.com/example/pr-style-reviewer/internal/orchestrator"
	"github.com/example/pr-style-reviewer/internal/workspace"
)

type checkOptions struct {
	diffFile   string
	root       string
	configFile string
	workers    int
	logLevel   string
}

func newCheckCmd() *cobra.Command {
	opts := checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Review a local unified diff against a working tree",
		Long: `Reads a unified diff (as produced by git diff), runs the style checkers over
the files it touches under --root and prints the violations found on changed
lines. Exits with status 1 when violations are found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := runCheck(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if count > 0 {
				return errViolationsFound
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.diffFile, "diff", "", "Unified diff to review (- for stdin)")
	cmd.Flags().StringVar(&opts.root, "root", ".", "Working tree holding the changed files")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "Style config file (default <root>/.hound.yml when present)")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "Files reviewed in parallel")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")
	_ = cmd.MarkFlagRequired("diff")
	return cmd
}

// runCheck prints one `path:line: message` line per violation and returns
// how many were printed.
func runCheck(ctx context.Context, opts checkOptions, out, errOut io.Writer) (int, error) {
	diff, err := readDiff(opts.diffFile)
	if err != nil {
		return 0, err
	}

	configPath, required := opts.configFile, true
	if configPath == "" {
		configPath, required = filepath.Join(opts.root, ".hound.yml"), false
	}

	log := logger.NewWithWriter(errOut, opts.logLevel)
	sc := orchestrator.NewStyleChecker(
		checker.NewDefaultRegistry(),
		workspace.NewContentStore(opts.root),
		workspace.NewConfigStore(configPath, required, config.DefaultEnablement()),
		orchestrator.WithLogger(log),
		orchestrator.WithWorkers(opts.workers),
	)

	reviews, err := sc.ReviewFiles(ctx, workspace.NewSubmission(opts.diffFile, diff, "WORKTREE"))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, review := range reviews {
		for _, v := range review.Violations {
			fmt.Fprintf(out, "%s:%d: %s\n", v.Filename, v.Line, v.Message)
			count++
		}
	}
	return count, nil
}

func readDiff(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading diff: %w", err)
	}
	return string(data), nil
}
