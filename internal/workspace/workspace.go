// Package workspace provides review collaborators backed by the local
// filesystem: a diff file as the submission and a working tree as the
// content store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/pr-style-reviewer/internal/analysis"
	"github.com/example/pr-style-reviewer/internal/config"
)

var ErrOutsideRoot = errors.New("path escapes workspace root")

// Submission is a multi-file unified diff held in memory.
type Submission struct {
	id       string
	diff     string
	revision string
}

func NewSubmission(id, diff, revision string) *Submission {
	return &Submission{id: id, diff: diff, revision: revision}
}

func (s *Submission) ID() string { return s.id }

// ModifiedFiles returns the files of the diff that exist after the change.
func (s *Submission) ModifiedFiles(ctx context.Context) ([]analysis.ChangedFile, error) {
	files, err := analysis.ParseUnifiedDiff(s.diff, s.revision)
	if err != nil {
		return nil, err
	}
	kept := files[:0]
	for _, file := range files {
		if file.Status != analysis.FileStatusRemoved {
			kept = append(kept, file)
		}
	}
	return kept, nil
}

// ContentStore reads files relative to a root directory.
type ContentStore struct {
	root string
}

func NewContentStore(root string) *ContentStore {
	return &ContentStore{root: root}
}

func (s *ContentStore) Fetch(ctx context.Context, file analysis.ChangedFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.resolve(file.Filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file.Filename, err)
	}
	return string(data), nil
}

func (s *ContentStore) resolve(name string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return path, nil
}

// ConfigStore loads enablement from a style file on disk. When the file is
// optional and missing, the defaults apply.
type ConfigStore struct {
	path     string
	required bool
	defaults config.Enablement
}

func NewConfigStore(path string, required bool, defaults config.Enablement) *ConfigStore {
	return &ConfigStore{path: path, required: required, defaults: defaults}
}

func (s *ConfigStore) EnablementFor(ctx context.Context, _ analysis.Submission) (config.Enablement, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) && !s.required {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading style config: %w", err)
	}
	return config.ParseEnablement(data, s.defaults)
}
