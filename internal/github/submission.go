package github

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/pr-style-reviewer/internal/analysis"
	"github.com/example/pr-style-reviewer/internal/config"
)

// Submission is a pull request reviewed at its head commit.
type Submission struct {
	client *Client
	repo   string
	number int
	sha    string
}

func NewSubmission(client *Client, repo string, number int, sha string) *Submission {
	return &Submission{client: client, repo: repo, number: number, sha: sha}
}

func (s *Submission) ID() string {
	return fmt.Sprintf("%s#%d@%s", s.repo, s.number, s.sha)
}

// ModifiedFiles lists the files of the pull request that still exist at
// the head commit and carry a textual patch.
func (s *Submission) ModifiedFiles(ctx context.Context) ([]analysis.ChangedFile, error) {
	files, err := s.client.ListPullRequestFiles(ctx, s.repo, s.number)
	if err != nil {
		return nil, err
	}
	changed := make([]analysis.ChangedFile, 0, len(files))
	for _, file := range files {
		if file.Status == analysis.FileStatusRemoved || file.Patch == "" {
			continue
		}
		changed = append(changed, analysis.ChangedFile{
			Filename:   file.Filename,
			Patch:      file.Patch,
			RevisionID: s.sha,
			Status:     file.Status,
		})
	}
	return changed, nil
}

// ContentStore reads file content from the repository.
type ContentStore struct {
	client *Client
	repo   string
}

func NewContentStore(client *Client, repo string) *ContentStore {
	return &ContentStore{client: client, repo: repo}
}

func (s *ContentStore) Fetch(ctx context.Context, file analysis.ChangedFile) (string, error) {
	return s.client.FetchFileContent(ctx, s.repo, file.Filename, file.RevisionID)
}

// ConfigStore reads the repository style file at a commit and merges it
// over the defaults. A missing file means the defaults apply.
type ConfigStore struct {
	client   *Client
	repo     string
	ref      string
	path     string
	defaults config.Enablement
}

func NewConfigStore(client *Client, repo, ref, path string, defaults config.Enablement) *ConfigStore {
	return &ConfigStore{client: client, repo: repo, ref: ref, path: path, defaults: defaults}
}

func (s *ConfigStore) EnablementFor(ctx context.Context, _ analysis.Submission) (config.Enablement, error) {
	content, err := s.client.FetchFileContent(ctx, s.repo, s.path, s.ref)
	if errors.Is(err, ErrNotFound) {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return nil, err
	}
	return config.ParseEnablement([]byte(content), s.defaults)
}
