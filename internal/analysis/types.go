package analysis

import "context"

type LineKind string

const (
	LineAdded   LineKind = "added"
	LineContext LineKind = "context"
)

// Line is a new-side line of a file diff. Number is the absolute line in
// the file, Position the 1-based offset inside the patch used to anchor
// review comments.
type Line struct {
	Number   int
	Position int
	Content  string
	Kind     LineKind
}

const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRenamed  = "renamed"
	FileStatusRemoved  = "removed"
)

// ChangedFile is one file touched by a submission. Patch holds only the
// hunks for this file, starting at the first "@@" header.
type ChangedFile struct {
	Filename   string
	Patch      string
	RevisionID string
	Status     string
}

type Violation struct {
	Filename   string `json:"filename"`
	Line       int    `json:"line"`
	Position   int    `json:"position"`
	RuleID     string `json:"rule_id,omitempty"`
	Message    string `json:"message"`
	RevisionID string `json:"revision_id,omitempty"`
}

// FileReview groups the violations reported for one changed file.
type FileReview struct {
	Filename   string      `json:"filename"`
	RevisionID string      `json:"revision_id,omitempty"`
	Language   string      `json:"language"`
	Violations []Violation `json:"violations"`
}

// Submission is the reviewed unit, usually a pull request.
type Submission interface {
	ID() string
	ModifiedFiles(ctx context.Context) ([]ChangedFile, error)
}
