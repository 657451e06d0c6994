package types

import "strings"

// PullRequestEvent is the subset of the GitHub pull_request webhook payload
// the reviewer reads.
type PullRequestEvent struct {
	Action      string      `json:"action"`
	Number      int         `json:"number"`
	PullRequest PullRequest `json:"pull_request"`
	Repository  Repository  `json:"repository"`
}

type PullRequest struct {
	Number int            `json:"number"`
	Title  string         `json:"title"`
	Draft  bool           `json:"draft"`
	Head   PullRequestRef `json:"head"`
}

type PullRequestRef struct {
	SHA string `json:"sha"`
}

type Repository struct {
	FullName string `json:"full_name"`
}

// IsActionSupported reports whether the event introduces new commits to
// review.
func (e PullRequestEvent) IsActionSupported() bool {
	switch strings.ToLower(e.Action) {
	case "opened", "synchronize", "reopened", "ready_for_review":
		return true
	}
	return false
}
