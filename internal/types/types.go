package types

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/example/pr-style-reviewer/internal/analysis"
)

var (
	validate     = validator.New()
	repoFullName = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)
)

func init() {
	_ = validate.RegisterValidation("repo", func(fl validator.FieldLevel) bool {
		return repoFullName.MatchString(fl.Field().String())
	})
}

type AnalyzeRequest struct {
	Repository string `json:"repository" validate:"required,repo"`
	PullNumber int    `json:"pull_number" validate:"required,gt=0"`
	CommitSHA  string `json:"commit_sha" validate:"required,hexadecimal,min=7,max=64"`
}

func (r *AnalyzeRequest) Validate() error {
	return validate.Struct(r)
}

type AnalyzeResponse struct {
	Status     string                `json:"status"`
	RunID      string                `json:"run_id,omitempty"`
	Message    string                `json:"message"`
	Violations int                   `json:"violations"`
	Files      []analysis.FileReview `json:"files,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type WebhookResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
