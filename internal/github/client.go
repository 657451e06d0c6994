package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.github.com"
	filesPerPage   = 100
	// GitHub lists at most 3000 files per pull request.
	maxFilePages = 30
)

var (
	ErrNotFound      = errors.New("github resource not found")
	ErrTransient     = errors.New("github transient failure")
	ErrNotConfigured = errors.New("github client is not configured")
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

type PullRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	User  struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

// PullRequestFile is one entry of the pull request files listing.
type PullRequestFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Patch    string `json:"patch"`
}

// ReviewComment anchors a comment at a diff position.
type ReviewComment struct {
	Path     string `json:"path"`
	Position int    `json:"position"`
	Body     string `json:"body"`
}

func NewClient(token string, opts ...Option) *Client {
	if token == "" {
		return nil
	}
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchPullRequest(ctx context.Context, repo string, number int) (PullRequest, error) {
	if c == nil {
		return PullRequest{}, ErrNotConfigured
	}
	endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d", c.baseURL, repo, number)
	body, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return PullRequest{}, fmt.Errorf("github pull request fetch failed: %w", err)
	}

	var pr PullRequest
	if err := json.Unmarshal(body, &pr); err != nil {
		return PullRequest{}, err
	}
	return pr, nil
}

// ListPullRequestFiles returns every file of the pull request in the order
// GitHub lists them.
func (c *Client) ListPullRequestFiles(ctx context.Context, repo string, number int) ([]PullRequestFile, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	var files []PullRequestFile
	for page := 1; page <= maxFilePages; page++ {
		endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d/files?per_page=%d&page=%d", c.baseURL, repo, number, filesPerPage, page)
		body, err := c.get(ctx, endpoint, "application/vnd.github+json")
		if err != nil {
			return nil, fmt.Errorf("github pull request files fetch failed: %w", err)
		}
		var batch []PullRequestFile
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, err
		}
		files = append(files, batch...)
		if len(batch) < filesPerPage {
			break
		}
	}
	return files, nil
}

// FetchFileContent returns the raw content of path at ref.
func (c *Client) FetchFileContent(ctx context.Context, repo, path, ref string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s", c.baseURL, repo, escapePath(path), url.QueryEscape(ref))
	body, err := c.get(ctx, endpoint, "application/vnd.github.raw")
	if err != nil {
		return "", fmt.Errorf("github content fetch for %s failed: %w", path, err)
	}
	return string(body), nil
}

func (c *Client) CreatePullRequestReview(ctx context.Context, repo string, number int, commitSHA string, body string, comments []ReviewComment) error {
	if c == nil {
		return ErrNotConfigured
	}
	endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d/reviews", c.baseURL, repo, number)
	payload := map[string]any{
		"body":      body,
		"event":     "COMMENT",
		"commit_id": commitSHA,
		"comments":  comments,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("github review creation failed: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrTransient, err)
	}
	if err := statusError(resp.StatusCode, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func statusError(status int, body []byte) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, truncate(body))
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrTransient, status, truncate(body))
	default:
		return fmt.Errorf("status %d: %s", status, truncate(body))
	}
}

func truncate(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
