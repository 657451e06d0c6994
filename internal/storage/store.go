package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/pr-style-reviewer/internal/analysis"
)

var ErrNotFound = errors.New("pull request not found")

const (
	StatusAnalyzing = "analyzing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Store interface {
	UpsertPullRequest(ctx context.Context, repo string, number int, sha string, title string, status string) (int64, error)
	UpdatePullRequestStatus(ctx context.Context, id int64, status string) error
	ClearViolations(ctx context.Context, prID int64) error
	SaveFileReview(ctx context.Context, prID int64, review analysis.FileReview) error
	Violations(ctx context.Context, prID int64) ([]analysis.Violation, error)
	Close() error
}

// NewStore opens the store for driver ("postgres" or "sqlite3"). An empty
// DSN selects the in-memory store.
func NewStore(ctx context.Context, driver, dsn string) (Store, error) {
	if dsn == "" {
		return NewMemoryStore(), nil
	}
	return NewSQLStore(ctx, driver, dsn)
}

type MemoryStore struct {
	mu         sync.Mutex
	nextID     int64
	pulls      map[string]*pullRequestRecord
	violations map[int64][]analysis.Violation
}

type pullRequestRecord struct {
	ID        int64
	Repo      string
	Number    int
	SHA       string
	Title     string
	Status    string
	CreatedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		pulls:      make(map[string]*pullRequestRecord),
		violations: make(map[int64][]analysis.Violation),
	}
}

func (m *MemoryStore) UpsertPullRequest(ctx context.Context, repo string, number int, sha string, title string, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s#%d", repo, number)
	if existing, ok := m.pulls[key]; ok {
		existing.SHA = sha
		existing.Title = title
		existing.Status = status
		return existing.ID, nil
	}
	id := m.nextID
	m.nextID++
	m.pulls[key] = &pullRequestRecord{
		ID:        id,
		Repo:      repo,
		Number:    number,
		SHA:       sha,
		Title:     title,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (m *MemoryStore) UpdatePullRequestStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range m.pulls {
		if pr.ID == id {
			pr.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ClearViolations(ctx context.Context, prID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.violations, prID)
	return nil
}

func (m *MemoryStore) SaveFileReview(ctx context.Context, prID int64, review analysis.FileReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations[prID] = append(m.violations[prID], review.Violations...)
	return nil
}

func (m *MemoryStore) Violations(ctx context.Context, prID int64) ([]analysis.Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]analysis.Violation(nil), m.violations[prID]...), nil
}

func (m *MemoryStore) Close() error { return nil }

// SQLStore persists pull requests and violations through database/sql.
// Queries are written to run unchanged on PostgreSQL and SQLite.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	store := &SQLStore{db: db}
	if err := store.ensureSchema(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

var schemas = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS pull_requests (
			id SERIAL PRIMARY KEY,
			repo TEXT NOT NULL,
			pr_number INTEGER NOT NULL,
			commit_sha TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (repo, pr_number)
		);`,
		`CREATE TABLE IF NOT EXISTS violations (
			id SERIAL PRIMARY KEY,
			pr_id INTEGER NOT NULL REFERENCES pull_requests(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			line INTEGER NOT NULL,
			patch_position INTEGER NOT NULL,
			rule_id TEXT NOT NULL,
			message TEXT NOT NULL,
			revision_id TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	},
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS pull_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			repo TEXT NOT NULL,
			pr_number INTEGER NOT NULL,
			commit_sha TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (repo, pr_number)
		);`,
		`CREATE TABLE IF NOT EXISTS violations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pr_id INTEGER NOT NULL REFERENCES pull_requests(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			line INTEGER NOT NULL,
			patch_position INTEGER NOT NULL,
			rule_id TEXT NOT NULL,
			message TEXT NOT NULL,
			revision_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	},
}

func (p *SQLStore) ensureSchema(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *SQLStore) UpsertPullRequest(ctx context.Context, repo string, number int, sha string, title string, status string) (int64, error) {
	query := `
		INSERT INTO pull_requests (repo, pr_number, commit_sha, title, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (repo, pr_number)
		DO UPDATE SET commit_sha = excluded.commit_sha, title = excluded.title, status = excluded.status, updated_at = CURRENT_TIMESTAMP
		RETURNING id`
	var id int64
	if err := p.db.QueryRowContext(ctx, query, repo, number, sha, title, status).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *SQLStore) UpdatePullRequestStatus(ctx context.Context, id int64, status string) error {
	result, err := p.db.ExecContext(ctx, `UPDATE pull_requests SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *SQLStore) ClearViolations(ctx context.Context, prID int64) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM violations WHERE pr_id = $1`, prID)
	return err
}

func (p *SQLStore) SaveFileReview(ctx context.Context, prID int64, review analysis.FileReview) error {
	if len(review.Violations) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO violations (pr_id, filename, line, patch_position, rule_id, message, revision_id) VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range review.Violations {
		if _, err := stmt.ExecContext(ctx, prID, v.Filename, v.Line, v.Position, v.RuleID, v.Message, v.RevisionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *SQLStore) Violations(ctx context.Context, prID int64) ([]analysis.Violation, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT filename, line, patch_position, rule_id, message, revision_id FROM violations WHERE pr_id = $1 ORDER BY id`, prID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []analysis.Violation
	for rows.Next() {
		var v analysis.Violation
		if err := rows.Scan(&v.Filename, &v.Line, &v.Position, &v.RuleID, &v.Message, &v.RevisionID); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

func (p *SQLStore) Close() error {
	return p.db.Close()
}

// Sink records file reviews against one pull request.
type Sink struct {
	store Store
	prID  int64
}

func NewSink(store Store, prID int64) *Sink {
	return &Sink{store: store, prID: prID}
}

func (s *Sink) Record(ctx context.Context, review analysis.FileReview) error {
	return s.store.SaveFileReview(ctx, s.prID, review)
}
