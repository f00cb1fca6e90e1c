// Package journal keeps a local record of every dispatch attempt.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/newsletter-backoffice/internal/db"
)

// Outcome of a recorded dispatch attempt.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

type Entry struct {
	ID             string    `json:"id"`
	IdempotencyKey string    `json:"idempotencyKey"`
	CampaignID     string    `json:"campaignId"`
	Action         string    `json:"action"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
	ListByCampaign(ctx context.Context, campaignID string) ([]Entry, error)
}

// Repository stores entries in Postgres.
type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// Migrations returns the journal schema.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS dispatch_journal (
			id VARCHAR(36) PRIMARY KEY,
			idempotency_key VARCHAR(64) NOT NULL,
			campaign_id VARCHAR(255) NOT NULL,
			action VARCHAR(20) NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			error TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_dispatch_journal_key ON dispatch_journal(idempotency_key, outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatch_journal_campaign ON dispatch_journal(campaign_id, created_at)`,
	}
}

// Record inserts e. A second entry with the same key and outcome is ignored
// so redelivered events do not duplicate rows.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO dispatch_journal (id, idempotency_key, campaign_id, action, outcome, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key, outcome) DO NOTHING
	`, e.ID, e.IdempotencyKey, e.CampaignID, e.Action, e.Outcome, nullString(e.Error), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

func (r *Repository) ListByCampaign(ctx context.Context, campaignID string) ([]Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, idempotency_key, campaign_id, action, outcome, error, created_at
		FROM dispatch_journal
		WHERE campaign_id = $1
		ORDER BY created_at DESC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var errText sql.NullString
		if err := rows.Scan(&e.ID, &e.IdempotencyKey, &e.CampaignID, &e.Action, &e.Outcome, &errText, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Error = errText.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Nop discards entries. Used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) ListByCampaign(context.Context, string) ([]Entry, error) { return []Entry{}, nil }

var (
	_ Journal = (*Repository)(nil)
	_ Journal = Nop{}
)

// Open connects the Postgres journal and applies its schema. An empty dsn
// gives a Nop journal. The returned func releases the connection.
func Open(ctx context.Context, dsn string) (Journal, func(), error) {
	if dsn == "" {
		return Nop{}, func() {}, nil
	}
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, conn, Migrations()); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return NewRepository(conn), func() { conn.Close() }, nil
}
