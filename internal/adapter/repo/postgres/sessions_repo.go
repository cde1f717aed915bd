package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the session repo.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS sessions (
	id         text PRIMARY KEY,
	snapshot   jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// SessionRepo persists whole session snapshots, one row per session.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

// EnsureSchema creates the sessions table when missing.
func (r *SessionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=session.ensure_schema: %w", err)
	}
	return nil
}

// Get loads a snapshot by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.Get")
	defer span.End()
	var raw []byte
	if err := r.Pool.QueryRow(ctx, `SELECT snapshot FROM sessions WHERE id=$1`, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get: decode: %w", err)
	}
	return s, nil
}

// Save upserts the snapshot wholesale.
func (r *SessionRepo) Save(ctx domain.Context, s domain.Session) error {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.Save")
	defer span.End()
	if s.ID == "" {
		return fmt.Errorf("op=session.save: %w: empty id", domain.ErrInvalidArgument)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("op=session.save: encode: %w", err)
	}
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	q := `INSERT INTO sessions (id, snapshot, updated_at) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET snapshot=EXCLUDED.snapshot, updated_at=EXCLUDED.updated_at`
	if _, err := r.Pool.Exec(ctx, q, s.ID, raw, updated); err != nil {
		return fmt.Errorf("op=session.save: %w", err)
	}
	return nil
}

// Delete removes a snapshot; unknown ids report ErrNotFound.
func (r *SessionRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := otel.Tracer("repo.sessions").Start(ctx, "sessions.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=session.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=session.delete: %w", domain.ErrNotFound)
	}
	return nil
}
