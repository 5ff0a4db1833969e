package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chatcore/chatcore/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore persists threads in a single jsonb-backed table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies reachability.
func NewPostgresStore(ctx context.Context, url string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the threads table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS threads (
			id         text PRIMARY KEY,
			messages   jsonb NOT NULL DEFAULT '[]',
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create threads table: %w", err)
	}
	log.Info().Msg("Checkpoint schema migrated")
	return nil
}

// Load returns the thread for the given id, or a fresh empty thread
// when the id has never been seen.
func (s *PostgresStore) Load(ctx context.Context, threadID string) (*models.Thread, error) {
	var (
		raw       []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT messages, created_at, updated_at FROM threads WHERE id = $1`, threadID).
		Scan(&raw, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			now := time.Now().UTC()
			return &models.Thread{ID: threadID, CreatedAt: now, UpdatedAt: now}, nil
		}
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	thread := &models.Thread{ID: threadID, CreatedAt: createdAt, UpdatedAt: updatedAt}
	if err := json.Unmarshal(raw, &thread.Messages); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", threadID, err)
	}
	return thread, nil
}

// Save upserts the thread.
func (s *PostgresStore) Save(ctx context.Context, thread *models.Thread) error {
	raw, err := json.Marshal(thread.Messages)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", thread.ID, err)
	}

	now := time.Now().UTC()
	createdAt := thread.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO threads (id, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET messages = $2, updated_at = $4`,
		thread.ID, raw, createdAt, now)
	if err != nil {
		return fmt.Errorf("save thread %s: %w", thread.ID, err)
	}
	return nil
}

// Ping checks database reachability.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
