package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists digests in a web_search_data table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the digest table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS web_search_data (
			test_name    TEXT PRIMARY KEY,
			summary_text TEXT NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure web_search_data schema: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, testName string) (Digest, error) {
	var summary string
	err := p.pool.QueryRow(ctx,
		`SELECT summary_text FROM web_search_data WHERE test_name = $1`,
		testName).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return Digest{}, ErrNotFound
	}
	if err != nil {
		return Digest{}, fmt.Errorf("get digest %q: %w", testName, err)
	}
	return Digest{TestName: testName, SummaryText: summary}, nil
}

func (p *Postgres) Put(ctx context.Context, d Digest) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO web_search_data (test_name, summary_text, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (test_name)
		DO UPDATE SET summary_text = EXCLUDED.summary_text, updated_at = now()`,
		d.TestName, d.SummaryText)
	if err != nil {
		return fmt.Errorf("put digest %q: %w", d.TestName, err)
	}
	return nil
}
