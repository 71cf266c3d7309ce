package archive

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-orchestrator/model"
)

// Postgres stores archived tasks as rows with the payload and result
// kept as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS archived_tasks (
			id TEXT PRIMARY KEY,
			capability TEXT NOT NULL,
			project_id BIGINT NOT NULL,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			payload JSONB,
			result JSONB,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Archive(ctx context.Context, task model.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return err
	}
	result, err := json.Marshal(task.Result)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO archived_tasks (id, capability, project_id, priority, status, payload, result, error, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		task.ID, string(task.Capability), task.ProjectID, string(task.Priority), string(task.Status),
		payload, result, task.Error, task.CreatedAt, task.CompletedAt,
	)
	return err
}

func (p *Postgres) Close() {
	p.pool.Close()
}
