package tracestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/agentclient"
)

// PostgresStore persists runs and leaked sessions to Postgres via
// jackc/pgx/v5's pool, for deployments that want trace history to survive
// process restarts — an optional ambient layer, not the durable-execution
// engine the Non-goals exclude: a restarted process still starts every
// workflow from scratch, it just finds its history intact.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to dsn and ensures the two tables this store
// needs exist.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("tracestore: connect: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflow_runs (
			id BIGSERIAL PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			ran_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			trace JSONB
		);
		CREATE TABLE IF NOT EXISTS leaked_sessions (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			step_id TEXT NOT NULL,
			last_error TEXT NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("tracestore: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) RecordRun(ctx context.Context, workflowID string, result *core.WorkflowResult, leaked []agentclient.LeakedSession) error {
	traceJSON, err := json.Marshal(result.Trace)
	if err != nil {
		return fmt.Errorf("tracestore: marshal trace: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO workflow_runs (workflow_id, success, ran_at, duration_ms, trace) VALUES ($1, $2, $3, $4, $5)`,
		workflowID, result.Success, time.Now(), result.Duration.Milliseconds(), traceJSON,
	); err != nil {
		return fmt.Errorf("tracestore: insert run: %w", err)
	}

	for _, ls := range leaked {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO leaked_sessions (session_id, agent_name, step_id, last_error, observed_at) VALUES ($1, $2, $3, $4, $5)`,
			ls.SessionID, ls.AgentName, ls.StepID, ls.LastError, ls.ObservedAt,
		); err != nil {
			return fmt.Errorf("tracestore: insert leaked session: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) RecentRuns(ctx context.Context, workflowID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT workflow_id, success, ran_at, duration_ms, trace FROM workflow_runs
		 WHERE workflow_id = $1 ORDER BY ran_at DESC LIMIT $2`,
		workflowID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("tracestore: query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var traceJSON []byte
		if err := rows.Scan(&r.WorkflowID, &r.Success, &r.RanAt, &r.DurationMs, &traceJSON); err != nil {
			return nil, fmt.Errorf("tracestore: scan run: %w", err)
		}
		if len(traceJSON) > 0 {
			if err := json.Unmarshal(traceJSON, &r.Trace); err != nil {
				return nil, fmt.Errorf("tracestore: unmarshal trace: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LeakedSessions(ctx context.Context) ([]agentclient.LeakedSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, agent_name, step_id, last_error, observed_at FROM leaked_sessions ORDER BY observed_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("tracestore: query leaked sessions: %w", err)
	}
	defer rows.Close()

	var out []agentclient.LeakedSession
	for rows.Next() {
		var ls agentclient.LeakedSession
		if err := rows.Scan(&ls.SessionID, &ls.AgentName, &ls.StepID, &ls.LastError, &ls.ObservedAt); err != nil {
			return nil, fmt.Errorf("tracestore: scan leaked session: %w", err)
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}
