// Package tracestore persists WorkflowTrace entries and the agent
// client's leaked-session log beyond the lifetime of a single execute()
// call — an ambient, non-durable-execution concern spec.md's Non-goals
// explicitly exclude from the core ("persistent durable execution across
// process restarts") but that the Non-goal doesn't forbid as an optional
// observability layer wrapped around the core's outputs. Grounded on
// SPEC_FULL.md §2's jackc/pgx/v5 wiring: the pack's go.mod dependency set
// includes a Postgres driver nothing in the reduced core otherwise needs,
// so this package gives it a home as opt-in trace/leak persistence.
package tracestore

import (
	"context"
	"sync"
	"time"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/agentclient"
)

// Store records a completed workflow's trace and any leaked sessions
// observed during its run.
type Store interface {
	RecordRun(ctx context.Context, workflowID string, result *core.WorkflowResult, leaked []agentclient.LeakedSession) error
	RecentRuns(ctx context.Context, workflowID string, limit int) ([]RunRecord, error)
	LeakedSessions(ctx context.Context) ([]agentclient.LeakedSession, error)
}

// RunRecord is one persisted execution summary.
type RunRecord struct {
	WorkflowID string
	Success    bool
	RanAt      time.Time
	DurationMs int64
	Trace      []core.TraceEntry
}

// MemoryStore is the default in-process Store: adequate for CLI use and
// tests, never durable across restarts (matching the Non-goal).
type MemoryStore struct {
	mu      sync.Mutex
	runs    map[string][]RunRecord
	leaked  []agentclient.LeakedSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string][]RunRecord{}}
}

func (s *MemoryStore) RecordRun(_ context.Context, workflowID string, result *core.WorkflowResult, leaked []agentclient.LeakedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[workflowID] = append(s.runs[workflowID], RunRecord{
		WorkflowID: workflowID,
		Success:    result.Success,
		RanAt:      time.Now(),
		DurationMs: result.Duration.Milliseconds(),
		Trace:      result.Trace,
	})
	s.leaked = append(s.leaked, leaked...)
	return nil
}

func (s *MemoryStore) RecentRuns(_ context.Context, workflowID string, limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.runs[workflowID]
	if limit <= 0 || limit > len(runs) {
		limit = len(runs)
	}
	out := make([]RunRecord, limit)
	copy(out, runs[len(runs)-limit:])
	return out, nil
}

func (s *MemoryStore) LeakedSessions(_ context.Context) ([]agentclient.LeakedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agentclient.LeakedSession, len(s.leaked))
	copy(out, s.leaked)
	return out, nil
}
