package core

import (
	"encoding/json"
	"time"

	"github.com/flowcraft/workflowengine/internal/xlog"
)

// resultEntry pairs a StepResult with the insertion sequence number used to
// preserve the ordered-map semantics spec.md requires without re-sorting on
// every read.
type resultEntry struct {
	result StepResult
	seq    int
}

// WorkflowContext is the immutable, structurally-shared accumulation of step
// results and execution metadata described in spec.md §3/§4.1. Every
// mutator returns a new *WorkflowContext; the receiver is left untouched,
// and unchanged portions of the underlying maps/slices are shared between
// old and new, not copied.
type WorkflowContext struct {
	workflowID string
	startTime  time.Time
	input      any

	results    map[string]resultEntry
	nextSeq    int
	metadata   contextMetadata
}

type contextMetadata struct {
	currentStep    string
	previousSteps  []string
	iterationCount int
	errorCount     int
}

// NewContext creates a fresh context for a single execute() call: empty
// results, zeroed metadata, start_time stamped now.
func NewContext(workflowID string, input any) *WorkflowContext {
	return &WorkflowContext{
		workflowID: workflowID,
		startTime:  time.Now(),
		input:      input,
		results:    map[string]resultEntry{},
	}
}

func (c *WorkflowContext) WorkflowID() string  { return c.workflowID }
func (c *WorkflowContext) StartTime() time.Time { return c.startTime }
func (c *WorkflowContext) Input() any            { return c.input }

func (c *WorkflowContext) CurrentStep() string      { return c.metadata.currentStep }
func (c *WorkflowContext) PreviousSteps() []string  { return append([]string(nil), c.metadata.previousSteps...) }
func (c *WorkflowContext) IterationCount() int      { return c.metadata.iterationCount }
func (c *WorkflowContext) ErrorCount() int          { return c.metadata.errorCount }
func (c *WorkflowContext) ResultCount() int         { return len(c.results) }

// clone produces a shallow copy of the receiver: the results map and the
// previousSteps slice are both shared with the receiver. Mutators that
// change either one replace it with a fresh copy (AddResult copies
// previousSteps before appending), so sibling contexts derived from the
// same parent never see each other's changes.
func (c *WorkflowContext) clone() *WorkflowContext {
	n := &WorkflowContext{
		workflowID: c.workflowID,
		startTime:  c.startTime,
		input:      c.input,
		results:    c.results, // shared until a mutator actually changes it
		nextSeq:    c.nextSeq,
		metadata: contextMetadata{
			currentStep:    c.metadata.currentStep,
			previousSteps:  c.metadata.previousSteps,
			iterationCount: c.metadata.iterationCount,
			errorCount:     c.metadata.errorCount,
		},
	}
	return n
}

// AddResult returns a new context with result deep-cloned and stored under
// stepID, metadata.current_step set to stepID, and stepID appended to
// previous_steps. If stepID already has an entry (a revisited loop step),
// the entry is overwritten in place in the new map without disturbing the
// original insertion order already recorded via seq.
func (c *WorkflowContext) AddResult(stepID string, result StepResult) *WorkflowContext {
	cloned := cloneResult(result)

	n := c.clone()
	newResults := make(map[string]resultEntry, len(c.results)+1)
	for k, v := range c.results {
		newResults[k] = v
	}
	seq := n.nextSeq
	if existing, ok := newResults[stepID]; ok {
		seq = existing.seq
	} else {
		n.nextSeq++
	}
	newResults[stepID] = resultEntry{result: cloned, seq: seq}
	n.results = newResults

	n.metadata.currentStep = stepID
	n.metadata.previousSteps = append(append([]string(nil), c.metadata.previousSteps...), stepID)
	return n
}

// cloneResult deep-clones a StepResult's Data so the store never holds a
// live reference into executor-local data. Data is round-tripped through
// JSON when it isn't already a Cloneable; non-cloneable, non-JSON-safe data
// (channels, funcs) degrades to a logged warning and is stored as-is. The
// Error value is not cloned: the stored result keeps the same error value.
type Cloneable interface {
	Clone() any
}

func cloneResult(r StepResult) StepResult {
	r.Data = cloneValue(r.StepID, r.Data)
	return r
}

func cloneValue(stepID string, v any) any {
	if v == nil {
		return nil
	}
	if cl, ok := v.(Cloneable); ok {
		return cl.Clone()
	}
	b, err := json.Marshal(v)
	if err != nil {
		xlog.Get().Warn().Str("step_id", stepID).Err(err).Msg("context store: value is not cloneable, storing by reference")
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		xlog.Get().Warn().Str("step_id", stepID).Err(err).Msg("context store: clone round-trip failed, storing by reference")
		return v
	}
	return out
}

// GetResult is an O(1) lookup for a previously stored StepResult.
func (c *WorkflowContext) GetResult(stepID string) (StepResult, bool) {
	e, ok := c.results[stepID]
	if !ok {
		return StepResult{}, false
	}
	return e.result, true
}

// IncrementIteration returns a new context with iteration_count incremented.
func (c *WorkflowContext) IncrementIteration() *WorkflowContext {
	n := c.clone()
	n.metadata.iterationCount++
	return n
}

// IncrementError returns a new context with error_count incremented.
func (c *WorkflowContext) IncrementError() *WorkflowContext {
	n := c.clone()
	n.metadata.errorCount++
	return n
}

// SetCurrentStep returns a new context with metadata.current_step set.
func (c *WorkflowContext) SetCurrentStep(id string) *WorkflowContext {
	n := c.clone()
	n.metadata.currentStep = id
	return n
}

// BuildContextObject returns a mapping of step id -> data for every
// successful result. The result is a plain Go map and carries no insertion
// order. Used to build agent inputs and expression-evaluation environments.
func (c *WorkflowContext) BuildContextObject() map[string]any {
	out := make(map[string]any, len(c.results))
	for id, e := range c.results {
		if e.result.Success {
			out[id] = e.result.Data
		}
	}
	return out
}

// orderedSuccessfulIDs returns successful step ids sorted by insertion
// order (ascending seq).
func (c *WorkflowContext) orderedSuccessfulIDs() []string {
	type idSeq struct {
		id  string
		seq int
	}
	var items []idSeq
	for id, e := range c.results {
		if e.result.Success {
			items = append(items, idSeq{id, e.seq})
		}
	}
	// simple insertion sort: result sets are small (bounded by max_context_size)
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j-1].seq > items[j].seq; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids
}

// GetValue resolves a dotted "step_id.field.sub..." path against successful
// results. Returns (nil, false) if the step isn't a successful result or the
// path doesn't resolve.
func (c *WorkflowContext) GetValue(path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	e, ok := c.results[parts[0]]
	if !ok || !e.result.Success {
		return nil, false
	}
	cur := e.result.Data
	for _, p := range parts[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	parts = append(parts, path[start:])
	return parts
}

// Prune keeps only the maxSize most-recently-inserted entries (by
// previous_steps order); earlier entries are dropped. Idempotent:
// Prune(n) composed with itself is a no-op the second time.
func (c *WorkflowContext) Prune(maxSize int) *WorkflowContext {
	if len(c.results) <= maxSize || maxSize <= 0 {
		return c
	}
	order := c.orderedAllIDs()
	keep := map[string]bool{}
	start := len(order) - maxSize
	if start < 0 {
		start = 0
	}
	for _, id := range order[start:] {
		keep[id] = true
	}

	n := c.clone()
	newResults := make(map[string]resultEntry, maxSize)
	for id, e := range c.results {
		if keep[id] {
			newResults[id] = e
		}
	}
	n.results = newResults
	return n
}

func (c *WorkflowContext) orderedAllIDs() []string {
	type idSeq struct {
		id  string
		seq int
	}
	items := make([]idSeq, 0, len(c.results))
	for id, e := range c.results {
		items = append(items, idSeq{id, e.seq})
	}
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j-1].seq > items[j].seq; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids
}

// PruneReferenced implements the spec.md §9 Open Question (iii) decision:
// keep the maxSize most-recent entries, plus any older entry still
// referenced by a routing/input field of a step in remainingSteps
// (including its nested parallel children).
func (c *WorkflowContext) PruneReferenced(maxSize int, remainingSteps []WorkflowStep) *WorkflowContext {
	if len(c.results) <= maxSize || maxSize <= 0 {
		return c
	}
	referenced := map[string]bool{}
	var walk func([]WorkflowStep)
	walk = func(steps []WorkflowStep) {
		for _, s := range steps {
			for _, ref := range []string{s.Next, s.OnError, s.Then, s.Else, s.OnApprove, s.OnReject, s.Input} {
				if ref != "" {
					referenced[ref] = true
				}
			}
			if len(s.Steps) > 0 {
				walk(s.Steps)
			}
		}
	}
	walk(remainingSteps)

	order := c.orderedAllIDs()
	keep := map[string]bool{}
	start := len(order) - maxSize
	if start < 0 {
		start = 0
	}
	for _, id := range order[start:] {
		keep[id] = true
	}
	for id := range referenced {
		if _, ok := c.results[id]; ok {
			keep[id] = true
		}
	}

	n := c.clone()
	newResults := make(map[string]resultEntry, len(keep))
	for id, e := range c.results {
		if keep[id] {
			newResults[id] = e
		}
	}
	n.results = newResults
	return n
}

// Stats summarizes the context for observability/CLI output.
type Stats struct {
	Total          int
	Successful     int
	Failed         int
	AvgDurationMs  float64
	IterationCount int
	ErrorCount     int
	TotalDurationMs int64
}

func (c *WorkflowContext) ComputeStats() Stats {
	s := Stats{
		IterationCount: c.metadata.iterationCount,
		ErrorCount:     c.metadata.errorCount,
	}
	var totalDur time.Duration
	for _, e := range c.results {
		s.Total++
		if e.result.Success {
			s.Successful++
		} else {
			s.Failed++
		}
		totalDur += e.result.Duration
	}
	s.TotalDurationMs = totalDur.Milliseconds()
	if s.Total > 0 {
		s.AvgDurationMs = float64(totalDur.Milliseconds()) / float64(s.Total)
	}
	return s
}
