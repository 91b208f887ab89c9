// Package agentclient implements the Remote Agent Client (C5): the single
// collaborator that talks to the external session service on behalf of
// the Agent Step Executor. Grounded on the session create/prompt/poll
// lifecycle SPEC_FULL.md §2 assigns to C5, built over
// github.com/go-resty/resty/v2 for the HTTP leg (the pack's HTTP-client
// dependency of choice for exactly this "small JSON RPC surface" shape),
// github.com/cenkalti/backoff/v4 for the cleanup retry, and
// github.com/google/uuid for the session create idempotency key, the same
// library core/event.go uses for its event ids.
package agentclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/flowcraft/workflowengine/core"
	"github.com/flowcraft/workflowengine/internal/xlog"
)

const (
	DefaultPollIntervalMs        = 1_000
	DefaultMaxPollDurationMs     = 120_000
	DefaultSessionCleanupRetries = 3
	DefaultCleanupRetryDelayMs   = 500
	maxConsecutivePollFailures   = 3
)

// Config tunes the client's polling and cleanup behavior. Zero values are
// replaced with the defaults above.
type Config struct {
	BaseURL                 string
	PollIntervalMs          int
	MaxPollDurationMs       int
	SessionCleanupMaxRetries int
	CleanupRetryDelayMs     int
}

func (c Config) withDefaults() Config {
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = DefaultPollIntervalMs
	}
	if c.MaxPollDurationMs <= 0 {
		c.MaxPollDurationMs = DefaultMaxPollDurationMs
	}
	if c.SessionCleanupMaxRetries <= 0 {
		c.SessionCleanupMaxRetries = DefaultSessionCleanupRetries
	}
	if c.CleanupRetryDelayMs <= 0 {
		c.CleanupRetryDelayMs = DefaultCleanupRetryDelayMs
	}
	return c
}

// Client is the Remote Agent Client. Safe for concurrent use by the
// parallel step executor: each RunAgent call owns a distinct session id
// and its own cleanup bookkeeping.
type Client struct {
	http     *resty.Client
	cfg      Config
	resolver Resolver

	mu      sync.Mutex
	leaked  []LeakedSession
}

// New builds a Client against baseURL, resolving agent names via resolver.
func New(baseURL string, resolver Resolver, cfg Config) *Client {
	cfg.BaseURL = baseURL
	cfg = cfg.withDefaults()
	return &Client{
		http:     resty.New().SetBaseURL(baseURL),
		cfg:      cfg,
		resolver: resolver,
	}
}

// LeakedSessions returns a snapshot of sessions whose cleanup never
// confirmed, for observability surfaces (CLI, trace store).
func (c *Client) LeakedSessions() []LeakedSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LeakedSession, len(c.leaked))
	copy(out, c.leaked)
	return out
}

func (c *Client) recordLeak(ls LeakedSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaked = append(c.leaked, ls)
}

// RunAgent drives the full per-agent lifecycle spec.md §4.5 describes:
// resolve → create → prompt → poll → extract, with cleanup guaranteed on
// every exit path. stepID is used only for diagnostics/leak records.
//
// agentInput is the agent input object §4.4.1 describes:
// {input, context, [input_field_ref]: referenced_data} — the optional
// sibling keys beyond "input"/"context" are whatever step ids the caller
// chose to surface by reference, and are folded into the prompt verbatim.
func (c *Client) RunAgent(ctx context.Context, stepID, agentName string, agentInput map[string]any) (any, error) {
	if strings.TrimSpace(agentName) == "" {
		return nil, &core.InvalidValueError{Where: "agent step", What: "agent", Why: "agent name must be a non-empty string"}
	}

	if _, ok := c.resolver.Resolve(agentName); !ok {
		return nil, &core.NotFoundError{
			Component: "agent",
			Name:      agentName,
			Available: c.resolver.ListNames(),
			Hint:      "check the agent name against the configured agents directory",
		}
	}

	sessionID, err := c.createSession(ctx, stepID, uuid.NewString())
	if err != nil {
		return nil, err
	}

	// Cleanup runs on every exit path, success or failure.
	defer c.cleanup(sessionID, agentName, stepID)

	prompt := buildPrompt(agentInput)
	if err := c.promptSession(ctx, sessionID, agentName, prompt); err != nil {
		return nil, err
	}

	return c.pollUntilDone(ctx, sessionID)
}

func (c *Client) createSession(ctx context.Context, stepID, idempotencyKey string) (string, error) {
	var out createSessionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createSessionRequest{Title: fmt.Sprintf("step:%s", stepID), IdempotencyKey: idempotencyKey}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/session")
	if err != nil {
		return "", &core.NetworkFailureError{Attempt: 1, Cause: err}
	}
	if resp.IsError() {
		return "", &core.AgentError{StepID: stepID, Message: fmt.Sprintf("session_create failed: %s", resp.Status())}
	}
	return out.ID, nil
}

func (c *Client) promptSession(ctx context.Context, sessionID, agentName, prompt string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(promptRequest{Agent: agentName, Parts: []messagePart{{Type: "text", Text: prompt}}}).
		Post(fmt.Sprintf("/session/%s/prompt", sessionID))
	if err != nil {
		return &core.NetworkFailureError{Attempt: 1, Cause: err}
	}
	if resp.IsError() {
		return &core.AgentError{AgentName: agentName, Message: fmt.Sprintf("session_prompt failed: %s", resp.Status())}
	}
	return nil
}

// buildPrompt concatenates the task and prior-step context exactly as
// spec.md §4.5 step 3 describes, then appends one fenced block per
// input_field_ref sibling key agentInput carries (§4.4.1) so a step.input
// back-reference is visible to the agent as its own named section, not
// just buried in the context listing.
func buildPrompt(agentInput map[string]any) string {
	var b strings.Builder
	b.WriteString("## Task\n")
	b.WriteString(stringify(agentInput["input"]))
	b.WriteString("\n\n## Context from Previous Steps\n")

	contextData, _ := agentInput["context"].(map[string]any)
	ids := make([]string, 0, len(contextData))
	for id := range contextData {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString(fmt.Sprintf("### %s\n```json\n%s\n```\n", id, stringify(contextData[id])))
	}

	refKeys := make([]string, 0, len(agentInput))
	for k := range agentInput {
		if k == "input" || k == "context" {
			continue
		}
		refKeys = append(refKeys, k)
	}
	if len(refKeys) > 0 {
		sort.Strings(refKeys)
		b.WriteString("\n## Referenced Step Input\n")
		for _, k := range refKeys {
			b.WriteString(fmt.Sprintf("### %s\n```json\n%s\n```\n", k, stringify(agentInput[k])))
		}
	}
	return b.String()
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// pollUntilDone polls session_status at the configured interval until the
// session goes idle, errors, or one of the two termination guards
// (attempt-count-independent wall clock, and consecutive network failures)
// trips.
func (c *Client) pollUntilDone(ctx context.Context, sessionID string) (any, error) {
	deadline := time.Now().Add(time.Duration(c.cfg.MaxPollDurationMs) * time.Millisecond)
	interval := time.Duration(c.cfg.PollIntervalMs) * time.Millisecond
	consecutiveFailures := 0
	attempt := 0

	for {
		if time.Now().After(deadline) {
			return nil, &core.TimeoutError{Scope: core.TimeoutScopePollTotal, ElapsedMs: int64(c.cfg.MaxPollDurationMs), Attempts: attempt}
		}

		attempt++
		status, err := c.fetchStatus(ctx, sessionID)
		if err != nil {
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutivePollFailures {
				return nil, &core.NetworkFailureError{Attempt: attempt, ConsecutiveErrs: consecutiveFailures, Cause: err}
			}
			if !sleepOrDone(ctx, interval) {
				return nil, ctx.Err()
			}
			continue
		}
		consecutiveFailures = 0

		switch status.Type {
		case statusBusy:
			if !sleepOrDone(ctx, interval) {
				return nil, ctx.Err()
			}
		case statusRetry:
			delay := interval
			if status.Next != nil {
				delay = time.Duration(*status.Next) * time.Millisecond
			}
			if !sleepOrDone(ctx, delay) {
				return nil, ctx.Err()
			}
		case statusError:
			msg := "agent reported an error"
			if status.Error != nil && status.Error.Message != "" {
				msg = status.Error.Message
			}
			return map[string]any{"error": msg}, nil
		case statusIdle:
			return c.extractResult(ctx, sessionID)
		default:
			// Unknown status types are treated like busy: keep polling rather
			// than failing the whole step on a forward-compatible service change.
			if !sleepOrDone(ctx, interval) {
				return nil, ctx.Err()
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) fetchStatus(ctx context.Context, sessionID string) (sessionStatus, error) {
	var out statusResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).ForceContentType("application/json").Get("/session/status")
	if err != nil {
		return sessionStatus{}, err
	}
	if resp.IsError() {
		return sessionStatus{}, fmt.Errorf("session_status returned %s", resp.Status())
	}
	status, ok := out[sessionID]
	if !ok {
		return sessionStatus{}, fmt.Errorf("session_status response missing session %q", sessionID)
	}
	return status, nil
}

func (c *Client) extractResult(ctx context.Context, sessionID string) (any, error) {
	var out messagesResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).ForceContentType("application/json").Get(fmt.Sprintf("/session/%s/messages", sessionID))
	if err != nil {
		return nil, &core.NetworkFailureError{Cause: err}
	}
	if resp.IsError() {
		return nil, fmt.Errorf("session_messages returned %s", resp.Status())
	}

	var last *message
	for i := range out {
		if out[i].Info.Role == "assistant" {
			last = &out[i]
		}
	}
	if last == nil {
		return map[string]any{"result": ""}, nil
	}

	var text strings.Builder
	for _, p := range last.Parts {
		if p.Type == "text" {
			text.WriteString(p.Text)
		}
	}

	var parsed any
	if err := json.Unmarshal([]byte(text.String()), &parsed); err == nil {
		return parsed, nil
	}
	return map[string]any{"result": text.String()}, nil
}

// cleanup deletes sessionID with exponential backoff, recording a
// LeakedSession if every retry is exhausted. It never returns an error —
// cleanup failure is always non-fatal to the caller, per spec.md §7.
func (c *Client) cleanup(sessionID, agentName, stepID string) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(c.cfg.CleanupRetryDelayMs) * time.Millisecond
	bo.Multiplier = core.RetryBackoffFactor
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0
	bo.Reset() // start from the configured CleanupRetryDelayMs

	var lastErr error
	for attempt := 0; attempt <= c.cfg.SessionCleanupMaxRetries; attempt++ {
		resp, err := c.http.R().SetContext(context.Background()).Delete(fmt.Sprintf("/session/%s", sessionID))
		if err == nil && !resp.IsError() {
			return
		}
		if err == nil {
			err = fmt.Errorf("session_delete returned %s", resp.Status())
		}
		lastErr = err
		if attempt < c.cfg.SessionCleanupMaxRetries {
			time.Sleep(bo.NextBackOff())
		}
	}

	xlog.Get().Warn().Str("session_id", sessionID).Err(lastErr).Msg("session cleanup exhausted retries, recording as leaked")
	c.recordLeak(LeakedSession{
		SessionID:  sessionID,
		AgentName:  agentName,
		StepID:     stepID,
		LastError:  lastErr.Error(),
		ObservedAt: time.Now(),
	})
}
