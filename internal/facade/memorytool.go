// Package facade implements the Memory Tool Facade: the thin,
// settings-gated surface a host (chat agent, HTTP handler, CLI) calls
// instead of talking to the Policy Engine directly. It owns subject
// normalization, date validation, dynamic-payload coercion, and the
// threshold/allow-list gate; everything that passes the gate is handed to
// the engine with source="inferred" and a hard-capped confidence.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ridgeway/memkeep/internal/config"
	"github.com/ridgeway/memkeep/internal/normalize"
	"github.com/ridgeway/memkeep/internal/policy"
	"github.com/ridgeway/memkeep/internal/types"
)

// inferredConfidence is hard-capped: LLM-sourced proposals never get to
// claim more confidence than this.
const inferredConfidence = 0.6

// defaultExtractionThreshold matches the facade-layer default used when
// settings are unavailable or fail to load, independent of
// config.DefaultExtractionThreshold (which governs the settings loader
// itself, not this defensive fallback).
const defaultExtractionThreshold = 3.0

const dateLayout = "2006-01-02"

// SettingsLoader loads the current, possibly DB-overridden, settings. The
// facade re-reads on every call; this is cheap because it's an embedded DB.
type SettingsLoader func(ctx context.Context) (config.Settings, error)

// StoreRequest is a store_memory call before any normalization.
type StoreRequest struct {
	Content    any // string, list, or map
	MemoryDate string
	Subject    string
	Importance any // int, float, or keyword string
	SessionID  string
	UserID     string
	AccessMode string
}

// StoreResult is the store_memory tool response. Fields are tagged for
// direct JSON serialization by an HTTP or RPC adapter.
type StoreResult struct {
	Status       string `json:"status"`
	Stored       bool   `json:"stored"`
	MemoryID     int64  `json:"memory_id,omitempty"`
	ReasonCode   string `json:"reason_code,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Notification string `json:"notification,omitempty"`
}

// RetrieveRequest is a retrieve_memory call before validation.
type RetrieveRequest struct {
	Query       string
	Scope       []string
	StateFilter string
	Limit       int
	UserID      string
}

// RetrieveResult is the retrieve_memory tool response.
type RetrieveResult struct {
	Status      string                  `json:"status"`
	Results     []types.RetrievedMemory `json:"results,omitempty"`
	ResultCount int                     `json:"result_count"`
	Reason      string                  `json:"reason,omitempty"`
	Detail      string                  `json:"detail,omitempty"`
}

// MemoryTool is the facade: it never talks to storage directly, only
// through the Policy Engine it wraps.
type MemoryTool struct {
	engine         *policy.Engine
	loadSettings   SettingsLoader
	log            *slog.Logger
}

// New constructs a MemoryTool over an already-built Policy Engine.
func New(engine *policy.Engine, loadSettings SettingsLoader, log *slog.Logger) *MemoryTool {
	return &MemoryTool{engine: engine, loadSettings: loadSettings, log: log}
}

// StoreMemory normalizes, validates, and gates a proposal before delegating
// acceptance to the Policy Engine.
func (m *MemoryTool) StoreMemory(ctx context.Context, req StoreRequest) StoreResult {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}
	userID := req.UserID
	if userID == "" {
		userID = "default_user"
	}
	accessMode := types.AccessMode(req.AccessMode)
	if accessMode == "" {
		accessMode = types.AccessPrivate
	}

	m.log.InfoContext(ctx, "tool call start",
		"event_type", "tool_call_start",
		"tool_name", "store_memory",
		"session_id", sessionID,
		"subject", req.Subject,
	)

	if !validDate(req.MemoryDate) {
		reason := fmt.Sprintf("Invalid date format: %s. Expected YYYY-MM-DD.", req.MemoryDate)
		m.log.WarnContext(ctx, "tool call rejected", "event_type", "tool_call_rejected", "tool_name", "store_memory", "reason", reason)
		return StoreResult{Status: "error", Reason: reason, Notification: "Memory not saved (invalid date)", Stored: false}
	}

	content := normalize.Content(req.Content)
	importance := types.ClampImportance(normalize.Importance(req.Importance))
	subject := types.NormalizeSubject(req.Subject)

	settings, err := m.loadSettings(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "settings load error", "event_type", "settings_load_error", "error", err.Error())
		settings = config.Settings{ExtractionThreshold: defaultExtractionThreshold, AllowedSubjects: []string{"*"}}
	}

	logCtx := []any{
		"attempted_subject", req.Subject,
		"normalized_subject", subject,
		"importance", importance,
		"threshold", settings.ExtractionThreshold,
		"allowed_subjects", settings.AllowedSubjects,
	}

	if float64(importance) < settings.ExtractionThreshold {
		m.log.InfoContext(ctx, "memory store rejected", append([]any{"event_type", "memory_store_rejected", "reason", "importance_below_threshold"}, logCtx...)...)
		return StoreResult{
			Status:       "rejected",
			Reason:       "importance_below_threshold",
			Detail:       fmt.Sprintf("Importance %d is below threshold %.2f", importance, settings.ExtractionThreshold),
			Notification: "Memory not saved (below threshold)",
			Stored:       false,
		}
	}

	if !settings.SubjectAllowed(subject) {
		m.log.InfoContext(ctx, "memory store rejected", append([]any{"event_type", "memory_store_rejected", "reason", "subject_not_allowed"}, logCtx...)...)
		return StoreResult{
			Status:       "rejected",
			Reason:       "subject_not_allowed",
			Detail:       fmt.Sprintf("Subject %q is not in allowed subjects.", subject),
			Notification: "Memory not saved (subject not allowed)",
			Stored:       false,
		}
	}

	correlationID := uuid.NewString()
	decision, err := m.engine.Evaluate(ctx, policy.EvaluateInput{
		CorrelationID:   correlationID,
		SessionID:       sessionID,
		UserID:          userID,
		MemoryDate:      req.MemoryDate,
		Subject:         subject,
		Importance:      importance,
		AccessMode:      accessMode,
		ConfidenceScore: inferredConfidence,
		Source:          types.SourceInferred,
		Content:         content,
	})
	if err != nil {
		m.log.ErrorContext(ctx, "memory store crashed", "event_type", "memory_store_crashed", "reason", err.Error())
		return StoreResult{Status: "error", Reason: fmt.Sprintf("policy_unexpected_error: %v", err), Notification: "Failed to save memory", Stored: false}
	}

	return decisionToResult(decision)
}

func decisionToResult(d policy.Decision) StoreResult {
	switch d.Outcome {
	case policy.OutcomeAccept, policy.OutcomeSupersede:
		return StoreResult{
			Status:       "success",
			Stored:       true,
			MemoryID:     d.MemoryID,
			ReasonCode:   string(d.ReasonCode),
			Summary:      "Memory saved.",
			Notification: "Memory saved",
		}
	case policy.OutcomeExists:
		return StoreResult{Status: "exists", Stored: false, ReasonCode: string(d.ReasonCode), Notification: "Memory already recorded"}
	case policy.OutcomeReject:
		return StoreResult{Status: "rejected", Reason: string(d.ReasonCode), Stored: false, Notification: "Memory not saved (conflicting precedence)"}
	default:
		return StoreResult{Status: "error", Reason: "max_retries_exceeded", Stored: false, Notification: "Failed to save memory"}
	}
}

// RetrieveMemory validates scope against the allow-list and delegates to the
// Policy Engine's governed retrieval.
func (m *MemoryTool) RetrieveMemory(ctx context.Context, req RetrieveRequest) RetrieveResult {
	userID := req.UserID
	if userID == "" {
		userID = "default_user"
	}
	correlationID := uuid.NewString()

	m.log.InfoContext(ctx, "tool call start",
		"event_type", "tool_call_start",
		"tool_name", "retrieve_memory",
		"user_id", userID,
		"query", req.Query,
		"scope", req.Scope,
		"state_filter", req.StateFilter,
		"limit", req.Limit,
		"correlation_id", correlationID,
	)

	settings, err := m.loadSettings(ctx)
	if err != nil {
		m.log.ErrorContext(ctx, "settings load error", "event_type", "settings_load_error", "error", err.Error())
		settings = config.Settings{AllowedSubjects: []string{"*"}}
	}

	normalizedScope := make([]string, 0, len(req.Scope))
	for _, s := range req.Scope {
		norm := types.NormalizeSubject(s)
		if !settings.SubjectAllowed(norm) {
			reason := fmt.Sprintf("Scope %q is not allowed by current policy settings.", norm)
			m.log.WarnContext(ctx, "tool call rejected",
				"event_type", "tool_call_rejected",
				"tool_name", "retrieve_memory",
				"reason", reason,
				"correlation_id", correlationID,
			)
			return RetrieveResult{Status: "error", Reason: reason}
		}
		normalizedScope = append(normalizedScope, norm)
	}

	results, err := m.engine.Retrieve(ctx, policy.RetrieveInput{
		CorrelationID: correlationID,
		UserID:        userID,
		Query:         req.Query,
		Scope:         normalizedScope,
		StateFilter:   types.State(req.StateFilter),
		Limit:         req.Limit,
	})
	if err != nil {
		m.log.ErrorContext(ctx, "retrieval crashed", "event_type", "retrieval_crashed", "reason", err.Error(), "correlation_id", correlationID)
		return RetrieveResult{Status: "error", Detail: err.Error()}
	}

	return RetrieveResult{Status: "success", Results: results, ResultCount: len(results)}
}

// TransitionResult is the archive/delete tool response.
type TransitionResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ArchiveMemory moves a memory to the archived state.
func (m *MemoryTool) ArchiveMemory(ctx context.Context, userID string, memoryID int64) TransitionResult {
	return m.transition(ctx, userID, memoryID, types.StateArchived)
}

// DeleteMemory moves a memory to the deleted state.
func (m *MemoryTool) DeleteMemory(ctx context.Context, userID string, memoryID int64) TransitionResult {
	return m.transition(ctx, userID, memoryID, types.StateDeleted)
}

func (m *MemoryTool) transition(ctx context.Context, userID string, memoryID int64, to types.State) TransitionResult {
	if userID == "" {
		userID = "default_user"
	}
	correlationID := uuid.NewString()

	m.log.InfoContext(ctx, "tool call start",
		"event_type", "tool_call_start",
		"tool_name", "transition_memory",
		"user_id", userID,
		"memory_id", memoryID,
		"to_state", string(to),
		"correlation_id", correlationID,
	)

	err := m.engine.Transition(ctx, policy.TransitionInput{
		CorrelationID: correlationID,
		UserID:        userID,
		MemoryID:      memoryID,
		To:            to,
	})
	if err != nil {
		m.log.WarnContext(ctx, "tool call rejected",
			"event_type", "tool_call_rejected",
			"tool_name", "transition_memory",
			"reason", err.Error(),
			"correlation_id", correlationID,
		)
		return TransitionResult{Status: "error", Reason: err.Error()}
	}
	return TransitionResult{Status: "success"}
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
