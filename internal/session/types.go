package session

import (
	"time"

	"github.com/ent0n29/deckpilot/internal/command"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// DispatchState is where a session sits in the listen/interpret/execute cycle.
type DispatchState string

const (
	StateIdle                  DispatchState = "idle"
	StateListening             DispatchState = "listening"
	StateInterpreting          DispatchState = "interpreting"
	StateExecuting             DispatchState = "executing"
	StateAwaitingClarification DispatchState = "awaiting_clarification"
	StateFallbackGeneration    DispatchState = "fallback_generation"
	StateFeedback              DispatchState = "feedback"
)

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id"`
}

// Clarification is the question a session is waiting on. Either Param is
// missing from Params, or Candidate is a near-miss intent awaiting a yes/no.
type Clarification struct {
	Kind       command.ErrorKind    `json:"kind"`
	Intent     command.Intent       `json:"intent,omitempty"`
	Param      command.Param        `json:"param,omitempty"`
	Candidate  command.Intent       `json:"candidate,omitempty"`
	RunnerUp   command.Intent       `json:"runner_up,omitempty"`
	Prompt     string               `json:"prompt"`
	Transcript command.Transcript   `json:"transcript"`
	Params     command.ParameterBag `json:"-"`
	Attempts   int                  `json:"attempts"`
}

type Outcome string

const (
	OutcomeExecuted  Outcome = "executed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeClarify   Outcome = "clarify"
	OutcomeGenerated Outcome = "generated"
	OutcomeFailed    Outcome = "failed"
	OutcomeInfo      Outcome = "info"
)

// RecentAction is one entry of a session's action log.
type RecentAction struct {
	At         time.Time      `json:"at"`
	Transcript string         `json:"transcript"`
	Intent     command.Intent `json:"intent"`
	ActionID   string         `json:"action_id,omitempty"`
	Outcome    Outcome        `json:"outcome"`
	Message    string         `json:"message,omitempty"`
}

type Stats struct {
	CommandsProcessed int `json:"commands_processed"`
	CommandsSucceeded int `json:"commands_succeeded"`
	Clarifications    int `json:"clarifications"`
	Generations       int `json:"generations"`
	Failures          int `json:"failures"`
}

// Snapshot is a point-in-time copy of a session for API responses.
type Snapshot struct {
	SessionID       string          `json:"session_id"`
	UserID          string          `json:"user_id,omitempty"`
	Status          Status          `json:"status"`
	DispatchState   DispatchState   `json:"dispatch_state"`
	Pending         *Clarification  `json:"pending_clarification,omitempty"`
	Recent          []RecentAction  `json:"recent_actions"`
	Stats           Stats           `json:"stats"`
	Deck            command.Summary `json:"deck"`
	StartedAt       time.Time       `json:"started_at"`
	LastActivityAt  time.Time       `json:"last_activity_at"`
	InactivityTTLMS int64           `json:"inactivity_ttl_ms"`
}
