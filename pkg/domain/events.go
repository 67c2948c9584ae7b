package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStageEnter EventType = "stage_enter"
	EventStageLeave EventType = "stage_leave"
	EventRoute      EventType = "route"
	EventRecovery   EventType = "recovery"
	EventTurnEnd    EventType = "turn_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StageEvent represents entry or exit from a stage executor.
type StageEvent struct {
	EventBase
	Stage    Stage         `json:"stage"`
	Degraded bool          `json:"degraded,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RouteEvent records one supervisor decision and the rule that produced it.
type RouteEvent struct {
	EventBase
	Candidate Stage  `json:"candidate"`
	Resolved  Stage  `json:"resolved"`
	Reason    string `json:"reason"`
}

// RecoveryEvent records the outcome of the structured output cascade.
type RecoveryEvent struct {
	EventBase
	Strategy string `json:"strategy"`
	Items    int    `json:"items"`
	Err      error  `json:"-"`
}

// TurnEvent closes a turn.
type TurnEvent struct {
	EventBase
	Intent   Intent        `json:"intent"`
	Visited  []Stage       `json:"visited"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStageEnter func(context.Context, *StageEvent)
	OnStageLeave func(context.Context, *StageEvent)
	OnRoute      func(context.Context, *RouteEvent)
	OnRecovery   func(context.Context, *RecoveryEvent)
	OnTurnEnd    func(context.Context, *TurnEvent)
}

// NewEventBase stamps an event with the current time.
func NewEventBase(t EventType, sessionID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, SessionID: sessionID}
}
