package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/archguide/internal/logging"
	"github.com/aretw0/archguide/pkg/domain"
)

// Event types pushed to SSE subscribers.
const (
	EventTurn   = "turn"
	EventMemory = "memory"
)

// StreamEvent is one server-sent event.
type StreamEvent struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id"`
	Result    *domain.TurnResult `json:"result,omitempty"`
	Memory    *domain.MemoryDiff `json:"memory,omitempty"`
}

// StreamManager handles active SSE connections.
// It implements ports.TurnObserver: register it on the engine and every saved
// turn is pushed to the subscribers of that session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan StreamEvent]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan StreamEvent]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a session. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan StreamEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamEvent, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan StreamEvent]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns the number of listeners of a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast sends ev to every listener of its session.
// Slow clients drop events instead of blocking the turn.
func (sm *StreamManager) Broadcast(ev StreamEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping event", "session_id", ev.SessionID, "type", ev.Type)
		}
	}
}

// ObserveTurn implements ports.TurnObserver.
func (sm *StreamManager) ObserveTurn(_ context.Context, prev, next domain.TurnState, result domain.TurnResult) {
	sm.Broadcast(StreamEvent{Type: EventTurn, SessionID: next.SessionID, Result: &result})
	if diff := domain.DiffMemory(next.SessionID, prev.Memory, next.Memory); diff != nil {
		sm.Broadcast(StreamEvent{Type: EventMemory, SessionID: next.SessionID, Memory: diff})
	}
}
