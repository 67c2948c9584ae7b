package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/archguide/pkg/adapters/memory"
	"github.com/aretw0/archguide/pkg/domain"
	"github.com/aretw0/archguide/pkg/ports"
	"github.com/aretw0/archguide/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.TurnObserver = (*StreamManager)(nil)

type fakeEngine struct {
	last domain.TurnRequest
	err  error
}

func (f *fakeEngine) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	f.last = req
	if f.err != nil {
		return domain.TurnResult{}, f.err
	}
	return domain.TurnResult{
		SessionID:   req.SessionID,
		Message:     "reply to " + req.Text,
		Suggestions: []string{"next"},
		Language:    domain.LangEnglish,
		Intent:      domain.IntentArchitecture,
		Visited:     []domain.Stage{domain.StageInvestigator},
	}, nil
}

func newTestHandler(t *testing.T, eng ports.TurnEngine, opts ...Option) (http.Handler, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(memory.NewStore())
	return NewHandler(eng, sessions, opts...), sessions
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostTurn(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		engineErr  error
		wantStatus int
		wantText   string
	}{
		{"ok", `{"session_id":"s1","text":"what is ADD?"}`, nil, http.StatusOK, "what is ADD?"},
		{"control chars stripped", `{"session_id":"s1","text":"hi\u0007 there"}`, nil, http.StatusOK, "hi there"},
		{"forced intent", `{"session_id":"s1","text":"draft","forced_intent":"asr"}`, nil, http.StatusOK, "draft"},
		{"bad forced intent", `{"session_id":"s1","text":"draft","forced_intent":"poem"}`, nil, http.StatusBadRequest, ""},
		{"bad json", `{"text":`, nil, http.StatusBadRequest, ""},
		{"too large", `{"text":"` + strings.Repeat("a", 100) + `"}`, nil, http.StatusBadRequest, ""},
		{"empty input", `{"text":"  "}`, domain.ErrEmptyInput, http.StatusBadRequest, ""},
		{"store down", `{"text":"hi"}`, errors.New("redis: connection refused"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{err: tt.engineErr}
			h, _ := newTestHandler(t, eng, WithMaxInputSize(64))

			w := do(t, h, http.MethodPost, "/turn", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			if tt.wantStatus != http.StatusOK {
				assert.Contains(t, w.Body.String(), `"error"`)
				return
			}

			var res domain.TurnResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.Equal(t, "reply to "+tt.wantText, res.Message)
			assert.Equal(t, tt.wantText, eng.last.Text)
		})
	}
}

func TestPostTurn_ForwardsRequestFields(t *testing.T) {
	eng := &fakeEngine{}
	h, _ := newTestHandler(t, eng)

	w := do(t, h, http.MethodPost, "/turn", `{"session_id":"s9","text":"tactics?","forced_intent":"tactics","doc_only":true,"doc_context":"3k rps","add_context":"team of 4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.TurnRequest{
		SessionID:    "s9",
		Text:         "tactics?",
		ForcedIntent: domain.IntentTactics,
		DocOnly:      true,
		DocContext:   "3k rps",
		AddContext:   "team of 4",
	}, eng.last)
}

func TestSessionsEndpoints(t *testing.T) {
	h, sessions := newTestHandler(t, &fakeEngine{})
	ctx := context.Background()

	w := do(t, h, http.MethodGet, "/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())

	state := domain.NewTurnState("s1")
	state.Memory.LastStyle = "Microservices"
	require.NoError(t, sessions.Save(ctx, "s1", state))

	w = do(t, h, http.MethodGet, "/sessions", "")
	assert.JSONEq(t, `{"sessions":["s1"]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.TurnState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Microservices", got.Memory.LastStyle)

	w = do(t, h, http.MethodDelete, "/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/s1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSanitizeDiagram(t *testing.T) {
	h, _ := newTestHandler(t, &fakeEngine{})

	w := do(t, h, http.MethodPost, "/diagram/sanitize", `{"diagram":"graph LR\napi --|MISS| cb[\"Circuit Breaker\"]"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SanitizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "graph LR\ncb[\"Circuit Breaker\"]\napi --|MISS| cb", resp.Diagram)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Problem)

	w = do(t, h, http.MethodPost, "/diagram/sanitize", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthInfoAndCORS(t *testing.T) {
	h, _ := newTestHandler(t, &fakeEngine{}, WithVersion("1.2.3\n"))

	w := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, h, http.MethodGet, "/info", "")
	assert.JSONEq(t, `{"app":"archguide-http","version":"1.2.3"}`, w.Body.String())

	w = do(t, h, http.MethodOptions, "/turn", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archguide_turns_total 1\n"))
	})
	h, _ := newTestHandler(t, &fakeEngine{}, WithMetrics(metrics))
	w := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, "archguide_turns_total 1\n", w.Body.String())

	h, _ = newTestHandler(t, &fakeEngine{})
	w = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeEvents_RequiresSession(t *testing.T) {
	h, _ := newTestHandler(t, &fakeEngine{})
	w := do(t, h, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribeEvents_Session(t *testing.T) {
	streams := NewStreamManager(nil)
	h, _ := newTestHandler(t, &fakeEngine{}, WithStreams(streams))
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=s1&watch=memory", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return streams.Subscribers("s1") == 1 }, time.Second, 10*time.Millisecond)

	prev := domain.NewTurnState("s1")
	next := prev.Clone()
	next.Memory = next.Memory.Append("STYLE", "Event-driven")
	next.Memory.LastStyle = "Event-driven"
	streams.ObserveTurn(ctx, prev, next, domain.TurnResult{SessionID: "s1", Message: "done"})

	// The turn event is filtered out by watch=memory.
	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		switch {
		case strings.HasPrefix(line, "event: ") && !strings.Contains(line, "ping"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: ") && event != "":
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}
	assert.Equal(t, EventMemory, event)

	var ev StreamEvent
	require.NoError(t, json.NewDecoder(bytes.NewReader([]byte(data))).Decode(&ev))
	require.NotNil(t, ev.Memory)
	assert.Equal(t, "Event-driven", *ev.Memory.LastStyle)
	assert.Equal(t, "[STYLE]\nEvent-driven", ev.Memory.Appended)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("s1")

	for i := 0; i < 20; i++ {
		sm.Broadcast(StreamEvent{Type: EventTurn, SessionID: "s1"})
	}
	assert.Len(t, ch, 10, "the buffer caps pending events")

	sm.Broadcast(StreamEvent{Type: EventTurn, SessionID: "other"})
	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers("s1"))
}
