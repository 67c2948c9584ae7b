package domain

import "strings"

// TurnState is the single record for one user turn.
//
// It is passed by value: every component receives a TurnState and returns a
// new one. Mutating helpers (With*, MarkVisited) work on a Clone so callers
// never observe aliasing through the maps and slices.
type TurnState struct {
	// SessionID identifies the long-lived conversation.
	SessionID string `json:"session_id"`

	Language Language `json:"language"`
	Intent   Intent   `json:"intent"`

	// ForcedIntent pins the turn to a stage, bypassing the generic dispatcher.
	ForcedIntent Intent `json:"forced_intent,omitempty"`

	// UserQuestion is the raw (sanitized) user text for this turn.
	UserQuestion string `json:"user_question"`

	// LocalQuestion is the stage-specific sub-instruction chosen by the router.
	LocalQuestion string `json:"local_question,omitempty"`

	NextStage Stage `json:"next_stage,omitempty"`

	// Visited holds the stages executed this turn, in execution order.
	// Reset at Boot; only grows within a turn.
	Visited []Stage `json:"visited,omitempty"`

	EndMessage  string                `json:"end_message,omitempty"`
	Results     map[Stage]StageResult `json:"results,omitempty"`
	Suggestions []string              `json:"suggestions,omitempty"`

	// Trace records the prompts and replies of this turn (role/name/content).
	Trace []Message `json:"trace,omitempty"`

	// ForceRAG is set by the classifier when grounding is worth fetching.
	ForceRAG bool `json:"force_rag,omitempty"`

	// DocOnly restricts every stage to DocContext as its only grounding.
	DocOnly    bool   `json:"doc_only,omitempty"`
	DocContext string `json:"doc_context,omitempty"`
	AddContext string `json:"add_context,omitempty"`

	Memory SessionMemory `json:"memory"`

	// Sealed carries the encrypted record when the store encrypts at rest.
	// A sealed state has no other content besides SessionID.
	Sealed string `json:"sealed,omitempty"`
}

// NewTurnState creates an empty state for a new session.
func NewTurnState(sessionID string) TurnState {
	return TurnState{
		SessionID: sessionID,
		Language:  LangEnglish,
		Intent:    IntentGeneral,
		Results:   make(map[Stage]StageResult),
	}
}

// Boot resets the per-turn ephemeral fields while preserving cross-turn memory.
// It never fails.
func Boot(prev TurnState, userText string) TurnState {
	next := prev.Clone()
	next.UserQuestion = userText
	next.LocalQuestion = ""
	next.NextStage = ""
	next.Visited = nil
	next.EndMessage = ""
	next.Results = make(map[Stage]StageResult)
	next.Suggestions = nil
	next.Trace = nil
	next.ForceRAG = false
	if next.Language == "" {
		next.Language = LangEnglish
	}
	return next
}

// Clone deep-copies the state.
func (s TurnState) Clone() TurnState {
	next := s
	if s.Visited != nil {
		next.Visited = append([]Stage(nil), s.Visited...)
	}
	next.Results = make(map[Stage]StageResult, len(s.Results))
	for k, v := range s.Results {
		next.Results[k] = v.clone()
	}
	if s.Suggestions != nil {
		next.Suggestions = append([]string(nil), s.Suggestions...)
	}
	if s.Trace != nil {
		next.Trace = append([]Message(nil), s.Trace...)
	}
	next.Memory = s.Memory.Clone()
	return next
}

// HasVisited reports whether the stage already ran this turn.
func (s TurnState) HasVisited(stage Stage) bool {
	for _, v := range s.Visited {
		if v == stage {
			return true
		}
	}
	return false
}

// MarkVisited returns a copy with the stage appended to Visited (once).
func (s TurnState) MarkVisited(stage Stage) TurnState {
	next := s.Clone()
	if !next.HasVisited(stage) {
		next.Visited = append(next.Visited, stage)
	}
	return next
}

// WithResult returns a copy carrying the stage output.
func (s TurnState) WithResult(stage Stage, res StageResult) TurnState {
	next := s.Clone()
	next.Results[stage] = res.clone()
	return next
}

// Result returns the stage output recorded this turn, if any.
func (s TurnState) Result(stage Stage) (StageResult, bool) {
	r, ok := s.Results[stage]
	return r, ok
}

// WithTrace returns a copy with the message appended to the turn trace.
func (s TurnState) WithTrace(role Role, name, content string) TurnState {
	next := s.Clone()
	next.Trace = append(next.Trace, Message{Role: role, Name: name, Content: content})
	return next
}

// StageResult is the typed payload a stage leaves in the turn record.
type StageResult struct {
	// Text is the primary user-facing output of the stage.
	Text string `json:"text,omitempty"`

	Sources []Passage    `json:"sources,omitempty"`
	Tactics []TacticItem `json:"tactics,omitempty"`
	Diagram string       `json:"diagram,omitempty"`
	Style   *StyleChoice `json:"style,omitempty"`

	// Degraded marks a fallback output produced after a collaborator failure.
	Degraded bool `json:"degraded,omitempty"`

	// Note carries a short machine-readable remark (e.g. the parse-failure sentinel).
	Note string `json:"note,omitempty"`
}

func (r StageResult) clone() StageResult {
	next := r
	if r.Sources != nil {
		next.Sources = append([]Passage(nil), r.Sources...)
	}
	if r.Tactics != nil {
		next.Tactics = CloneTactics(r.Tactics)
	}
	if r.Style != nil {
		st := *r.Style
		st.Options = append([]StyleOption(nil), r.Style.Options...)
		next.Style = &st
	}
	return next
}

// StyleOption is one candidate architecture style with its impact on the ASR.
type StyleOption struct {
	Name   string `json:"name"`
	Impact string `json:"impact"`
}

// StyleChoice is the structured output of the style stage.
type StyleChoice struct {
	Options   []StyleOption `json:"options"`
	Chosen    string        `json:"chosen"`
	Rationale string        `json:"rationale,omitempty"`
}

// SessionMemory is owned by the session and outlives individual turns.
// Only stage executors mutate it, and only on successful completion.
type SessionMemory struct {
	// LastArtifact is the most recent finalized driver document (the ASR).
	LastArtifact string `json:"last_artifact,omitempty"`

	// MemoryText is an append-only log of prior decisions.
	MemoryText string `json:"memory_text,omitempty"`

	LastStyle        string       `json:"last_style,omitempty"`
	QualityAttribute string       `json:"quality_attribute,omitempty"`
	Tactics          []TacticItem `json:"tactics,omitempty"`

	// Phase is the current design-method phase (ASR, STYLE, TACTICS, DIAGRAM).
	Phase string `json:"phase,omitempty"`
}

// Clone deep-copies the memory.
func (m SessionMemory) Clone() SessionMemory {
	next := m
	if m.Tactics != nil {
		next.Tactics = CloneTactics(m.Tactics)
	}
	return next
}

// Append returns a copy with a tagged block added to MemoryText.
func (m SessionMemory) Append(tag, body string) SessionMemory {
	next := m.Clone()
	block := "[" + tag + "]\n" + strings.TrimSpace(body)
	if next.MemoryText == "" {
		next.MemoryText = block
	} else {
		next.MemoryText = next.MemoryText + "\n\n" + block
	}
	return next
}
