package domain

// Role is the author of a message sent to the generation oracle.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one part of a multi-part oracle prompt, also used for turn traces.
type Message struct {
	Role    Role   `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Passage is one grounding snippet returned by the knowledge retriever.
type Passage struct {
	Text        string `json:"text" yaml:"text"`
	SourceTitle string `json:"source_title,omitempty" yaml:"source_title"`
	SourcePath  string `json:"source_path,omitempty" yaml:"source_path"`
	Page        *int   `json:"page,omitempty" yaml:"page"`
}

// TurnRequest is what a transport hands to the engine for one turn.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`

	// ForcedIntent optionally pins the stage (asr, style, tactics, diagram).
	ForcedIntent Intent `json:"forced_intent,omitempty"`

	DocOnly    bool   `json:"doc_only,omitempty"`
	DocContext string `json:"doc_context,omitempty"`
	AddContext string `json:"add_context,omitempty"`
}

// TurnResult is the user-facing outcome of one turn.
type TurnResult struct {
	SessionID   string       `json:"session_id"`
	Message     string       `json:"message"`
	Suggestions []string     `json:"suggestions"`
	Language    Language     `json:"language"`
	Intent      Intent       `json:"intent"`
	Visited     []Stage      `json:"visited"`
	Diagram     string       `json:"diagram,omitempty"`
	Tactics     []TacticItem `json:"tactics,omitempty"`
}
