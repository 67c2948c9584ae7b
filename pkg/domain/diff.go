package domain

import (
	"reflect"
	"strings"
)

// MemoryDiff represents the changes a turn made to the session memory.
// It is designed to be serialized to JSON for partial updates on the client.
type MemoryDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	LastArtifact     *string `json:"last_artifact,omitempty"`
	LastStyle        *string `json:"last_style,omitempty"`
	QualityAttribute *string `json:"quality_attribute,omitempty"`
	Phase            *string `json:"phase,omitempty"`

	// Tactics holds the whole new array whenever it changed.
	Tactics []TacticItem `json:"tactics,omitempty"`

	// Appended holds the text added to the decision log.
	// If the log was rewritten rather than extended, it holds the whole log.
	Appended string `json:"appended,omitempty"`
}

// DiffMemory calculates the difference between two memories of a session.
// It returns nil when nothing changed.
func DiffMemory(sessionID string, old, new SessionMemory) *MemoryDiff {
	diff := &MemoryDiff{SessionID: sessionID}

	diff.LastArtifact = changed(old.LastArtifact, new.LastArtifact)
	diff.LastStyle = changed(old.LastStyle, new.LastStyle)
	diff.QualityAttribute = changed(old.QualityAttribute, new.QualityAttribute)
	diff.Phase = changed(old.Phase, new.Phase)

	if !reflect.DeepEqual(old.Tactics, new.Tactics) {
		diff.Tactics = CloneTactics(new.Tactics)
	}
	diff.Appended = appended(old.MemoryText, new.MemoryText)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func changed(old, new string) *string {
	if old == new {
		return nil
	}
	return &new
}

// appended assumes the append-only behavior of SessionMemory.Append.
func appended(old, new string) string {
	if old == new {
		return ""
	}
	if strings.HasPrefix(new, old) {
		return strings.TrimLeft(new[len(old):], "\n")
	}
	return new
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *MemoryDiff) IsEmpty() bool {
	return d.LastArtifact == nil &&
		d.LastStyle == nil &&
		d.QualityAttribute == nil &&
		d.Phase == nil &&
		d.Tactics == nil &&
		d.Appended == ""
}
