package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/archguide/internal/presentation/graph"
	"github.com/aretw0/archguide/pkg/ports"
)

// ListSessions prints the ids of every stored session.
func ListSessions(ctx context.Context, store ports.SessionStore, w io.Writer) error {
	sessions, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}
	fmt.Fprintln(w, "Active Sessions:")
	for _, s := range sessions {
		fmt.Fprintln(w, "- "+s)
	}
	return nil
}

// InspectSession prints a session. The default view is a memory summary;
// raw prints the whole record as indented JSON.
func InspectSession(ctx context.Context, store ports.SessionStore, sessionID string, raw bool, w io.Writer) error {
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}

	if raw {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling state: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	mem := state.Memory
	fmt.Fprintf(w, "Session:  %s\n", state.SessionID)
	fmt.Fprintf(w, "Language: %s\n", state.Language)
	fmt.Fprintf(w, "Intent:   %s\n", state.Intent)
	if mem.Phase != "" {
		fmt.Fprintf(w, "Phase:    %s\n", mem.Phase)
	}
	if mem.QualityAttribute != "" {
		fmt.Fprintf(w, "Quality:  %s\n", mem.QualityAttribute)
	}
	if mem.LastStyle != "" {
		fmt.Fprintf(w, "Style:    %s\n", mem.LastStyle)
	}
	if mem.LastArtifact != "" {
		fmt.Fprintf(w, "\nASR:\n%s\n", indent(mem.LastArtifact))
	}
	if len(mem.Tactics) > 0 {
		fmt.Fprintln(w, "\nTactics:")
		for _, t := range mem.Tactics {
			fmt.Fprintf(w, "  %d. %s (p=%.2f)\n", t.Rank, t.Name, t.SuccessProbability)
		}
	}
	return nil
}

// GraphSession prints the stage flow of the last turn of a session as Mermaid.
func GraphSession(ctx context.Context, store ports.SessionStore, sessionID string, w io.Writer) error {
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}
	fmt.Fprint(w, graph.GenerateMermaid(&graph.Overlay{Visited: state.Visited, Intent: state.Intent}))
	return nil
}

// RemoveSessions deletes each session, reporting every failure.
func RemoveSessions(ctx context.Context, store ports.SessionStore, ids []string, w io.Writer) error {
	var errs []error
	for _, sessionID := range ids {
		if err := store.Delete(ctx, sessionID); err != nil {
			errs = append(errs, fmt.Errorf("error removing '%s': %w", sessionID, err))
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", sessionID)
	}
	return errors.Join(errs...)
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n  ")
}
