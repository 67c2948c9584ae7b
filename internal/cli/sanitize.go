package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/archguide/internal/diagram"
)

// SanitizeDiagram reads a diagram from r, writes the sanitized text to w and
// returns the structural problem, if any, that remains after sanitizing.
func SanitizeDiagram(r io.Reader, w io.Writer) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading diagram: %w", err)
	}
	clean := diagram.Sanitize(string(raw))
	fmt.Fprintln(w, clean)
	if err := diagram.Validate(diagram.Parse(clean)); err != nil {
		return fmt.Errorf("diagram still invalid: %w", err)
	}
	return nil
}
