package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/archguide/pkg/domain"
)

// TextHandler implements the standard text-based interface.
//
// Lines are sent as-is. A few slash commands are understood:
//
//	/asr, /style, /tactics, /diagram <text>   pin the turn to that stage
//	/quit, /exit                              end the conversation
//
// A bare number picks one of the suggestions of the previous reply.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	mu          sync.Mutex
	suggestions []string

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// initPump starts the reader goroutine so Input can honor ctx while a read blocks.
func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Input(ctx context.Context) (domain.TurnRequest, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return domain.TurnRequest{}, ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return domain.TurnRequest{}, ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return domain.TurnRequest{}, io.EOF
			}
			if res.err != nil {
				return domain.TurnRequest{}, res.err
			}
			line := strings.TrimSpace(res.text)
			if line == "" {
				continue
			}
			req, quit := h.parse(line)
			if quit {
				return domain.TurnRequest{}, io.EOF
			}
			return req, nil
		}
	}
}

func (h *TextHandler) parse(line string) (domain.TurnRequest, bool) {
	if n, err := strconv.Atoi(line); err == nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		if n >= 1 && n <= len(h.suggestions) {
			return domain.TurnRequest{Text: h.suggestions[n-1]}, false
		}
		return domain.TurnRequest{Text: line}, false
	}
	if !strings.HasPrefix(line, "/") {
		return domain.TurnRequest{Text: line}, false
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		return domain.TurnRequest{}, true
	case "asr", "style", "tactics", "diagram":
		intent := domain.Intent(strings.ToLower(cmd))
		if rest == "" {
			rest = string(intent)
		}
		return domain.TurnRequest{Text: rest, ForcedIntent: intent}, false
	}
	return domain.TurnRequest{Text: line}, false
}

func (h *TextHandler) Output(ctx context.Context, result domain.TurnResult) error {
	h.mu.Lock()
	h.suggestions = append([]string(nil), result.Suggestions...)
	h.mu.Unlock()

	output := FormatResult(result)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return err
}

// FormatResult lays a turn result out as markdown: the message, the
// diagram as a mermaid block and the numbered suggestions.
func FormatResult(result domain.TurnResult) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(result.Message))
	if result.Diagram != "" {
		b.WriteString("\n\n```mermaid\n")
		b.WriteString(result.Diagram)
		b.WriteString("\n```")
	}
	if len(result.Suggestions) > 0 {
		b.WriteString("\n\n")
		for i, s := range result.Suggestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	return b.String()
}
