package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/archguide/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
//
// Each input line is either a TurnRequest object, a JSON string or plain text.
// Each turn result is written as one JSON line; system messages are written
// as {"system": "..."}.
type JSONHandler struct {
	Reader *bufio.Reader
	Writer io.Writer

	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Input(ctx context.Context) (domain.TurnRequest, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.TurnRequest{}, err
		}
		line, err := h.Reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if text == "" {
			if err != nil {
				return domain.TurnRequest{}, err
			}
			continue
		}
		return decodeRequest(text), nil
	}
}

func decodeRequest(text string) domain.TurnRequest {
	if strings.HasPrefix(text, "{") {
		var req domain.TurnRequest
		if err := json.Unmarshal([]byte(text), &req); err == nil {
			return req
		}
	}
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return domain.TurnRequest{Text: val}
	}
	return domain.TurnRequest{Text: text}
}

func (h *JSONHandler) Output(ctx context.Context, result domain.TurnResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(result)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(map[string]string{"system": msg})
}
