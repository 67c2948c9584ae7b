package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/archguide"
	"github.com/aretw0/archguide/internal/presentation/tui"
	"github.com/aretw0/archguide/pkg/runner"
	"github.com/aretw0/archguide/pkg/session"
)

// ChatOptions contains the configuration of the chat command.
type ChatOptions struct {
	SessionID string
	JSON      bool

	// DocPath is a document sent as context with every turn.
	DocPath string
	DocOnly bool

	AddContext string
	NoBanner   bool
}

// RunChat runs the interactive loop until EOF, /quit or a signal.
func RunChat(ctx context.Context, app *App, opts ChatOptions, in io.Reader, out io.Writer) error {
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}

	var doc string
	if opts.DocPath != "" {
		data, err := os.ReadFile(opts.DocPath)
		if err != nil {
			return fmt.Errorf("error reading --doc: %w", err)
		}
		doc = strings.TrimSpace(string(data))
	} else if opts.DocOnly {
		return fmt.Errorf("--doc-only requires --doc")
	}

	runnerOpts := []runner.Option{
		runner.WithEngine(app.Engine),
		runner.WithLogger(app.Logger),
		runner.WithSessionID(sessionID),
		runner.WithMaxInputSize(app.Config.MaxInputSize),
		runner.WithDocContext(doc, opts.DocOnly),
		runner.WithAddContext(opts.AddContext),
	}

	if opts.JSON {
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewJSONHandler(in, out)))
	} else {
		var thOpts []runner.TextHandlerOption
		interactive := tui.IsInteractive()
		if render, err := tui.NewRenderer(tui.TerminalWidth(int(os.Stdout.Fd())), interactive); err == nil {
			thOpts = append(thOpts, runner.WithTextHandlerRenderer(render))
		} else {
			app.Logger.Warn("Markdown renderer unavailable", "err", err)
		}
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewTextHandler(in, out, thOpts...)))

		if !opts.NoBanner {
			tui.PrintBanner(out, archguide.Version)
		}
		if _, err := app.Engine.Sessions().Load(ctx, sessionID); err == nil {
			printSystemMessage(out, "Resuming session '%s'.", sessionID)
		} else {
			printSystemMessage(out, "Session '%s' active. Commands: /asr /style /tactics /diagram /quit", sessionID)
		}
	}

	r := runner.NewRunner(runnerOpts...)
	return handleExecutionError(r.Run(ctx))
}
