/*
Package runner implements the interactive conversation loop over a turn engine.

The runner reads requests from a pluggable IOHandler, sanitizes the text,
runs one turn per request and writes the result back. Text mode renders
markdown for terminals; JSON mode speaks JSON-Lines for scripts.

# Usage

	r := runner.NewRunner(
		runner.WithEngine(engine),
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
