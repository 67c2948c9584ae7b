/*
Package archguide is a multi-turn software architecture design assistant.

Each user turn is classified, routed through a small set of stages (research,
drafting, critique, diagramming, requirements, style and tactics) and
aggregated into one reply. The routing is deterministic around the model's
suggestions: rules decide, the model only proposes. Structured tactic output
is recovered from free text so a turn always yields exactly K items or an
explicit "no structured result".

# Usage

	oracle, err := genai.New(ctx, os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		log.Fatal(err)
	}

	eng, err := archguide.New(oracle, archguide.WithTacticsCount(3))
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Turn(ctx, domain.TurnRequest{
		SessionID: "session-123",
		Text:      "Draft an ASR for checkout latency under peak load",
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Message)

Session memory (the last requirement, chosen style, tactics and the decision
log) is kept between turns by a ports.SessionStore; see pkg/adapters for the
memory, file and redis implementations.
*/
package archguide
