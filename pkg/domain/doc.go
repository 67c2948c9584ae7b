/*
Package domain contains the core domain models of the archguide turn engine.

It defines the records that flow through one conversational turn and the
vocabulary shared by the router, the stage executors and the aggregator. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - TurnState: the per-turn record threaded through every component by value.
  - SessionMemory: cross-turn decisions owned by the session (last ASR, style, tactics).
  - Stage / Intent / Language: the closed vocabularies used for routing.
  - TacticItem: one entry of the exactly-K structured tactic array.
  - DiagramGraph: the line-oriented diagram description (declarations + edges).
*/
package domain
