/*
Package ports defines the driven ports (interfaces) for the archguide engine.

These interfaces decouple the turn core from external collaborators, so the
router and recovery pipeline can run against real services or scripted fakes.

# Key Interfaces

  - Oracle: the generation model (free text and schema-constrained replies).
  - Retriever: the knowledge base lookup used for grounding.
  - SessionStore: persists the TurnState (and its SessionMemory) between turns.
  - DistributedLocker: serializes turns of one session across replicas.
  - TurnEngine: the driving port implemented by the engine itself.
  - TurnObserver: notified after every saved turn (used for live updates).
*/
package ports
