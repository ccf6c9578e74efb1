/*
Package ports defines the driven ports (interfaces) of the Voyage agent.

These interfaces decouple the conversation loop from external implementations,
allowing it to work with various language models, storage backends and
approval mechanisms.

# Key Interfaces

  - ChatModel: sends a conversation to a language model and returns its response.
  - StateStore: persists and loads session State (the checkpoint collaborator).
  - DistributedLocker: provides distributed locking for concurrent session access.
  - ApprovalGate: blocks until an external actor approves the email step.
*/
package ports
