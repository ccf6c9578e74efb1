/*
Package domain contains the core domain models of the Voyage agent.

It defines the conversation (Messages, Tool Calls), the session snapshot
(State and its Phase) and the routing vocabulary of the loop. This package is
kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Message: a tagged variant over system, human, ai and tool messages.
  - ToolCall: a model-issued request to invoke a named tool.
  - State: the persisted snapshot of a session (Phase, Messages, Output).
  - Phase: the position of the session in the loop (model, tools, email).
  - Route: the outcome of the decision point after a model step.
*/
package domain
