// Package core provides the foundational domain types shared by the model,
// tool and agent packages of agentloop:
//
//   - Message / ToolCall / ToolResult (the chat transcript wire shapes)
//   - Conversation (the append-only transcript owned by a single run)
//   - Value / Object (structured JSON values used for tool arguments and results)
//
// The package intentionally keeps transport, persistence and orchestration out
// of scope so every other package can depend on it without cycles.
package core
