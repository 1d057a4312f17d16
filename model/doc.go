// Package model defines the provider‑agnostic abstractions for talking to
// language models inside agentloop.
//
// Core goals:
//   - One request shape for streaming and non‑streaming generation (Request)
//   - Normalized tool / function call representation (ToolDefinition, core.ToolCall)
//   - Explicit pull-based streams (Stream.Recv returning io.EOF at the end)
//   - Reconstruction of complete messages from stream fragments (Accumulator)
//   - Lightweight scripted models for tests (ScriptedModel)
//
// Providers (see the openai and anthropic sub packages) implement the Model
// interface so the agent loop stays decoupled from vendor SDKs.
package model
