// Package agent implements the tool calling loop.
//
// An Agent pairs a model.Model with a tool.Catalog. Each run starts a fresh
// conversation from the system instruction and the user's message, then
// repeatedly:
//
//  1. asks the model for the next assistant message,
//  2. returns it as the answer when it requests no tools, or
//  3. dispatches every requested tool call in order, appending one tool
//     message per call, and goes back to 1.
//
// The number of model round-trips is capped (DefaultMaxIterations unless
// configured). A run that reaches the cap ends with FallbackText and
// StatusCapped instead of an error.
//
// Tool failures never end a run: they reach the model as tool messages
// carrying an "error" key, so it can recover or explain. Model failures and
// context cancellation end the run with an error.
//
// Run blocks until the answer is ready. RunStream exposes the same loop as a
// sequence of Chunks (text deltas, tool calls, tool results) for interactive
// frontends.
package agent
