package testutil

import (
	"fmt"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

// TurnBuilder provides a fluent helper for constructing scripted model turns.
// Example:
//
//	turn := NewTurnBuilder().Text("Let me check.").Call("get_weather", `{"latitude":1,"longitude":2}`).Build()
//
// Tool call ids default to call_1, call_2, ... in the order they are added.
type TurnBuilder struct {
	text      string
	calls     []core.ToolCall
	err       error
	fragments []model.Fragment
}

// NewTurnBuilder creates an empty builder.
func NewTurnBuilder() *TurnBuilder { return &TurnBuilder{} }

// Text sets the assistant text (chainable).
func (b *TurnBuilder) Text(t string) *TurnBuilder { b.text = t; return b }

// Call appends a tool call with a generated id (chainable).
func (b *TurnBuilder) Call(name, args string) *TurnBuilder {
	return b.CallWithID(fmt.Sprintf("call_%d", len(b.calls)+1), name, args)
}

// CallWithID appends a tool call with an explicit id (chainable).
func (b *TurnBuilder) CallWithID(id, name, args string) *TurnBuilder {
	b.calls = append(b.calls, core.NewToolCall(id, name, args))
	return b
}

// Fail makes the turn fail with err (chainable).
func (b *TurnBuilder) Fail(err error) *TurnBuilder { b.err = err; return b }

// Fragments overrides the streamed fragments of the turn (chainable).
func (b *TurnBuilder) Fragments(f ...model.Fragment) *TurnBuilder { b.fragments = f; return b }

// Build finalizes the turn.
func (b *TurnBuilder) Build() model.Turn {
	return model.Turn{
		Message:   core.AssistantMessage(b.text, b.calls...),
		Err:       b.err,
		Fragments: b.fragments,
	}
}

// Script assembles turns into a ScriptedModel.
type Script struct {
	turns []model.Turn
}

// NewScript creates an empty script.
func NewScript() *Script { return &Script{} }

// Turn appends a built turn (chainable).
func (s *Script) Turn(t *TurnBuilder) *Script { s.turns = append(s.turns, t.Build()); return s }

// Calls appends a turn requesting the given tools, each with empty arguments (chainable).
func (s *Script) Calls(names ...string) *Script {
	b := NewTurnBuilder()
	for _, n := range names {
		b.Call(n, "{}")
	}
	return s.Turn(b)
}

// Answer appends a final answer turn (chainable).
func (s *Script) Answer(text string) *Script { return s.Turn(NewTurnBuilder().Text(text)) }

// Turns returns a copy of the scripted turns.
func (s *Script) Turns() []model.Turn {
	out := make([]model.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Model returns a ScriptedModel replaying the script.
func (s *Script) Model() *model.ScriptedModel { return model.NewScriptedModel(s.Turns()...) }
