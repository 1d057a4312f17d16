package model

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/agentloop/core"
)

// maxToolCallIndex bounds the slot table so a corrupt delta index can not
// trigger a huge allocation.
const maxToolCallIndex = 1024

// partialCall aggregates streaming deltas (id, name, arguments) of one tool call.
type partialCall struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// Accumulator folds stream fragments into a complete assistant message.
//
// Content deltas are concatenated in arrival order. Tool call deltas are
// routed to a slot by index; slots are created contiguously up to the highest
// index seen, the first non-empty id of a slot wins and name / argument pieces
// are appended. On finalization only slots that received an id are kept.
type Accumulator struct {
	content strings.Builder
	calls   []*partialCall
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds one fragment into the accumulated state.
func (a *Accumulator) Add(f Fragment) error {
	for _, d := range f.ToolCallDeltas {
		if d.Index < 0 || d.Index > maxToolCallIndex {
			return fmt.Errorf("tool call delta index %d out of range", d.Index)
		}
	}

	a.content.WriteString(f.ContentDelta)

	for _, d := range f.ToolCallDeltas {
		for len(a.calls) <= d.Index {
			a.calls = append(a.calls, &partialCall{})
		}
		slot := a.calls[d.Index]
		if slot.id == "" && d.ID != "" {
			slot.id = d.ID
		}
		slot.name.WriteString(d.Function.Name)
		slot.args.WriteString(d.Function.Arguments)
	}
	return nil
}

// Content returns the text accumulated so far.
func (a *Accumulator) Content() string { return a.content.String() }

// ToolCalls returns the finalized tool calls ordered by stream index.
func (a *Accumulator) ToolCalls() []core.ToolCall {
	var calls []core.ToolCall
	for _, slot := range a.calls {
		if slot.id == "" {
			continue
		}
		calls = append(calls, core.NewToolCall(slot.id, slot.name.String(), slot.args.String()))
	}
	return calls
}

// Dropped returns the number of slots discarded because they never received an id.
func (a *Accumulator) Dropped() int {
	n := 0
	for _, slot := range a.calls {
		if slot.id == "" {
			n++
		}
	}
	return n
}

// Message returns the reconstructed assistant message.
func (a *Accumulator) Message() core.Message {
	return core.AssistantMessage(a.Content(), a.ToolCalls()...)
}

// Collect drains stream into a new Accumulator, invoking onFragment (if not
// nil) for every fragment after it was folded. The stream is always closed.
func Collect(stream Stream, onFragment func(Fragment) error) (*Accumulator, error) {
	defer stream.Close()

	acc := NewAccumulator()
	for {
		f, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return acc, nil
		}
		if err != nil {
			return acc, err
		}
		if err := acc.Add(f); err != nil {
			return acc, err
		}
		if onFragment != nil {
			if err := onFragment(f); err != nil {
				return acc, err
			}
		}
	}
}

// Split breaks a complete message into fragments of at most size runes per
// text field (size <= 0 keeps fields whole). Content comes first; tool call
// pieces are interleaved round-robin across call indices, each call starting
// with a fragment that carries only its id.
func Split(msg core.Message, size int) []Fragment {
	var fragments []Fragment
	for _, piece := range chunk(msg.Content, size) {
		fragments = append(fragments, Fragment{ContentDelta: piece})
	}

	queues := make([][]ToolCallDelta, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		q := []ToolCallDelta{{Index: i, ID: call.ID}}
		for _, piece := range chunk(call.Function.Name, size) {
			q = append(q, ToolCallDelta{Index: i, Function: FunctionDelta{Name: piece}})
		}
		for _, piece := range chunk(call.Function.Arguments, size) {
			q = append(q, ToolCallDelta{Index: i, Function: FunctionDelta{Arguments: piece}})
		}
		queues[i] = q
	}

	for pending := true; pending; {
		pending = false
		for i := range queues {
			if len(queues[i]) == 0 {
				continue
			}
			fragments = append(fragments, Fragment{ToolCallDeltas: []ToolCallDelta{queues[i][0]}})
			queues[i] = queues[i][1:]
			pending = true
		}
	}
	return fragments
}

func chunk(s string, size int) []string {
	if s == "" {
		return nil
	}
	if size <= 0 {
		return []string{s}
	}
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
