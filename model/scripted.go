package model

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// ErrScriptExhausted is returned by ScriptedModel when no turns are left.
var ErrScriptExhausted = errors.New("scripted model has no turns left")

// Turn is one canned model response. When Err is set the call fails with a
// RequestError. Fragments overrides the fragmentation used by Stream.
type Turn struct {
	Message   core.Message
	Err       error
	Fragments []Fragment
}

// ScriptedModel is a deterministic in‑memory Model useful for tests & examples.
// Each Generate or Stream call consumes the next Turn and records the request.
type ScriptedModel struct {
	mu        sync.Mutex
	info      Info
	turns     []Turn
	requests  []Request
	chunkSize int
}

// NewScriptedModel constructs a ScriptedModel replaying turns in order.
func NewScriptedModel(turns ...Turn) *ScriptedModel {
	return &ScriptedModel{
		info: Info{
			Name:          "scripted",
			Provider:      "scripted",
			SupportsTools: true,
		},
		turns:     turns,
		chunkSize: 1,
	}
}

// SetChunkSize configures how many runes each streamed text fragment carries.
func (m *ScriptedModel) SetChunkSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkSize = n
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (core.Message, error) {
	turn, err := m.next(ctx, req, "generate")
	if err != nil {
		return core.Message{}, err
	}
	return assistant(turn.Message), nil
}

// Stream implements Model; the canned message is split into fragments.
func (m *ScriptedModel) Stream(ctx context.Context, req Request) (Stream, error) {
	turn, err := m.next(ctx, req, "stream")
	if err != nil {
		return nil, err
	}
	if turn.Fragments != nil {
		return NewSliceStream(turn.Fragments...), nil
	}
	m.mu.Lock()
	size := m.chunkSize
	m.mu.Unlock()
	return NewSliceStream(Split(assistant(turn.Message), size)...), nil
}

func (m *ScriptedModel) next(ctx context.Context, req Request, op string) (Turn, error) {
	if err := ctx.Err(); err != nil {
		return Turn{}, NewRequestError(m.info.Provider, op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, Request{
		Messages: core.CloneMessages(req.Messages),
		Tools:    req.Tools,
	})
	if len(m.turns) == 0 {
		return Turn{}, NewRequestError(m.info.Provider, op, ErrScriptExhausted)
	}
	turn := m.turns[0]
	m.turns = m.turns[1:]
	if turn.Err != nil {
		return Turn{}, NewRequestError(m.info.Provider, op, turn.Err)
	}
	return turn, nil
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of model round-trips made.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Info implements Model interface.
func (m *ScriptedModel) Info() Info { return m.info }

func assistant(msg core.Message) core.Message {
	msg.Role = core.RoleAssistant
	return core.CloneMessage(msg)
}
