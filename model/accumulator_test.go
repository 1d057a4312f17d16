package model

import (
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/hupe1980/agentloop/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Accumulator Tests --------------------

func TestAccumulator_InterleavedToolCall(t *testing.T) {
	acc := NewAccumulator()
	fragments := []Fragment{
		{ContentDelta: "Hel"},
		{ContentDelta: "lo"},
		{ToolCallDeltas: []ToolCallDelta{{Index: 0, ID: "abc", Function: FunctionDelta{Name: "get_news"}}}},
		{ToolCallDeltas: []ToolCallDelta{{Index: 0, Function: FunctionDelta{Arguments: `{"to`}}}},
		{ToolCallDeltas: []ToolCallDelta{{Index: 0, Function: FunctionDelta{Arguments: `pic":"nyc"}`}}}},
	}
	for _, f := range fragments {
		require.NoError(t, acc.Add(f))
	}

	msg := acc.Message()
	assert.Equal(t, core.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "abc", msg.ToolCalls[0].ID)
	assert.Equal(t, "get_news", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"topic":"nyc"}`, msg.ToolCalls[0].Function.Arguments)
	assert.Equal(t, 0, acc.Dropped())
}

func TestAccumulator_FirstIDWins(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.Add(Fragment{ToolCallDeltas: []ToolCallDelta{{Index: 0, ID: "first"}}}))
	require.NoError(t, acc.Add(Fragment{ToolCallDeltas: []ToolCallDelta{{Index: 0, ID: "second", Function: FunctionDelta{Name: "x"}}}}))

	calls := acc.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "first", calls[0].ID)
	assert.Equal(t, "x", calls[0].Function.Name)
}

func TestAccumulator_SparseIndicesAndMissingID(t *testing.T) {
	acc := NewAccumulator()
	// index 2 arrives first, index 1 never receives an id
	require.NoError(t, acc.Add(Fragment{ToolCallDeltas: []ToolCallDelta{{Index: 2, ID: "c", Function: FunctionDelta{Name: "third"}}}}))
	require.NoError(t, acc.Add(Fragment{ToolCallDeltas: []ToolCallDelta{{Index: 1, Function: FunctionDelta{Name: "orphan"}}}}))
	require.NoError(t, acc.Add(Fragment{ToolCallDeltas: []ToolCallDelta{{Index: 0, ID: "a", Function: FunctionDelta{Name: "first"}}}}))

	calls := acc.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].ID)
	assert.Equal(t, "c", calls[1].ID)
	assert.Equal(t, 1, acc.Dropped())
}

func TestAccumulator_NoFragments(t *testing.T) {
	msg := NewAccumulator().Message()
	assert.Equal(t, "", msg.Content)
	assert.False(t, msg.HasToolCalls())
}

func TestAccumulator_RejectsBadIndex(t *testing.T) {
	acc := NewAccumulator()
	err := acc.Add(Fragment{ContentDelta: "x", ToolCallDeltas: []ToolCallDelta{{Index: -1, ID: "a"}}})
	assert.Error(t, err)
	assert.Equal(t, "", acc.Content(), "invalid fragment must not be partially applied")

	assert.Error(t, acc.Add(Fragment{ToolCallDeltas: []ToolCallDelta{{Index: maxToolCallIndex + 1, ID: "a"}}}))
}

func TestAccumulator_FragmentationEquivalence(t *testing.T) {
	want := core.AssistantMessage("Let me check the weather and a joke ✓",
		core.NewToolCall("call_1", "get_weather", `{"location":"Berlin"}`),
		core.NewToolCall("call_2", "get_joke", ``),
		core.NewToolCall("call_3", "get_news", `{"topic":"technology"}`),
	)

	for _, size := range []int{0, 1, 2, 3, 7, 100} {
		fragments := Split(want, size)

		acc := NewAccumulator()
		for _, f := range fragments {
			require.NoError(t, acc.Add(f))
		}
		assert.Equal(t, want, acc.Message(), "chunk size %d", size)
	}

	// Shuffled order across indices; per-index order is preserved.
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		fragments := shuffleAcrossIndices(rng, Split(want, 1+rng.Intn(4)))

		acc := NewAccumulator()
		for _, f := range fragments {
			require.NoError(t, acc.Add(f))
		}
		assert.Equal(t, want, acc.Message(), "round %d", round)
	}
}

// shuffleAcrossIndices merges the per-index fragment queues in random order.
func shuffleAcrossIndices(rng *rand.Rand, fragments []Fragment) []Fragment {
	var out []Fragment
	queues := map[int][]Fragment{}
	var keys []int
	for _, f := range fragments {
		if len(f.ToolCallDeltas) == 0 {
			out = append(out, f)
			continue
		}
		idx := f.ToolCallDeltas[0].Index
		if _, ok := queues[idx]; !ok {
			keys = append(keys, idx)
		}
		queues[idx] = append(queues[idx], f)
	}
	for len(keys) > 0 {
		k := rng.Intn(len(keys))
		idx := keys[k]
		out = append(out, queues[idx][0])
		queues[idx] = queues[idx][1:]
		if len(queues[idx]) == 0 {
			keys = append(keys[:k], keys[k+1:]...)
		}
	}
	return out
}

// -------------------- Collect Tests --------------------

type errStream struct {
	fragments []Fragment
	err       error
	closed    bool
}

func (s *errStream) Recv() (Fragment, error) {
	if len(s.fragments) == 0 {
		return Fragment{}, s.err
	}
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *errStream) Close() error {
	s.closed = true
	return nil
}

func TestCollect(t *testing.T) {
	t.Run("drains until EOF", func(t *testing.T) {
		s := &errStream{fragments: Split(core.AssistantMessage("hi there"), 2), err: io.EOF}
		var seen int
		acc, err := Collect(s, func(Fragment) error { seen++; return nil })
		require.NoError(t, err)
		assert.Equal(t, "hi there", acc.Content())
		assert.Equal(t, 4, seen)
		assert.True(t, s.closed)
	})

	t.Run("propagates stream error", func(t *testing.T) {
		boom := errors.New("connection reset")
		s := &errStream{fragments: []Fragment{{ContentDelta: "par"}}, err: boom}
		acc, err := Collect(s, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, "par", acc.Content())
		assert.True(t, s.closed)
	})

	t.Run("callback error aborts", func(t *testing.T) {
		stop := errors.New("stop")
		s := &errStream{fragments: Split(core.AssistantMessage("abc"), 1), err: io.EOF}
		_, err := Collect(s, func(Fragment) error { return stop })
		assert.ErrorIs(t, err, stop)
		assert.True(t, s.closed)
	})
}

// -------------------- Split Tests --------------------

func TestSplit(t *testing.T) {
	msg := core.AssistantMessage("héllo", core.NewToolCall("id", "fn", `{}`))
	fragments := Split(msg, 2)

	// 3 content chunks, id, name, args
	require.Len(t, fragments, 6)
	assert.Equal(t, "hé", fragments[0].ContentDelta)
	assert.Equal(t, "o", fragments[2].ContentDelta)
	assert.Equal(t, "id", fragments[3].ToolCallDeltas[0].ID)
	assert.Empty(t, Split(core.AssistantMessage(""), 3))
}
