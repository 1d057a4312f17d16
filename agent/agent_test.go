package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/testutil"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// MockRecorder captures finished runs.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, res Result) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}

func jokeTool() tool.Tool {
	return tool.NewFunctionTool("random_joke", "Get a random joke", nil, func(context.Context, core.Object) (any, error) {
		return map[string]any{"joke": "Why did the gopher cross the road?"}, nil
	})
}

func dogTool() tool.Tool {
	return tool.NewFunctionTool("random_dog", "Get a random dog picture", nil, func(context.Context, core.Object) (any, error) {
		return map[string]any{"message": "https://images.dog.ceo/breeds/pug/1.jpg", "status": "success"}, nil
	})
}

func failingTool() tool.Tool {
	return tool.NewFunctionTool("broken", "Always fails", nil, func(context.Context, core.Object) (any, error) {
		return nil, errors.New("upstream unavailable")
	})
}

func newTestAgent(t *testing.T, m model.Model, tools []tool.Tool, optFns ...func(o *Options)) *Agent {
	t.Helper()
	catalog, err := tool.NewCatalog(tools)
	require.NoError(t, err)
	a, err := New(m, catalog, optFns...)
	require.NoError(t, err)
	return a
}

func toolCallTurn(calls ...core.ToolCall) model.Turn {
	return model.Turn{Message: core.AssistantMessage("", calls...)}
}

func answerTurn(text string) model.Turn {
	return model.Turn{Message: core.AssistantMessage(text)}
}

func roles(msgs []core.Message) []core.Role {
	out := make([]core.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// ---- Construction Tests ----

func TestNew_RequiresModelAndCatalog(t *testing.T) {
	catalog, err := tool.NewCatalog(nil)
	require.NoError(t, err)

	_, err = New(nil, catalog)
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = New(model.NewScriptedModel(), nil)
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestNew_DefaultPersona(t *testing.T) {
	m := model.NewScriptedModel(answerTurn("hi"))
	a := newTestAgent(t, m, nil)

	res, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, core.SystemMessage(DefaultPersona), res.Messages[0])
	assert.Equal(t, core.UserMessage("hello"), res.Messages[1])
}

// ---- Loop Tests ----

func TestRun_ZeroIterationsNeverCallsModel(t *testing.T) {
	for _, max := range []int{0, -1} {
		m := model.NewScriptedModel(answerTurn("unused"))
		a := newTestAgent(t, m, nil)

		res, err := a.Run(context.Background(), "hello", WithMaxIterations(max))
		require.NoError(t, err)
		assert.Equal(t, FallbackText, res.Text)
		assert.Equal(t, StatusCapped, res.Status)
		assert.True(t, res.Capped())
		assert.Equal(t, 0, res.Iterations)
		assert.Len(t, res.Messages, 2)
		assert.Equal(t, 0, m.Calls())
	}
}

func TestRun_DirectAnswer(t *testing.T) {
	m := model.NewScriptedModel(answerTurn("Hello there!"))
	a := newTestAgent(t, m, []tool.Tool{jokeTool()})

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", res.Text)
	assert.Equal(t, StatusDone, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []core.Role{core.RoleSystem, core.RoleUser, core.RoleAssistant}, roles(res.Messages))

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "random_joke", reqs[0].Tools[0].Function.Name)
}

func TestRun_JokeAndDog(t *testing.T) {
	m := model.NewScriptedModel(
		toolCallTurn(
			core.NewToolCall("c1", "random_joke", "{}"),
			core.NewToolCall("c2", "random_dog", ""),
		),
		answerTurn("Here is a joke and a dog!"),
	)
	a := newTestAgent(t, m, []tool.Tool{jokeTool(), dogTool()})

	res, err := a.Run(context.Background(), "Tell me a joke and show me a dog")
	require.NoError(t, err)
	assert.Equal(t, "Here is a joke and a dog!", res.Text)
	assert.Equal(t, 2, res.Iterations)

	assert.Equal(t, []core.Role{
		core.RoleSystem, core.RoleUser, core.RoleAssistant, core.RoleTool, core.RoleTool, core.RoleAssistant,
	}, roles(res.Messages))

	joke, dog := res.Messages[3], res.Messages[4]
	assert.Equal(t, "c1", joke.ToolCallID)
	assert.Equal(t, "random_joke", joke.Name)
	assert.Equal(t, "Why did the gopher cross the road?", gjson.Get(joke.Content, "joke").String())
	assert.Equal(t, "c2", dog.ToolCallID)
	assert.Equal(t, "success", gjson.Get(dog.Content, "status").String())

	// the second request sees every tool result
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Messages, 2)
	assert.Len(t, reqs[1].Messages, 5)
	assert.Equal(t, res.Messages[:5], reqs[1].Messages)
}

func TestRun_ConversationGrowth(t *testing.T) {
	m := model.NewScriptedModel(
		toolCallTurn(core.NewToolCall("a", "random_joke", "")),
		toolCallTurn(
			core.NewToolCall("b", "random_dog", ""),
			core.NewToolCall("c", "random_joke", ""),
			core.NewToolCall("d", "random_dog", ""),
		),
		answerTurn("done"),
	)
	a := newTestAgent(t, m, []tool.Tool{jokeTool(), dogTool()})

	res, err := a.Run(context.Background(), "go")
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Len(t, reqs[0].Messages, 2)
	assert.Len(t, reqs[1].Messages, 2+1+1)
	assert.Len(t, reqs[2].Messages, 4+1+3)
	assert.Len(t, res.Messages, 8+1)

	var ids []string
	for _, msg := range res.Messages {
		if msg.Role == core.RoleTool {
			ids = append(ids, msg.ToolCallID)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
}

func TestRun_Capped(t *testing.T) {
	var turns []model.Turn
	for i := range 5 {
		turns = append(turns, toolCallTurn(core.NewToolCall(fmt.Sprintf("c%d", i), "random_joke", "")))
	}
	m := model.NewScriptedModel(turns...)
	a := newTestAgent(t, m, []tool.Tool{jokeTool()}, func(o *Options) { o.MaxIterations = 3 })

	res, err := a.Run(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, StatusCapped, res.Status)
	assert.Equal(t, FallbackText, res.Text)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, m.Calls())
	assert.Len(t, res.Messages, 2+3*2)
}

func TestRun_FailingToolDoesNotAbort(t *testing.T) {
	m := model.NewScriptedModel(
		toolCallTurn(core.NewToolCall("c1", "broken", "{}")),
		answerTurn("Sorry, that did not work."),
	)
	a := newTestAgent(t, m, []tool.Tool{failingTool()})

	res, err := a.Run(context.Background(), "try it")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, res.Status)

	msg := res.Messages[3]
	assert.Equal(t, core.RoleTool, msg.Role)
	assert.Equal(t, "Tool execution failed: upstream unavailable", gjson.Get(msg.Content, "error").String())
}

func TestRun_UnknownToolIsReportedToModel(t *testing.T) {
	m := model.NewScriptedModel(
		toolCallTurn(core.NewToolCall("c1", "nope", "{}")),
		answerTurn("I can't do that."),
	)
	a := newTestAgent(t, m, []tool.Tool{jokeTool()})

	res, err := a.Run(context.Background(), "use nope")
	require.NoError(t, err)
	assert.Equal(t, "Unknown tool: nope", gjson.Get(res.Messages[3].Content, "error").String())
	assert.Equal(t, "I can't do that.", res.Text)
}

func TestRun_MalformedArgumentsAreReportedToModel(t *testing.T) {
	m := model.NewScriptedModel(
		toolCallTurn(core.NewToolCall("c1", "random_joke", `{"x":`)),
		answerTurn("ok"),
	)
	a := newTestAgent(t, m, []tool.Tool{jokeTool()})

	res, err := a.Run(context.Background(), "joke")
	require.NoError(t, err)
	assert.Contains(t, gjson.Get(res.Messages[3].Content, "error").String(), "invalid arguments for tool random_joke")
}

func TestRun_ModelErrorAborts(t *testing.T) {
	boom := errors.New("connection reset")
	m := model.NewScriptedModel(
		toolCallTurn(core.NewToolCall("c1", "random_joke", "")),
		model.Turn{Err: boom},
	)
	a := newTestAgent(t, m, []tool.Tool{jokeTool()})

	res, err := a.Run(context.Background(), "joke")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var reqErr *model.RequestError
	assert.ErrorAs(t, err, &reqErr)
	assert.Empty(t, res.Text)
	assert.Len(t, res.Messages, 4)
}

// ---- Cancellation Tests ----

func TestRun_CancelledBeforeStart(t *testing.T) {
	m := model.NewScriptedModel(answerTurn("unused"))
	a := newTestAgent(t, m, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}

func TestRun_CancelledDuringToolCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := tool.NewFunctionTool("stop", "Cancels the run", nil, func(context.Context, core.Object) (any, error) {
		cancel()
		return map[string]any{"ok": true}, nil
	})

	m := model.NewScriptedModel(
		toolCallTurn(
			core.NewToolCall("c1", "stop", ""),
			core.NewToolCall("c2", "random_joke", ""),
			core.NewToolCall("c3", "random_joke", ""),
		),
		answerTurn("unused"),
	)
	a := newTestAgent(t, m, []tool.Tool{cancelling, jokeTool()})

	res, err := a.Run(ctx, "stop")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, m.Calls())

	// every requested call still has a matching tool message
	require.Len(t, res.Messages, 3+3)
	assert.Equal(t, "c1", res.Messages[3].ToolCallID)
	for i, id := range []string{"c2", "c3"} {
		msg := res.Messages[4+i]
		assert.Equal(t, id, msg.ToolCallID)
		assert.JSONEq(t, `{"error":"cancelled"}`, msg.Content)
	}
}

// ---- Streaming Tests ----

func TestRun_StreamingMatchesNonStreaming(t *testing.T) {
	script := func() []model.Turn {
		return []model.Turn{
			{Message: core.AssistantMessage("Let me check.",
				core.NewToolCall("call_abc", "get_weather", `{"location":"NYC"}`),
				core.NewToolCall("call_def", "random_joke", ""),
			)},
			answerTurn("It is sunny in NYC. Also, a joke!"),
		}
	}
	weather := tool.NewFunctionTool("get_weather", "Weather", nil, func(_ context.Context, args core.Object) (any, error) {
		loc, _ := args.String("location")
		return map[string]any{"location": loc, "temperature": 21}, nil
	})
	tools := []tool.Tool{weather, jokeTool()}

	plain := newTestAgent(t, model.NewScriptedModel(script()...), tools)
	want, err := plain.Run(context.Background(), "weather?")
	require.NoError(t, err)

	for _, size := range []int{0, 1, 3} {
		m := model.NewScriptedModel(script()...)
		m.SetChunkSize(size)
		streamed := newTestAgent(t, m, tools)

		got, err := streamed.Run(context.Background(), "weather?", WithStreaming(true))
		require.NoError(t, err)
		assert.Equal(t, want.Text, got.Text)
		assert.Equal(t, want.Messages, got.Messages, "chunk size %d", size)
	}
}

func TestRun_StreamingDropsIdlessCalls(t *testing.T) {
	m := testutil.NewScript().
		Turn(testutil.NewTurnBuilder().Fragments(
			testutil.CallFragment(0, "c1", "random_joke", ""),
			testutil.CallFragment(1, "", "random_dog", "{}"),
		)).
		Answer("joke only").
		Model()
	a := newTestAgent(t, m, []tool.Tool{jokeTool(), dogTool()})

	res, err := a.Run(context.Background(), "both", WithStreaming(true))
	require.NoError(t, err)
	require.Len(t, res.Messages[2].ToolCalls, 1)
	assert.Equal(t, "c1", res.Messages[2].ToolCalls[0].ID)
	assert.Len(t, res.Messages, 5)
}

// ---- Recorder Tests ----

func TestRun_RecordsResult(t *testing.T) {
	rec := &MockRecorder{}
	rec.On("Record", mock.Anything, mock.MatchedBy(func(r Result) bool {
		return r.Status == StatusDone && r.Text == "hi"
	})).Return(nil).Once()

	a := newTestAgent(t, model.NewScriptedModel(answerTurn("hi")), nil, func(o *Options) { o.Recorder = rec })
	_, err := a.Run(context.Background(), "hello")
	require.NoError(t, err)
	rec.AssertExpectations(t)
}

func TestRun_RecorderFailureIsIgnored(t *testing.T) {
	rec := &MockRecorder{}
	rec.On("Record", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	a := newTestAgent(t, model.NewScriptedModel(), nil, func(o *Options) { o.Recorder = rec })
	res, err := a.Run(context.Background(), "hello", WithMaxIterations(0))
	require.NoError(t, err)
	assert.Equal(t, StatusCapped, res.Status)
	rec.AssertNumberOfCalls(t, "Record", 1)
}

func TestRun_ModelErrorIsNotRecorded(t *testing.T) {
	rec := &MockRecorder{}
	a := newTestAgent(t, model.NewScriptedModel(model.Turn{Err: errors.New("boom")}), nil, func(o *Options) { o.Recorder = rec })

	_, err := a.Run(context.Background(), "hello")
	require.Error(t, err)
	rec.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

// ---- Concurrency Tests ----

func TestRun_ConcurrentRunsAreIsolated(t *testing.T) {
	catalog, err := tool.NewCatalog([]tool.Tool{jokeTool()})
	require.NoError(t, err)

	const n = 8
	results := make(chan Result, n)
	for i := range n {
		go func() {
			m := model.NewScriptedModel(
				toolCallTurn(core.NewToolCall("c", "random_joke", "")),
				answerTurn(fmt.Sprintf("answer %d", i)),
			)
			a, err := New(m, catalog)
			if err != nil {
				results <- Result{}
				return
			}
			res, _ := a.Run(context.Background(), fmt.Sprintf("q %d", i))
			results <- res
		}()
	}

	seen := map[string]bool{}
	for range n {
		res := <-results
		require.Len(t, res.Messages, 5)
		assert.Equal(t, "answer"+res.Messages[1].Content[1:], res.Text)
		seen[res.RunID] = true
	}
	assert.Len(t, seen, n)
}
