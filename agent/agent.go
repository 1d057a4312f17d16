package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
)

// DefaultMaxIterations is the iteration cap used when none is configured.
const DefaultMaxIterations = 10

// FallbackText is returned as the answer when the iteration cap is reached.
const FallbackText = "I apologize, but I couldn't complete your request within the iteration limit."

// cancelledToolResult is recorded for tool calls skipped because the run was cancelled.
const cancelledToolResult = "cancelled"

var (
	// ErrNoModel is returned by New when no model is supplied.
	ErrNoModel = errors.New("agent: model is required")
	// ErrNoCatalog is returned by New when no tool catalog is supplied.
	ErrNoCatalog = errors.New("agent: tool catalog is required")
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusDone means the model produced a final answer.
	StatusDone Status = "done"
	// StatusCapped means the iteration cap was reached; Text is FallbackText.
	StatusCapped Status = "capped"
)

// Result is the outcome of a finished run.
type Result struct {
	RunID      string         `json:"run_id"`
	Text       string         `json:"text"`
	Status     Status         `json:"status"`
	Iterations int            `json:"iterations"` // model round-trips made
	Messages   []core.Message `json:"messages"`   // full conversation snapshot
}

// Capped reports whether the run ended at the iteration cap.
func (r Result) Capped() bool { return r.Status == StatusCapped }

// Recorder receives every finished run, e.g. to persist transcripts.
type Recorder interface {
	Record(ctx context.Context, res Result) error
}

// Options configures an Agent.
type Options struct {
	Instruction   Instruction
	MaxIterations int
	Streaming     bool
	Logger        logging.Logger
	Recorder      Recorder
}

// RunOptions are per-run overrides of the agent defaults.
type RunOptions struct {
	MaxIterations int
	Streaming     bool
}

// RunOption mutates RunOptions.
type RunOption func(o *RunOptions)

// WithMaxIterations overrides the iteration cap for one run. Zero returns
// the fallback text without calling the model.
func WithMaxIterations(n int) RunOption {
	return func(o *RunOptions) { o.MaxIterations = n }
}

// WithStreaming selects streaming model calls for one run.
func WithStreaming(enabled bool) RunOption {
	return func(o *RunOptions) { o.Streaming = enabled }
}

// Agent drives the tool calling loop: it asks the model for the next message,
// dispatches requested tool calls through the catalog in order and repeats
// until the model answers without tool calls or the iteration cap is hit.
//
// An Agent holds no per-run state and can serve concurrent runs; every run
// owns its own Conversation.
type Agent struct {
	model   model.Model
	catalog *tool.Catalog
	opts    Options
	logger  logging.Logger
}

// New creates an Agent.
func New(m model.Model, catalog *tool.Catalog, optFns ...func(o *Options)) (*Agent, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if catalog == nil {
		return nil, ErrNoCatalog
	}

	opts := Options{
		Instruction:   NewInstructionFromText(DefaultPersona),
		MaxIterations: DefaultMaxIterations,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(DefaultPersona)
	}

	return &Agent{
		model:   m,
		catalog: catalog,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
	}, nil
}

// Run executes the loop for one user message and returns the final answer.
//
// Model errors abort the run and are returned together with the partial
// Result. Tool failures never abort the run; they are recorded as tool
// messages carrying an "error" key. When ctx is cancelled the run stops at
// the next model call or tool dispatch and returns ctx.Err().
func (a *Agent) Run(ctx context.Context, userMessage string, opts ...RunOption) (Result, error) {
	return a.run(ctx, userMessage, a.runOptions(opts), nil)
}

func (a *Agent) runOptions(opts []RunOption) RunOptions {
	ro := RunOptions{
		MaxIterations: a.opts.MaxIterations,
		Streaming:     a.opts.Streaming,
	}
	for _, fn := range opts {
		fn(&ro)
	}
	return ro
}

// emitFunc forwards progress chunks to a RunStream; nil for plain Run.
type emitFunc func(Chunk)

func (e emitFunc) send(c Chunk) {
	if e != nil {
		e(c)
	}
}

func (a *Agent) run(ctx context.Context, userMessage string, ro RunOptions, emit emitFunc) (Result, error) {
	runID := uuid.NewString()
	log := logging.With(a.logger, "run_id", runID)
	tools := a.catalog.Schemas()

	system, err := a.opts.Instruction.Resolve(ctx, InstructionData{Tools: tools})
	if err != nil {
		return Result{RunID: runID}, fmt.Errorf("resolve instruction: %w", err)
	}

	conv := core.NewConversation(system, userMessage)
	limiter := core.NewIterationLimiter(ro.MaxIterations)
	result := func(text string, status Status) Result {
		return Result{
			RunID:      runID,
			Text:       text,
			Status:     status,
			Iterations: limiter.Used(),
			Messages:   conv.Snapshot(),
		}
	}

	log.Info("agent.run.start", "max_iterations", limiter.Max(), "streaming", ro.Streaming, "tools", len(tools))

	for limiter.Next() {
		log.Debug("agent.iteration", "iteration", limiter.Used())

		if err := ctx.Err(); err != nil {
			log.Warn("agent.run.cancelled", "iteration", limiter.Used())
			return result("", ""), err
		}

		msg, err := a.complete(ctx, log, conv, tools, ro.Streaming, emit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				log.Warn("agent.run.cancelled", "iteration", limiter.Used())
				return result("", ""), ctxErr
			}
			log.Error("agent.run.failed", "iteration", limiter.Used(), "error", err.Error())
			return result("", ""), err
		}
		conv.Append(msg)

		if !msg.HasToolCalls() {
			res := result(msg.Content, StatusDone)
			log.Info("agent.run.done", "iterations", res.Iterations, "messages", len(res.Messages))
			a.record(ctx, log, res)
			return res, nil
		}

		if err := a.dispatchAll(ctx, log, conv, msg.ToolCalls, emit); err != nil {
			return result("", ""), err
		}
	}

	log.Warn("agent.run.capped", "max_iterations", limiter.Max())
	emit.send(Chunk{Kind: ChunkFallback, Text: FallbackText})
	res := result(FallbackText, StatusCapped)
	a.record(ctx, log, res)
	return res, nil
}

// complete performs one model round-trip and returns the assistant message.
func (a *Agent) complete(
	ctx context.Context,
	log logging.Logger,
	conv *core.Conversation,
	tools []model.ToolDefinition,
	streaming bool,
	emit emitFunc,
) (core.Message, error) {
	req := model.Request{Messages: conv.Snapshot(), Tools: tools}
	name := a.model.Info().Name
	start := time.Now()

	if !streaming {
		msg, err := a.model.Generate(ctx, req)
		logging.LogModelCall(log, name, time.Since(start), err)
		if err != nil {
			return core.Message{}, err
		}
		if msg.Content != "" && !msg.HasToolCalls() {
			emit.send(Chunk{Kind: ChunkText, Text: msg.Content})
		}
		msg.Role = core.RoleAssistant
		return msg, nil
	}

	stream, err := a.model.Stream(ctx, req)
	if err != nil {
		logging.LogModelCall(log, name, time.Since(start), err)
		return core.Message{}, err
	}
	acc, err := model.Collect(stream, func(f model.Fragment) error {
		if f.ContentDelta != "" {
			emit.send(Chunk{Kind: ChunkText, Text: f.ContentDelta})
		}
		return nil
	})
	logging.LogModelCall(log, name, time.Since(start), err)
	if err != nil {
		return core.Message{}, model.NewRequestError(a.model.Info().Provider, "stream", err)
	}
	if dropped := acc.Dropped(); dropped > 0 {
		log.Warn("model.stream.dropped_calls", "count", dropped)
	}
	return acc.Message(), nil
}

// dispatchAll runs the tool calls strictly in order, appending one tool
// message per call. If ctx is cancelled midway, the remaining calls are
// answered with a cancellation error so every call keeps its result.
func (a *Agent) dispatchAll(
	ctx context.Context,
	log logging.Logger,
	conv *core.Conversation,
	calls []core.ToolCall,
	emit emitFunc,
) error {
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			for _, skipped := range calls[i:] {
				conv.Append(core.ToolMessage(core.NewToolResult(skipped, core.ErrorValue(cancelledToolResult))))
			}
			log.Warn("agent.run.cancelled", "skipped_tool_calls", len(calls)-i)
			return err
		}

		log.Info("agent.tool.dispatch", "tool", call.Function.Name, "tool_call_id", call.ID)
		emit.send(Chunk{Kind: ChunkToolCall, ToolName: call.Function.Name, ToolCallID: call.ID, Text: call.Function.Arguments})

		payload, err := a.catalog.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			log.Warn("agent.tool.rejected", "tool", call.Function.Name, "error", err.Error())
		}

		res := core.NewToolResult(call, payload)
		conv.Append(core.ToolMessage(res))

		log.Debug("agent.tool.result", "tool", call.Function.Name, "is_error", res.IsError())
		emit.send(Chunk{Kind: ChunkToolResult, ToolName: call.Function.Name, ToolCallID: call.ID, Text: res.Content, IsError: res.IsError()})
	}
	return nil
}

func (a *Agent) record(ctx context.Context, log logging.Logger, res Result) {
	if a.opts.Recorder == nil {
		return
	}
	if err := a.opts.Recorder.Record(context.WithoutCancel(ctx), res); err != nil {
		log.Warn("agent.record.failed", "error", err.Error())
	}
}
