// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API (including streaming + function/tool calling). Any
// OpenAI compatible endpoint (e.g. DeepInfra) can be targeted through the
// client options. The adapter maps agentloop messages into the SDK's message
// format and streamed chunks back into model.Fragment values.
package openai

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

const providerName = "openai"

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64

	// ClientOptions are passed to openai.NewClient (base URL, API key, retries...).
	ClientOptions []option.RequestOption
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(opts.ClientOptions...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
}

// Generate performs one non-streaming chat completion.
func (m *Model) Generate(ctx context.Context, req model.Request) (core.Message, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.buildParams(req))
	if err != nil {
		return core.Message{}, model.NewRequestError(providerName, "generate", err)
	}
	if len(resp.Choices) == 0 {
		return core.Message{}, model.NewRequestError(providerName, "generate", errors.New("no choices returned"))
	}

	msg := resp.Choices[0].Message
	calls := make([]core.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, core.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}
	return core.AssistantMessage(msg.Content, calls...), nil
}

// Stream starts a streaming chat completion.
func (m *Model) Stream(ctx context.Context, req model.Request) (model.Stream, error) {
	s := m.client.Chat.Completions.NewStreaming(ctx, m.buildParams(req))
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, model.NewRequestError(providerName, "stream", err)
	}
	return &stream{sse: s}, nil
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      providerName,
		SupportsTools: true,
	}
}

// stream adapts the SDK's SSE stream to model.Stream. Chunks carrying neither
// text nor tool call deltas (role headers, finish markers) are skipped.
type stream struct {
	sse *ssestream.Stream[openai.ChatCompletionChunk]
}

func (s *stream) Recv() (model.Fragment, error) {
	for s.sse.Next() {
		if f, ok := toFragment(s.sse.Current()); ok {
			return f, nil
		}
	}
	if err := s.sse.Err(); err != nil {
		return model.Fragment{}, model.NewRequestError(providerName, "stream", err)
	}
	return model.Fragment{}, io.EOF
}

func (s *stream) Close() error { return s.sse.Close() }

func toFragment(chunk openai.ChatCompletionChunk) (model.Fragment, bool) {
	var f model.Fragment
	for _, ch := range chunk.Choices {
		if ch.Index != 0 {
			continue
		}
		f.ContentDelta += ch.Delta.Content
		for _, tc := range ch.Delta.ToolCalls {
			f.ToolCallDeltas = append(f.ToolCallDeltas, model.ToolCallDelta{
				Index: int(tc.Index),
				ID:    tc.ID,
				Function: model.FunctionDelta{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return f, f.ContentDelta != "" || len(f.ToolCallDeltas) > 0
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(req model.Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts the conversation into OpenAI chat messages.
func buildMessages(msgs []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case core.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case core.RoleTool:
			tm := openai.ToolMessage(msg.Content, msg.ToolCallID)
			if msg.Name != "" {
				tm.OfTool.SetExtraFields(map[string]any{"name": msg.Name})
			}
			out = append(out, tm)
		case core.RoleAssistant:
			if !msg.HasToolCalls() {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls)),
			}
			if msg.Content != "" {
				asst.Content.OfString = openai.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}
