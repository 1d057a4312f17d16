// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/model"
)

const providerName = "anthropic"

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, client options).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64

	// ClientOptions are passed to anthropic.NewClient (API key, base URL, retries...).
	ClientOptions []option.RequestOption
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	client := anthropic.NewClient(opts.ClientOptions...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaudeSonnet4_5,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Generate performs one non-streaming Messages API call.
func (m *Model) Generate(ctx context.Context, req model.Request) (core.Message, error) {
	resp, err := m.client.Messages.New(ctx, m.buildParams(req))
	if err != nil {
		return core.Message{}, model.NewRequestError(providerName, "generate", err)
	}

	var text string
	var calls []core.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			calls = append(calls, core.NewToolCall(tu.ID, tu.Name, string(tu.Input)))
		}
	}
	return core.AssistantMessage(text, calls...), nil
}

// Stream starts a streaming Messages API call.
func (m *Model) Stream(ctx context.Context, req model.Request) (model.Stream, error) {
	s := m.client.Messages.NewStreaming(ctx, m.buildParams(req))
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, model.NewRequestError(providerName, "stream", err)
	}
	return &stream{sse: s, toolIndex: map[int64]int{}}, nil
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      providerName,
		SupportsTools: true,
	}
}

// stream adapts Anthropic content block events to model.Stream. Content
// block indices count text blocks too, so tool_use blocks are renumbered to a
// contiguous tool call index.
type stream struct {
	sse       *ssestream.Stream[anthropic.MessageStreamEventUnion]
	toolIndex map[int64]int
}

func (s *stream) Recv() (model.Fragment, error) {
	for s.sse.Next() {
		if f, ok := s.toFragment(s.sse.Current()); ok {
			return f, nil
		}
	}
	if err := s.sse.Err(); err != nil {
		return model.Fragment{}, model.NewRequestError(providerName, "stream", err)
	}
	return model.Fragment{}, io.EOF
}

func (s *stream) Close() error { return s.sse.Close() }

func (s *stream) toFragment(ev anthropic.MessageStreamEventUnion) (model.Fragment, bool) {
	switch e := ev.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		switch block := e.ContentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			return model.Fragment{ContentDelta: block.Text}, block.Text != ""
		case anthropic.ToolUseBlock:
			idx := len(s.toolIndex)
			s.toolIndex[e.Index] = idx
			return model.Fragment{ToolCallDeltas: []model.ToolCallDelta{{
				Index:    idx,
				ID:       block.ID,
				Function: model.FunctionDelta{Name: block.Name},
			}}}, true
		}
	case anthropic.ContentBlockDeltaEvent:
		switch delta := e.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return model.Fragment{ContentDelta: delta.Text}, delta.Text != ""
		case anthropic.InputJSONDelta:
			idx, ok := s.toolIndex[e.Index]
			if !ok || delta.PartialJSON == "" {
				return model.Fragment{}, false
			}
			return model.Fragment{ToolCallDeltas: []model.ToolCallDelta{{
				Index:    idx,
				Function: model.FunctionDelta{Arguments: delta.PartialJSON},
			}}}, true
		}
	}
	return model.Fragment{}, false
}

func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	for _, msg := range req.Messages {
		if msg.Role == core.RoleSystem && msg.Content != "" {
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

// buildMessages converts the conversation to Anthropic message format. System
// messages travel separately; consecutive tool results are grouped into one
// user message as the API requires.
func buildMessages(msgs []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range msgs {
		if msg.Role == core.RoleTool {
			res := core.ToolResult{ToolCallID: msg.ToolCallID, Name: msg.Name, Content: msg.Content}
			results = append(results, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, res.IsError()))
			continue
		}
		flush()

		switch msg.Role {
		case core.RoleUser:
			if msg.Content != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		case core.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input, err := core.ParseObject(tc.Function.Arguments)
				if err != nil {
					input = core.Object{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input.Value().Interface(), tc.Function.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

// buildTools converts tool definitions to Anthropic tool format.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if params := tool.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				schema.Properties = properties
			}
			switch req := params["required"].(type) {
			case []string:
				schema.Required = req
			case []any:
				for _, r := range req {
					if s, ok := r.(string); ok {
						schema.Required = append(schema.Required, s)
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(schema, tool.Function.Name)
		if tool.Function.Description != "" && out[i].OfTool != nil {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}
	return out
}
