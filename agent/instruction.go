package agent

import (
	"context"

	"github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/model"
)

// DefaultPersona is the system prompt used when no instruction is configured.
const DefaultPersona = `You are a helpful AI assistant that can help users with various tasks.
You have access to several tools for getting information:
- Weather information for any location
- Book recommendations by topic
- Random jokes for entertainment
- Random dog pictures
- Trivia questions

When a user asks for help, determine which tools are needed and call them.
Always provide friendly, conversational responses that incorporate the tool results naturally.
If coordinates are mentioned, use them for weather. Parse requests carefully to identify all needed tools.`

// InstructionData is the input available to dynamic instructions.
type InstructionData struct {
	Tools []model.ToolDefinition
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, data InstructionData) (string, error)
}

// ProviderFunc is a functional adapter to allow ordinary functions to be used as Providers.
type ProviderFunc func(ctx context.Context, data InstructionData) (string, error)

// Instruction implements Provider.
func (f ProviderFunc) Instruction(ctx context.Context, data InstructionData) (string, error) {
	return f(ctx, data)
}

// Instruction represents either a static instruction string or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, data InstructionData) (string, error)) Instruction {
	return Instruction{provider: ProviderFunc(f)}
}

// ToolSummary is the view of one catalog tool available to prompt templates.
type ToolSummary struct {
	Name        string
	Description string
}

// TemplateData is what instruction templates render against.
type TemplateData struct {
	Tools []ToolSummary
}

// NewTemplateData summarizes the catalog schemas in their stable order.
func NewTemplateData(data InstructionData) TemplateData {
	tools := make([]ToolSummary, 0, len(data.Tools))
	for _, t := range data.Tools {
		tools = append(tools, ToolSummary{Name: t.Function.Name, Description: t.Function.Description})
	}
	return TemplateData{Tools: tools}
}

// ToolNames lists the tool names, for use with the join helper.
func (d TemplateData) ToolNames() []string {
	names := make([]string, len(d.Tools))
	for i, t := range d.Tools {
		names[i] = t.Name
	}
	return names
}

// NewInstructionFromTemplate parses text once and renders it against
// TemplateData on every run. A parse error is reported when the instruction
// is resolved.
//
//	Available tools:
//	{{range .Tools}}- {{.Name}}: {{.Description}}
//	{{end}}
func NewInstructionFromTemplate(text string) Instruction {
	tmpl, err := util.ParsePromptTemplate("instruction", text)
	return NewInstructionFromFunc(func(_ context.Context, data InstructionData) (string, error) {
		if err != nil {
			return "", err
		}
		return tmpl.Render(NewTemplateData(data))
	})
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether neither text nor provider is set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx context.Context, data InstructionData) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, data)
	}
	return i.text, nil
}
