package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/transcript"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

const maxPreview = 120

func printBanner(w io.Writer, toolNames []string) {
	fmt.Fprintln(w, titleStyle.Render("agentloop"))
	fmt.Fprintln(w, dimStyle.Render("Tools: "+strings.Join(toolNames, ", ")))
	fmt.Fprintln(w, dimStyle.Render("Type 'exit', 'quit' or 'q' to leave. Ctrl+C cancels the current answer."))
	fmt.Fprintln(w)
}

func printPrompt(w io.Writer) {
	fmt.Fprint(w, promptStyle.Render("You: "))
}

// printResult renders the outcome of a blocking run.
func printResult(w io.Writer, res agent.Result) {
	fmt.Fprintln(w, promptStyle.Render("Agent: ")+answerStyle.Render(res.Text))
	if res.Capped() {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("(stopped after %d iterations)", res.Iterations)))
	}
}

// chunkPrinter renders a streamed run; text chunks are written inline.
type chunkPrinter struct {
	w       io.Writer
	started bool
}

func (p *chunkPrinter) print(c agent.Chunk) {
	switch c.Kind {
	case agent.ChunkText:
		if !p.started {
			fmt.Fprint(p.w, promptStyle.Render("Agent: "))
			p.started = true
		}
		fmt.Fprint(p.w, answerStyle.Render(c.Text))
	case agent.ChunkToolCall:
		p.newline()
		fmt.Fprintln(p.w, toolStyle.Render(fmt.Sprintf("-> %s %s", c.ToolName, preview(c.Text))))
	case agent.ChunkToolResult:
		style := toolStyle
		if c.IsError {
			style = warnStyle
		}
		fmt.Fprintln(p.w, style.Render(fmt.Sprintf("<- %s %s", c.ToolName, preview(c.Text))))
	case agent.ChunkFallback:
		p.newline()
		fmt.Fprintln(p.w, promptStyle.Render("Agent: ")+warnStyle.Render(c.Text))
	}
}

func (p *chunkPrinter) newline() {
	if p.started {
		fmt.Fprintln(p.w)
		p.started = false
	}
}

func (p *chunkPrinter) finish() { p.newline() }

func printTools(w io.Writer, defs []model.ToolDefinition) {
	for _, d := range defs {
		fmt.Fprintln(w, titleStyle.Render(d.Function.Name)+"  "+d.Function.Description)
		props, _ := d.Function.Parameters["properties"].(map[string]any)
		for _, name := range slices.Sorted(maps.Keys(props)) {
			schema, _ := props[name].(map[string]any)
			fmt.Fprintf(w, "    %s %s\n", name, dimStyle.Render(fmt.Sprint(schema["type"])))
		}
	}
}

func printHistory(w io.Writer, recs []transcript.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No transcripts recorded."))
		return
	}
	for _, r := range recs {
		status := r.Status
		if status == string(agent.StatusCapped) {
			status = warnStyle.Render(status)
		}
		fmt.Fprintf(w, "%s  %s  %s\n", dimStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")), status, titleStyle.Render(preview(r.Question)))
		fmt.Fprintf(w, "    %s\n", preview(r.Answer))
	}
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxPreview {
		return string(r[:maxPreview]) + "..."
	}
	return s
}
