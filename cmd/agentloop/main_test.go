package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/agentloop/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- REPL Tests ----

func TestIsExit(t *testing.T) {
	for _, s := range []string{"exit", "quit", "q", "QUIT"} {
		assert.True(t, isExit(s), s)
	}
	for _, s := range []string{"", "exit now", "quiet"} {
		assert.False(t, isExit(s), s)
	}
}

func TestChatLoop_SkipsEmptyLinesAndExits(t *testing.T) {
	var asked []string
	var out bytes.Buffer

	in := strings.NewReader("hello\n\n   \nsecond question\nquit\nnever asked\n")
	err := chatLoop(context.Background(), in, &out, nil, func(_ context.Context, q string) error {
		asked = append(asked, q)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "second question"}, asked)
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestChatLoop_EOF(t *testing.T) {
	var out bytes.Buffer
	err := chatLoop(context.Background(), strings.NewReader("only\n"), &out, nil, func(context.Context, string) error {
		return errors.New("model down")
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Error: model down")
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestChatLoop_InterruptCancelsRunOnly(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	started := make(chan struct{})
	var out bytes.Buffer
	var calls int

	go func() {
		<-started
		sigs <- os.Interrupt
	}()

	in := strings.NewReader("slow question\nnext\nexit\n")
	err := chatLoop(context.Background(), in, &out, sigs, func(ctx context.Context, q string) error {
		calls++
		if q != "slow question" {
			return nil
		}
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, out.String(), "(cancelled)")
}

// ---- Render Tests ----

func TestChunkPrinter(t *testing.T) {
	var out bytes.Buffer
	p := &chunkPrinter{w: &out}

	p.print(agent.Chunk{Kind: agent.ChunkToolCall, ToolName: "random_joke", Text: "{}"})
	p.print(agent.Chunk{Kind: agent.ChunkToolResult, ToolName: "random_joke", Text: `{"joke":"ha"}`})
	p.print(agent.Chunk{Kind: agent.ChunkText, Text: "Here "})
	p.print(agent.Chunk{Kind: agent.ChunkText, Text: "you go"})
	p.finish()

	s := out.String()
	assert.Contains(t, s, "-> random_joke {}")
	assert.Contains(t, s, `<- random_joke {"joke":"ha"}`)
	assert.Contains(t, s, "Here you go\n")
	assert.Equal(t, 1, strings.Count(s, "Agent: "))
}

func TestPrintResult_Capped(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, agent.Result{Text: agent.FallbackText, Status: agent.StatusCapped, Iterations: 10})
	assert.Contains(t, out.String(), agent.FallbackText)
	assert.Contains(t, out.String(), "stopped after 10 iterations")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b c", preview("a\n  b\tc"))
	long := strings.Repeat("x", maxPreview+10)
	assert.Equal(t, strings.Repeat("x", maxPreview)+"...", preview(long))
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	rootCmd.SetArgs([]string{"ask"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, rootCmd.ExecuteContext(ctx))
}
