package agent

import (
	"context"
	"io"
	"sync"
)

// ChunkKind identifies what a streamed Chunk carries.
type ChunkKind int

const (
	// ChunkText is a piece of assistant text.
	ChunkText ChunkKind = iota
	// ChunkToolCall announces a tool dispatch; Text holds the raw arguments.
	ChunkToolCall
	// ChunkToolResult carries the serialized tool payload.
	ChunkToolResult
	// ChunkFallback carries FallbackText when the iteration cap is reached.
	ChunkFallback
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkToolCall:
		return "tool_call"
	case ChunkToolResult:
		return "tool_result"
	case ChunkFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Chunk is one progress item of a streamed run.
type Chunk struct {
	Kind       ChunkKind
	Text       string
	ToolName   string
	ToolCallID string
	IsError    bool
}

// RunStream is a run in progress. Chunks are delivered in the order the loop
// produces them; the loop blocks until each chunk is received, so callers
// must either drain Recv until it returns an error or call Close.
type RunStream struct {
	chunks chan Chunk
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	result Result
	err    error
}

// RunStream starts the loop in the background and returns a handle to its
// progress. Text chunks are emitted as they arrive from the model, so the
// run defaults to streaming model calls unless WithStreaming(false) is given.
func (a *Agent) RunStream(ctx context.Context, userMessage string, opts ...RunOption) *RunStream {
	ro := a.runOptions(append([]RunOption{WithStreaming(true)}, opts...))
	ctx, cancel := context.WithCancel(ctx)

	s := &RunStream{
		chunks: make(chan Chunk),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	emit := func(c Chunk) {
		select {
		case s.chunks <- c:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.chunks)
		s.result, s.err = a.run(ctx, userMessage, ro, emit)
	}()

	return s
}

// Recv returns the next chunk. After the last chunk it returns io.EOF for a
// successful run or the run's error otherwise.
func (s *RunStream) Recv() (Chunk, error) {
	c, ok := <-s.chunks
	if ok {
		return c, nil
	}
	<-s.done
	if s.err != nil {
		return Chunk{}, s.err
	}
	return Chunk{}, io.EOF
}

// Result waits for the run to finish, discarding unread chunks.
func (s *RunStream) Result() (Result, error) {
	for range s.chunks { //nolint:revive // drain
	}
	<-s.done
	return s.result, s.err
}

// Close cancels the run and waits for the loop to exit. It is safe to call
// more than once and after the run finished.
func (s *RunStream) Close() error {
	s.once.Do(s.cancel)
	for range s.chunks { //nolint:revive // drain
	}
	<-s.done
	return nil
}
