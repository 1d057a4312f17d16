package model

import "io"

// Fragment is one incremental piece of a streamed model response.
type Fragment struct {
	ContentDelta   string          `json:"content_delta,omitempty"`
	ToolCallDeltas []ToolCallDelta `json:"tool_call_deltas,omitempty"`
}

// ToolCallDelta carries partial data for the tool call at Index. ID is set at
// most once per call; name and argument pieces must be concatenated.
type ToolCallDelta struct {
	Index    int           `json:"index"`
	ID       string        `json:"id,omitempty"`
	Function FunctionDelta `json:"function,omitempty"`
}

// FunctionDelta holds partial function name / argument text.
type FunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Stream is a lazy, finite, one-shot sequence of fragments.
//
// Recv blocks until the next fragment is available and returns io.EOF once
// the provider signalled the end of the response. Callers must Close the
// stream, also after io.EOF.
type Stream interface {
	Recv() (Fragment, error)
	Close() error
}

// SliceStream replays a fixed list of fragments. It is mainly useful for
// tests and for models that can only produce complete responses.
type SliceStream struct {
	fragments []Fragment
	pos       int
	closed    bool
}

// NewSliceStream creates a Stream over the given fragments.
func NewSliceStream(fragments ...Fragment) *SliceStream {
	return &SliceStream{fragments: fragments}
}

// Recv implements Stream.
func (s *SliceStream) Recv() (Fragment, error) {
	if s.closed || s.pos >= len(s.fragments) {
		return Fragment{}, io.EOF
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, nil
}

// Close implements Stream.
func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
