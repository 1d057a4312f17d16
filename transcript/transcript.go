// Package transcript records finished agent runs. A Recorder plugs into
// agent.Options.Recorder and writes every run to a Store; InMemoryStore keeps
// records for the lifetime of the process and SQLiteStore persists them.
package transcript

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/core"
)

// ErrNotFound is returned by Store.Get for unknown record ids.
var ErrNotFound = errors.New("transcript not found")

// Record is one finished run.
type Record struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Status    string         `json:"status"`
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Messages  []core.Message `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists records. Implementations must be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Recorder adapts a Store to agent.Recorder.
type Recorder struct {
	store Store
	now   func() time.Time
}

var _ agent.Recorder = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record implements agent.Recorder.
func (r *Recorder) Record(ctx context.Context, res agent.Result) error {
	return r.store.Save(ctx, NewRecord(res, r.now()))
}

// NewRecord converts a run result into a Record created at t.
func NewRecord(res agent.Result, t time.Time) Record {
	rec := Record{
		ID:        uuid.NewString(),
		RunID:     res.RunID,
		Status:    string(res.Status),
		Answer:    res.Text,
		Messages:  core.CloneMessages(res.Messages),
		CreatedAt: t.UTC(),
	}
	for _, m := range res.Messages {
		if m.Role == core.RoleUser {
			rec.Question = m.Content
			break
		}
	}
	return rec
}
