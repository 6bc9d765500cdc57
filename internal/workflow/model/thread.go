package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/eino/schema"
)

type ThreadStatus string

const (
	ThreadRunning   ThreadStatus = "running"
	ThreadSucceeded ThreadStatus = "succeeded"
	ThreadFailed    ThreadStatus = "failed"
)

// ThreadRecord describes one workflow run.
type ThreadRecord struct {
	ID         string          `json:"id"`
	Workflow   string          `json:"workflow"`
	Status     ThreadStatus    `json:"status"`
	Request    json.RawMessage `json:"request,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Trace      []string        `json:"trace,omitempty"`
	CostUSD    float64         `json:"cost_usd"`
	CreatedAt  time.Time       `json:"created_at"`
	DurationMS int64           `json:"duration_ms"`
}

// ThreadHistory is the ordered message log of a thread: the request as a
// user message followed by the final output of each run.
type ThreadHistory struct {
	ThreadID string
	Messages []*schema.Message
}

type ThreadRepository interface {
	// SaveThread creates or replaces the record and marks it as recent.
	SaveThread(ctx context.Context, rec *ThreadRecord) error

	// GetThread returns the record or an errx NotFound error.
	GetThread(ctx context.Context, id string) (*ThreadRecord, error)

	// ListThreads returns up to limit records, most recent first.
	ListThreads(ctx context.Context, limit int) ([]*ThreadRecord, error)

	// AddMessage appends a message to the thread history.
	AddMessage(ctx context.Context, threadID string, message *schema.Message) error

	// LoadHistory returns the thread history; unknown threads are empty.
	LoadHistory(ctx context.Context, threadID string) (*ThreadHistory, error)

	// DeleteThread removes the record and its history.
	DeleteThread(ctx context.Context, id string) error
}
