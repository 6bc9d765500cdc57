package threads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentstudio/server/internal/workflow/model"
	"github.com/contentstudio/server/internal/workflow/repo"
)

func newRecorder(t *testing.T) (*Recorder, *repo.MemoryThreadRepository) {
	t.Helper()
	mem := repo.NewMemoryThreadRepository(time.Hour, 10)
	r := NewRecorder(mem)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}
	return r, mem
}

func TestRecorderSuccess(t *testing.T) {
	r, mem := newRecorder(t)
	ctx := context.Background()

	run := r.Start(ctx, "news", "t-1", model.NewsRequest{ThreadID: "t-1", Prompt: "elections"})
	rec, err := mem.GetThread(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.ThreadRunning, rec.Status)

	stats := &model.RunStats{ThreadID: "t-1", Trace: []string{"topic_research"}, TotalCostUSD: 0.01}
	r.Finish(ctx, run, map[string]string{"article": "body"}, "body", stats, nil)

	rec, h, err := r.History(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.ThreadSucceeded, rec.Status)
	assert.Equal(t, int64(250), rec.DurationMS)
	assert.Equal(t, []string{"topic_research"}, rec.Trace)
	assert.InDelta(t, 0.01, rec.CostUSD, 1e-12)
	assert.JSONEq(t, `{"article":"body"}`, string(rec.Result))

	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Contains(t, h.Messages[0].Content, `"prompt":"elections"`)
	assert.Equal(t, "body", h.Messages[1].Content)
}

func TestRecorderFailure(t *testing.T) {
	r, mem := newRecorder(t)
	ctx := context.Background()

	run := r.Start(ctx, "blog", "t-2", model.BlogRequest{Topic: "x"})
	r.Finish(ctx, run, nil, "", nil, errors.New("model down"))

	rec, err := mem.GetThread(ctx, "t-2")
	require.NoError(t, err)
	assert.Equal(t, model.ThreadFailed, rec.Status)
	assert.Equal(t, "model down", rec.Error)
	assert.Empty(t, rec.Result)

	h, err := mem.LoadHistory(ctx, "t-2")
	require.NoError(t, err)
	assert.Len(t, h.Messages, 1)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.Nil(t, NewRecorder(nil))

	run := r.Start(context.Background(), "news", "t-3", nil)
	assert.Equal(t, "t-3", run.ThreadID())
	assert.NotPanics(t, func() { r.Finish(context.Background(), run, nil, "", nil, nil) })
}
