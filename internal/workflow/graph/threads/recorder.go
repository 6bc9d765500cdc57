package threads

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

// Recorder writes the thread record and message log of every run. Storage
// failures are logged and never fail the run. A nil Recorder does nothing.
type Recorder struct {
	repo model.ThreadRepository
	now  func() time.Time
}

func NewRecorder(repo model.ThreadRepository) *Recorder {
	if repo == nil {
		return nil
	}
	return &Recorder{repo: repo, now: time.Now}
}

// Run is an in-flight thread record.
type Run struct {
	rec   model.ThreadRecord
	start time.Time
}

func (r *Run) ThreadID() string { return r.rec.ID }

// Start saves a running record and appends the request to the history.
func (r *Recorder) Start(ctx context.Context, workflow, threadID string, request any) *Run {
	run := &Run{rec: model.ThreadRecord{
		ID:       threadID,
		Workflow: workflow,
		Status:   model.ThreadRunning,
	}}
	if r == nil {
		return run
	}
	run.start = r.now()
	run.rec.CreatedAt = run.start.UTC()

	b, err := json.Marshal(request)
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("failed to marshal thread request")
	} else {
		run.rec.Request = b
	}
	r.save(ctx, &run.rec)

	if len(run.rec.Request) > 0 {
		r.addMessage(ctx, threadID, schema.UserMessage(string(run.rec.Request)))
	}
	return run
}

// Finish stores the outcome of the run. content is the generated text that
// goes into the history as the assistant message.
func (r *Recorder) Finish(ctx context.Context, run *Run, result any, content string, stats *model.RunStats, runErr error) {
	if r == nil || run == nil {
		return
	}
	rec := &run.rec
	rec.DurationMS = r.now().Sub(run.start).Milliseconds()
	if stats != nil {
		rec.Trace = append([]string(nil), stats.Trace...)
		rec.CostUSD = stats.TotalCostUSD
	}
	if runErr != nil {
		rec.Status = model.ThreadFailed
		rec.Error = runErr.Error()
	} else {
		rec.Status = model.ThreadSucceeded
		if b, err := json.Marshal(result); err != nil {
			logx.Warn().Err(err).Str("thread_id", rec.ID).Msg("failed to marshal thread result")
		} else {
			rec.Result = b
		}
	}
	r.save(ctx, rec)

	if runErr == nil && content != "" {
		r.addMessage(ctx, rec.ID, schema.AssistantMessage(content, nil))
	}
}

// History returns the thread record together with its message log.
func (r *Recorder) History(ctx context.Context, threadID string) (*model.ThreadRecord, *model.ThreadHistory, error) {
	rec, err := r.repo.GetThread(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	h, err := r.repo.LoadHistory(ctx, threadID)
	if err != nil {
		return nil, nil, err
	}
	return rec, h, nil
}

func (r *Recorder) save(ctx context.Context, rec *model.ThreadRecord) {
	// the record outlives a cancelled request
	ctx = context.WithoutCancel(ctx)
	if err := r.repo.SaveThread(ctx, rec); err != nil {
		logx.Error().Err(err).Str("thread_id", rec.ID).Str("status", string(rec.Status)).Msg("Error saving thread record")
	}
}

func (r *Recorder) addMessage(ctx context.Context, threadID string, msg *schema.Message) {
	ctx = context.WithoutCancel(ctx)
	if err := r.repo.AddMessage(ctx, threadID, msg); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("Error appending thread message")
	}
}
