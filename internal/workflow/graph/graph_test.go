package graph

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/search"
	"github.com/contentstudio/server/internal/workflow/graph/models"
	"github.com/contentstudio/server/internal/workflow/graph/models/modeltest"
	"github.com/contentstudio/server/internal/workflow/graph/threads"
	"github.com/contentstudio/server/internal/workflow/model"
	"github.com/contentstudio/server/internal/workflow/repo"
)

func testConfig(m *modeltest.ChatModel) Config {
	return Config{
		Models: &models.ChatModels{
			Writer:          m,
			Fast:            m,
			WriterModelName: "llama-3.3-70b-versatile",
			FastModelName:   "llama-3.1-8b-instant",
		},
		Workflow: model.DefaultWorkflowConfig(),
	}
}

type fakeSearcher struct {
	results []search.Result
	err     error

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, maxResults int) ([]search.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > maxResults {
		return f.results[:maxResults], nil
	}
	return f.results, nil
}

type fakeCaptioner struct {
	caption string
	err     error
}

func (f *fakeCaptioner) Caption(_ context.Context, _, _ string) (string, error) {
	return f.caption, f.err
}

type fakeImages struct {
	url     string
	err     error
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string) (*media.Image, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return &media.Image{FileKey: "k", PublicURL: f.url}, nil
}

func TestBuildWorkflowsRequiresModels(t *testing.T) {
	_, err := BuildWorkflows(context.Background(), Config{})
	require.Error(t, err)
}

func TestRunnerAssignsThreadAndRecordsRun(t *testing.T) {
	m := modeltest.New(
		modeltest.Reply("Copy Editor", "Verdict: APPROVED\nObservations: No issues."),
		modeltest.Reply("News Reporter", "# Headline\nBody [S1]"),
	)
	m.Usage = &schema.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}

	store := repo.NewMemoryThreadRepository(time.Hour, 10)
	cfg := testConfig(m)
	cfg.Search = &fakeSearcher{results: []search.Result{{Title: "A", URL: "https://a.example", Content: "alpha"}}}
	cfg.Threads = threads.NewRecorder(store)

	wf, err := BuildWorkflows(context.Background(), cfg)
	require.NoError(t, err)

	out, err := wf.News.Invoke(context.Background(), model.NewsRequest{Prompt: "chip exports", WordCount: 400})
	require.NoError(t, err)
	require.NotEmpty(t, out.ThreadID)

	rec, err := store.GetThread(context.Background(), out.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, WorkflowNews, rec.Workflow)
	assert.Equal(t, model.ThreadSucceeded, rec.Status)
	assert.Equal(t, out.Trace, rec.Trace)
	assert.InDelta(t, out.TotalCostUSD, rec.CostUSD, 1e-12)

	hist, err := store.LoadHistory(context.Background(), out.ThreadID)
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "# Headline\nBody [S1]", hist.Messages[1].Content)
}

func TestRunnerKeepsClientThreadAndRecordsFailure(t *testing.T) {
	m := modeltest.New(&modeltest.Rule{Contains: "News Reporter", Err: errors.New("rate limited")})
	store := repo.NewMemoryThreadRepository(time.Hour, 10)
	cfg := testConfig(m)
	cfg.Threads = threads.NewRecorder(store)

	wf, err := BuildWorkflows(context.Background(), cfg)
	require.NoError(t, err)

	_, err = wf.News.Invoke(context.Background(), model.NewsRequest{ThreadID: "client-1", Prompt: "x"})
	require.Error(t, err)

	rec, err := store.GetThread(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Equal(t, model.ThreadFailed, rec.Status)
	assert.Contains(t, rec.Error, "rate limited")
}
