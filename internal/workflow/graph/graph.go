package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/contentstudio/server/internal/metrics"
	"github.com/contentstudio/server/internal/workflow/graph/models"
	"github.com/contentstudio/server/internal/workflow/graph/observers"
	"github.com/contentstudio/server/internal/workflow/graph/threads"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

// Workflow names used for thread records, metrics and logs.
const (
	WorkflowBlog        = "blog"
	WorkflowNews        = "news_article"
	WorkflowScript      = "youtube_script"
	WorkflowVisual      = "visual_post"
	WorkflowYouTubeBlog = "youtube_blog"
	WorkflowRepurpose   = "repurpose"
)

const (
	defaultMaxRunSteps    = 30
	defaultResearchResult = 5
	defaultTrendResults   = 3

	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// Runner executes one compiled workflow.
type Runner[I, O any] interface {
	Invoke(ctx context.Context, in I) (O, error)
}

// Config holds everything needed to build the workflows. Only Models is
// required; a missing service degrades the node that uses it.
type Config struct {
	Models   *models.ChatModels
	Workflow model.WorkflowConfig

	Search      Searcher
	Captioner   Captioner
	Images      ImageGenerator
	Transcripts TranscriptFetcher
	Extractor   ArticleExtractor

	Threads *threads.Recorder
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("graph config is nil")
	}
	return c.Models.Validate()
}

func (c *Config) maxRunSteps() int {
	if c.Workflow.MaxRunSteps <= 0 {
		return defaultMaxRunSteps
	}
	return c.Workflow.MaxRunSteps
}

func (c *Config) researchResults() int {
	if c.Workflow.ResearchResults <= 0 {
		return defaultResearchResult
	}
	return c.Workflow.ResearchResults
}

func (c *Config) trendResults() int {
	if c.Workflow.TrendResults <= 0 {
		return defaultTrendResults
	}
	return c.Workflow.TrendResults
}

// Workflows are the compiled runners served by the API and the CLI.
type Workflows struct {
	Blog        Runner[model.BlogRequest, *model.BlogState]
	News        Runner[model.NewsRequest, *model.NewsState]
	Script      Runner[model.ScriptRequest, *model.ScriptState]
	Visual      Runner[model.VisualRequest, *model.VisualState]
	YouTubeBlog Runner[model.YouTubeBlogRequest, *model.YouTubeBlogState]
	Repurpose   Runner[model.RepurposeRequest, *model.RepurposeState]
}

// graphRunner assigns the thread id, attaches the observers and records the
// run in the thread store and metrics.
type graphRunner[I model.Threaded[I], O model.Tracker] struct {
	workflow string
	runnable compose.Runnable[I, O]
	recorder *threads.Recorder
	content  func(O) string
}

func newRunner[I model.Threaded[I], O model.Tracker](workflow string, runnable compose.Runnable[I, O], recorder *threads.Recorder, content func(O) string) *graphRunner[I, O] {
	return &graphRunner[I, O]{workflow: workflow, runnable: runnable, recorder: recorder, content: content}
}

func (r *graphRunner[I, O]) Invoke(ctx context.Context, in I) (O, error) {
	if in.Thread() == "" {
		in = in.WithThreadID(uuid.NewString())
	}
	threadID := in.Thread()

	start := time.Now()
	run := r.recorder.Start(ctx, r.workflow, threadID, in)

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordWorkflowRun(r.workflow, statusFailed, elapsed)
		r.recorder.Finish(ctx, run, nil, "", nil, err)
		logx.Error().Err(err).
			Str("workflow", r.workflow).
			Str("thread_id", threadID).
			Msg("Workflow failed")
		var zero O
		return zero, err
	}

	stats := out.Stats()
	metrics.RecordWorkflowRun(r.workflow, statusSucceeded, elapsed)
	r.recorder.Finish(ctx, run, out, r.content(out), stats, nil)
	logx.Info().
		Str("workflow", r.workflow).
		Str("thread_id", threadID).
		Strs("trace", stats.Trace).
		Float64("total_cost_usd", stats.TotalCostUSD).
		Dur("elapsed", elapsed).
		Msg("Workflow completed")
	return out, nil
}

// BuildWorkflows compiles every workflow graph once.
func BuildWorkflows(ctx context.Context, cfg Config) (*Workflows, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	blog, err := BuildBlogGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	news, err := BuildNewsGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	script, err := BuildScriptGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	visual, err := BuildVisualGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ytBlog, err := BuildYouTubeBlogGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repurpose, err := BuildRepurposeChain(ctx, cfg)
	if err != nil {
		return nil, err
	}

	wf := &Workflows{
		Blog: newRunner(WorkflowBlog, blog, cfg.Threads,
			func(s *model.BlogState) string { return s.Draft }),
		News: newRunner(WorkflowNews, news, cfg.Threads,
			func(s *model.NewsState) string { return s.ArticleDraft }),
		Script: newRunner(WorkflowScript, script, cfg.Threads,
			func(s *model.ScriptState) string { return s.ScriptDraft }),
		Visual: newRunner(WorkflowVisual, visual, cfg.Threads,
			func(s *model.VisualState) string { return s.FinalPost }),
		YouTubeBlog: &youTubeBlogRunner{
			transcripts: cfg.Transcripts,
			maxChars:    cfg.Workflow.TranscriptMaxChars,
			inner: newRunner(WorkflowYouTubeBlog, ytBlog, cfg.Threads,
				func(s *model.YouTubeBlogState) string { return s.BlogPost }),
		},
		Repurpose: newRunner(WorkflowRepurpose, repurpose, cfg.Threads,
			func(s *model.RepurposeState) string {
				if s.Content == nil {
					return ""
				}
				return s.Content.Summary
			}),
	}

	logx.Debug().Msg("Workflow graphs built successfully")
	return wf, nil
}

// compile finalizes a graph with the shared step limit.
func compile[I, O any](ctx context.Context, g *compose.Graph[I, O], name string, opts ...compose.GraphCompileOption) (compose.Runnable[I, O], error) {
	opts = append([]compose.GraphCompileOption{compose.WithGraphName(name)}, opts...)
	runnable, err := g.Compile(ctx, opts...)
	if err != nil {
		logx.Error().Err(err).Str("workflow", name).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling %s graph: %w", name, err)
	}
	logx.Debug().Str("workflow", name).Msg("Graph compiled successfully")
	return runnable, nil
}

// buildErr wraps the joined errors of the add-node calls of one graph.
func buildErr(name string, errs ...error) error {
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("build %s graph: %w", name, err)
	}
	return nil
}
