package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/metrics"
	"github.com/contentstudio/server/internal/transcript"
	"github.com/contentstudio/server/internal/workflow/graph/nodes"
	"github.com/contentstudio/server/internal/workflow/graph/prompts"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const (
	NodeWriteBlog = "write_blog"
	NodeSummarize = "summarize"

	DefaultYouTubeWordCount = 600
	MinYouTubeWordCount     = 200
	MaxYouTubeWordCount     = 2000

	defaultTranscriptChars = 12000
)

type youTubeBlogBuilder struct {
	cfg   Config
	graph *compose.Graph[model.YouTubeBlogInput, *model.YouTubeBlogState]
}

// BuildYouTubeBlogGraph compiles the writer and summary steps over an
// already fetched transcript.
func BuildYouTubeBlogGraph(ctx context.Context, cfg Config) (compose.Runnable[model.YouTubeBlogInput, *model.YouTubeBlogState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &youTubeBlogBuilder{
		cfg: cfg,
		graph: compose.NewGraph[model.YouTubeBlogInput, *model.YouTubeBlogState](
			compose.WithGenLocalState(func(ctx context.Context) *model.YouTubeBlogState {
				return &model.YouTubeBlogState{}
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := buildErr(WorkflowYouTubeBlog, nodes.AddEdges(b.graph, [][2]string{
		{compose.START, nodes.NodeInit},
		{nodes.NodeInit, NodeWriteBlog},
		{nodes.ModelNode(NodeWriteBlog), NodeSummarize},
		{nodes.ModelNode(NodeSummarize), NodeFinalize},
		{NodeFinalize, compose.END},
	})); err != nil {
		return nil, err
	}
	return compile(ctx, b.graph, WorkflowYouTubeBlog, compose.WithMaxRunSteps(cfg.maxRunSteps()))
}

func (b *youTubeBlogBuilder) addNodes() error {
	cms := b.cfg.Models

	return buildErr(WorkflowYouTubeBlog,
		nodes.AddInit(b.graph, func(s *model.YouTubeBlogState, in model.YouTubeBlogInput) {
			s.Request = in.Request
			s.VideoID = in.VideoID
			s.VideoURL = transcript.WatchURL(in.VideoID)
			s.Metadata = in.Metadata
			s.Transcript = in.Transcript
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.YouTubeBlogState]{
			Key:   NodeWriteBlog,
			Model: cms.WriterWith(einomodel.WithTemperature(0.4), einomodel.WithMaxTokens(2048)),
			Render: func(ctx context.Context, s *model.YouTubeBlogState) ([]*schema.Message, error) {
				return prompts.RenderWithSystem(ctx, prompts.YouTubeBlogSystem, prompts.YouTubeBlogWrite, map[string]any{
					"Prompt":      s.Request.Prompt,
					"WordCount":   s.Request.WordCount,
					"Title":       s.Metadata.Title,
					"Channel":     s.Metadata.Channel,
					"Description": s.Metadata.Description,
					"Transcript":  s.Transcript,
				})
			},
			Store: func(s *model.YouTubeBlogState, out *schema.Message) {
				s.BlogPost = strings.TrimSpace(out.Content)
			},
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.YouTubeBlogState]{
			Key:   NodeSummarize,
			Model: cms.FastWith(einomodel.WithTemperature(0.3), einomodel.WithMaxTokens(reviewTokens)),
			Render: func(ctx context.Context, s *model.YouTubeBlogState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.YouTubeBlogSummarize, map[string]any{"BlogPost": s.BlogPost})
			},
			Store: func(s *model.YouTubeBlogState, out *schema.Message) {
				s.Summary = strings.TrimSpace(out.Content)
			},
		}),
		nodes.AddFinalize(b.graph, NodeFinalize, func(ctx context.Context) (*model.YouTubeBlogState, error) {
			return nodes.Read(ctx, func(s *model.YouTubeBlogState) *model.YouTubeBlogState {
				s.RecordStep(NodeFinalize)
				return s.Snapshot()
			})
		}),
	)
}

// youTubeBlogRunner validates the request and fetches the transcript before
// the graph runs.
type youTubeBlogRunner struct {
	transcripts TranscriptFetcher
	maxChars    int
	inner       Runner[model.YouTubeBlogInput, *model.YouTubeBlogState]
}

func (r *youTubeBlogRunner) Invoke(ctx context.Context, req model.YouTubeBlogRequest) (*model.YouTubeBlogState, error) {
	in, err := r.prepare(ctx, req)
	if err != nil {
		metrics.RecordWorkflowRun(WorkflowYouTubeBlog, statusFailed, 0)
		logx.Warn().Err(err).Str("youtube_url", req.URL).Msg("YouTube blog request rejected")
		return nil, err
	}
	return r.inner.Invoke(ctx, in)
}

// NormalizeYouTubeWordCount applies the default and the allowed range.
func NormalizeYouTubeWordCount(n int) (int, error) {
	if n == 0 {
		return DefaultYouTubeWordCount, nil
	}
	if n < MinYouTubeWordCount || n > MaxYouTubeWordCount {
		return 0, errx.Validation(fmt.Sprintf("word_count must be between %d and %d", MinYouTubeWordCount, MaxYouTubeWordCount))
	}
	return n, nil
}

func (r *youTubeBlogRunner) prepare(ctx context.Context, req model.YouTubeBlogRequest) (model.YouTubeBlogInput, error) {
	var in model.YouTubeBlogInput

	words, err := NormalizeYouTubeWordCount(req.WordCount)
	if err != nil {
		return in, err
	}
	req.WordCount = words

	videoID, err := transcript.ExtractVideoID(req.URL)
	if err != nil {
		return in, errx.New(err, http.StatusBadRequest, "Invalid YouTube URL")
	}
	if r.transcripts == nil {
		return in, errx.New(nil, http.StatusInternalServerError, "transcript service not configured")
	}

	video, err := r.transcripts.Fetch(ctx, videoID)
	if err != nil {
		var terr *transcript.Error
		if errors.As(err, &terr) {
			return in, errx.NotFound(err, terr.Reason)
		}
		return in, err
	}

	maxChars := r.maxChars
	if maxChars <= 0 {
		maxChars = defaultTranscriptChars
	}
	text := transcript.ToText(video.Segments, maxChars)
	if strings.TrimSpace(text) == "" {
		return in, errx.NotFound(nil, "Transcript is empty.")
	}

	return model.YouTubeBlogInput{
		Request:    req,
		VideoID:    videoID,
		Metadata:   video.Metadata,
		Transcript: text,
	}, nil
}
