package graph

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/contentstudio/server/internal/metrics"
	"github.com/contentstudio/server/internal/search"
	"github.com/contentstudio/server/internal/workflow/graph/nodes"
	"github.com/contentstudio/server/internal/workflow/graph/prompts"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const (
	NodeExtractImageCaption    = "extract_image_caption"
	NodeResearchPlatformTrends = "research_platform_trends"
	NodeGeneratePlatformPost   = "generate_platform_post"
	NodeFinalizePost           = "finalize_post"

	keyImageCaption   = "image_caption"
	keyPlatformTrends = "platform_trends"

	NoTrendResearch = "No trend research available."

	captionPrompt = "a photo of"
	postTokens    = 1024
)

// FormatTrends renders trend hits as "- content (Source: url)" lines.
func FormatTrends(results []search.Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s (Source: %s)", r.Content, r.URL))
	}
	return strings.Join(lines, "\n")
}

type visualBuilder struct {
	cfg   Config
	graph *compose.Graph[model.VisualRequest, *model.VisualState]
}

// BuildVisualGraph compiles the fan-out of image captioning and trend
// research into the post writer. Both branches run in parallel and the
// writer waits for both.
func BuildVisualGraph(ctx context.Context, cfg Config) (compose.Runnable[model.VisualRequest, *model.VisualState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &visualBuilder{
		cfg: cfg,
		graph: compose.NewGraph[model.VisualRequest, *model.VisualState](
			compose.WithGenLocalState(func(ctx context.Context) *model.VisualState {
				return &model.VisualState{}
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	return compile(ctx, b.graph, WorkflowVisual, compose.WithNodeTriggerMode(compose.AllPredecessor))
}

func (b *visualBuilder) addNodes() error {
	post := b.cfg.Models.FastWith(einomodel.WithMaxTokens(postTokens))

	return buildErr(WorkflowVisual,
		nodes.AddInit(b.graph, func(s *model.VisualState, in model.VisualRequest) {
			s.Request = in
		}),
		b.graph.AddLambdaNode(NodeExtractImageCaption,
			compose.InvokableLambda(b.extractImageCaption),
			compose.WithNodeName(NodeExtractImageCaption),
			compose.WithOutputKey(keyImageCaption),
		),
		b.graph.AddLambdaNode(NodeResearchPlatformTrends,
			compose.InvokableLambda(b.researchPlatformTrends),
			compose.WithNodeName(NodeResearchPlatformTrends),
			compose.WithOutputKey(keyPlatformTrends),
		),
		b.graph.AddLambdaNode(NodeGeneratePlatformPost,
			compose.InvokableLambda(b.renderPost),
			compose.WithNodeName(NodeGeneratePlatformPost),
		),
		nodes.AddModelStep(b.graph, nodes.ModelNode(NodeGeneratePlatformPost), post,
			func(s *model.VisualState, out *schema.Message) { s.FinalPost = out.Content }),
		nodes.AddFinalize(b.graph, NodeFinalizePost, func(ctx context.Context) (*model.VisualState, error) {
			return nodes.Read(ctx, func(s *model.VisualState) *model.VisualState {
				s.RecordStep(NodeFinalizePost)
				return s.Snapshot()
			})
		}),
	)
}

func (b *visualBuilder) addEdges() error {
	return buildErr(WorkflowVisual, nodes.AddEdges(b.graph, [][2]string{
		{compose.START, nodes.NodeInit},
		{nodes.NodeInit, NodeExtractImageCaption},
		{nodes.NodeInit, NodeResearchPlatformTrends},
		{NodeExtractImageCaption, NodeGeneratePlatformPost},
		{NodeResearchPlatformTrends, NodeGeneratePlatformPost},
		{NodeGeneratePlatformPost, nodes.ModelNode(NodeGeneratePlatformPost)},
		{nodes.ModelNode(NodeGeneratePlatformPost), NodeFinalizePost},
		{NodeFinalizePost, compose.END},
	}))
}

// extractImageCaption never fails the run; the failure text becomes the
// caption so the writer still gets the user's context.
func (b *visualBuilder) extractImageCaption(ctx context.Context, _ *schema.Message) (string, error) {
	var image, threadID string
	if err := nodes.Update(ctx, func(s *model.VisualState) {
		s.RecordStep(NodeExtractImageCaption)
		image, threadID = s.Request.ImageBase64, s.ThreadID
	}); err != nil {
		return "", err
	}

	var caption string
	if b.cfg.Captioner == nil {
		caption = "(Image analysis failed: caption service not configured)"
	} else if text, err := b.cfg.Captioner.Caption(ctx, image, captionPrompt); err != nil {
		metrics.RecordUpstreamError("caption")
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("Image captioning failed")
		caption = fmt.Sprintf("(Image analysis failed: %v)", err)
	} else {
		caption = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), captionPrompt))
	}

	if err := nodes.Update(ctx, func(s *model.VisualState) { s.ImageCaption = caption }); err != nil {
		return "", err
	}
	return caption, nil
}

func (b *visualBuilder) researchPlatformTrends(ctx context.Context, _ *schema.Message) (string, error) {
	var query, threadID string
	if err := nodes.Update(ctx, func(s *model.VisualState) {
		s.RecordStep(NodeResearchPlatformTrends)
		query = fmt.Sprintf("latest %s trends for %s", s.Request.Platform, s.Request.Context)
		threadID = s.ThreadID
	}); err != nil {
		return "", err
	}

	trends := NoTrendResearch
	if b.cfg.Search != nil {
		results, err := b.cfg.Search.Search(ctx, query, b.cfg.trendResults())
		switch {
		case err != nil:
			metrics.RecordUpstreamError("search")
			logx.Warn().Err(err).Str("thread_id", threadID).Msg("Trend research failed")
		case len(results) > 0:
			trends = FormatTrends(results)
		}
	}

	if err := nodes.Update(ctx, func(s *model.VisualState) { s.PlatformTrends = trends }); err != nil {
		return "", err
	}
	return trends, nil
}

// renderPost joins both branches. in holds their outputs under the output
// keys.
func (b *visualBuilder) renderPost(ctx context.Context, in map[string]any) ([]*schema.Message, error) {
	var msgs []*schema.Message
	err := compose.ProcessState(ctx, func(ctx context.Context, s *model.VisualState) error {
		s.RecordStep(NodeGeneratePlatformPost)
		caption, _ := in[keyImageCaption].(string)
		trends, _ := in[keyPlatformTrends].(string)
		var err error
		msgs, err = prompts.Render(ctx, prompts.VisualPlatformPost, map[string]any{
			"Platform":       s.Request.Platform,
			"Context":        s.Request.Context,
			"ImageCaption":   caption,
			"PlatformTrends": trends,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NodeGeneratePlatformPost, err)
	}
	return msgs, nil
}
