package graph

import (
	"context"
	"sort"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/contentstudio/server/internal/metrics"
	"github.com/contentstudio/server/internal/workflow/graph/nodes"
	"github.com/contentstudio/server/internal/workflow/graph/parsers"
	"github.com/contentstudio/server/internal/workflow/graph/prompts"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const (
	NodeProjectPlan      = "project_plan"
	NodeStrategyResearch = "strategy_research"
	NodeDraftBlog        = "draft_blog"
	NodeComplianceReview = "compliance_review"
	NodeEditorFeedback   = "editor_feedback"
	NodeRepurposeAssets  = "repurpose_assets"
	NodeFinalizePackage  = "finalize_package"

	// BlogSummary is the closing message of a blog run.
	BlogSummary = "Blog package ready: includes plan, research, draft, compliance, social assets."

	// ChannelMedium is the blog itself; it sets the draft length and is not
	// repurposed.
	ChannelMedium = "medium"
)

// channelOrder is the order social channels are listed in the strategist
// prompt. Unknown channels follow in alphabetical order.
var channelOrder = map[string]int{
	"linkedin":  1,
	"twitter":   2,
	"facebook":  3,
	"threads":   4,
	"instagram": 5,
}

var channelNames = map[string]string{
	"linkedin":  "LinkedIn",
	"twitter":   "Twitter/X",
	"facebook":  "Facebook",
	"threads":   "Threads",
	"instagram": "Instagram",
}

// assetChannel is one numbered line of the repurpose prompt.
type assetChannel struct {
	Index     int
	Name      string
	WordCount int
}

// blogChannels lists the selected social channels, medium excluded.
func blogChannels(modalities map[string]int) []assetChannel {
	keys := make([]string, 0, len(modalities))
	for k := range modalities {
		if k != ChannelMedium {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := channelOrder[keys[i]]
		oj, jok := channelOrder[keys[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	out := make([]assetChannel, 0, len(keys))
	for i, k := range keys {
		name, ok := channelNames[k]
		if !ok {
			name = k
		}
		out = append(out, assetChannel{Index: i + 1, Name: name, WordCount: modalities[k]})
	}
	return out
}

type blogBuilder struct {
	cfg   Config
	graph *compose.Graph[model.BlogRequest, *model.BlogState]
}

// BuildBlogGraph compiles plan, research, draft, review with an editor loop,
// social assets and the final package.
func BuildBlogGraph(ctx context.Context, cfg Config) (compose.Runnable[model.BlogRequest, *model.BlogState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &blogBuilder{
		cfg: cfg,
		graph: compose.NewGraph[model.BlogRequest, *model.BlogState](
			compose.WithGenLocalState(func(ctx context.Context) *model.BlogState {
				return &model.BlogState{}
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return compile(ctx, b.graph, WorkflowBlog, compose.WithMaxRunSteps(cfg.maxRunSteps()))
}

func (b *blogBuilder) addNodes() error {
	cms := b.cfg.Models
	short := cms.FastWith(einomodel.WithMaxTokens(256))

	return buildErr(WorkflowBlog,
		nodes.AddInit(b.graph, func(s *model.BlogState, in model.BlogRequest) {
			s.Request = in
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.BlogState]{
			Key:   NodeProjectPlan,
			Model: short,
			Render: func(ctx context.Context, s *model.BlogState) ([]*schema.Message, error) {
				r := s.Request
				return prompts.Render(ctx, prompts.BlogProjectPlan, map[string]any{
					"BrandName":  r.BrandName,
					"BrandVoice": r.BrandVoice,
					"Topic":      r.Topic,
					"Tone":       r.Tone,
					"Audience":   r.Audience,
					"WordCount":  r.WordCount,
					"Brief":      r.Brief,
				})
			},
			Store: func(s *model.BlogState, out *schema.Message) { s.Plan = out.Content },
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.BlogState]{
			Key:   NodeStrategyResearch,
			Model: short,
			Render: func(ctx context.Context, s *model.BlogState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.BlogStrategyResearch, map[string]any{
					"Topic": s.Request.Topic,
					"Plan":  s.Plan,
				})
			},
			Store: func(s *model.BlogState, out *schema.Message) { s.ResearchNotes = out.Content },
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.BlogState]{
			Key:   NodeDraftBlog,
			Model: cms.WriterWith(),
			Render: func(ctx context.Context, s *model.BlogState) ([]*schema.Message, error) {
				r := s.Request
				return prompts.Render(ctx, prompts.BlogDraft, map[string]any{
					"Topic":         r.Topic,
					"Tone":          r.Tone,
					"Audience":      r.Audience,
					"WordCount":     r.WordCount,
					"BrandVoice":    r.BrandVoice,
					"ResearchNotes": s.ResearchNotes,
					"RevisionNotes": s.RevisionNotes,
					"Draft":         s.Draft,
				})
			},
			Store: func(s *model.BlogState, out *schema.Message) { s.Draft = out.Content },
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.BlogState]{
			Key:   NodeComplianceReview,
			Model: short,
			Render: func(ctx context.Context, s *model.BlogState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.BlogComplianceReview, map[string]any{"Draft": s.Draft})
			},
			Store: func(s *model.BlogState, out *schema.Message) {
				c := parsers.ParseCompliance(out.Content)
				s.ComplianceReport = out.Content
				s.Verdict = c.Verdict
				s.FlaggedSections = c.FlaggedSections
			},
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.BlogState]{
			Key:   NodeEditorFeedback,
			Model: short,
			Render: func(ctx context.Context, s *model.BlogState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.BlogEditorFeedback, map[string]any{
					"ComplianceReport": s.ComplianceReport,
				})
			},
			Store: func(s *model.BlogState, out *schema.Message) {
				s.RevisionNotes = out.Content
				s.RevisionCount++
				metrics.RecordRevision(WorkflowBlog)
			},
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.BlogState]{
			Key:   NodeRepurposeAssets,
			Model: cms.FastWith(einomodel.WithMaxTokens(512)),
			Render: func(ctx context.Context, s *model.BlogState) ([]*schema.Message, error) {
				channels := blogChannels(s.Request.Modalities)
				return prompts.Render(ctx, prompts.BlogRepurposeAssets, map[string]any{
					"Channels":  channels,
					"HeroIndex": len(channels) + 1,
					"Draft":     s.Draft,
				})
			},
			Store: func(s *model.BlogState, out *schema.Message) {
				s.SocialAssets = out.Content
				s.HeroPrompt = parsers.ParseHeroPrompt(out.Content)
			},
		}),
		nodes.AddFinalize(b.graph, NodeFinalizePackage, b.finalize),
	)
}

func (b *blogBuilder) addEdges() error {
	return buildErr(WorkflowBlog, nodes.AddEdges(b.graph, [][2]string{
		{compose.START, nodes.NodeInit},
		{nodes.NodeInit, NodeProjectPlan},
		{nodes.ModelNode(NodeProjectPlan), NodeStrategyResearch},
		{nodes.ModelNode(NodeStrategyResearch), NodeDraftBlog},
		{nodes.ModelNode(NodeDraftBlog), NodeComplianceReview},
		{nodes.ModelNode(NodeEditorFeedback), NodeDraftBlog},
		{nodes.ModelNode(NodeRepurposeAssets), NodeFinalizePackage},
		{NodeFinalizePackage, compose.END},
	}))
}

func (b *blogBuilder) addBranches() error {
	maxRevisions := b.cfg.Workflow.MaxRevisions
	reviewBranch := compose.NewGraphBranch(
		nodes.NewStateCondition(func(s *model.BlogState) string {
			if nodes.ShouldRevise(s.ThreadID, s.Verdict, s.RevisionCount, maxRevisions) {
				return NodeEditorFeedback
			}
			return NodeRepurposeAssets
		}),
		map[string]bool{
			NodeEditorFeedback:  true,
			NodeRepurposeAssets: true,
		},
	)
	if err := b.graph.AddBranch(nodes.ModelNode(NodeComplianceReview), reviewBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding blog review branch")
		return buildErr(WorkflowBlog, err)
	}
	return nil
}

// finalize closes the package and renders the hero image when enabled. A
// failed image call is logged and leaves HeroImageURL empty.
func (b *blogBuilder) finalize(ctx context.Context) (*model.BlogState, error) {
	var threadID, heroPrompt string
	err := nodes.Update(ctx, func(s *model.BlogState) {
		s.RecordStep(NodeFinalizePackage)
		s.Summary = BlogSummary
		threadID, heroPrompt = s.ThreadID, s.HeroPrompt
	})
	if err != nil {
		return nil, err
	}

	if b.cfg.Workflow.HeroImage && b.cfg.Images != nil && heroPrompt != "" {
		img, err := b.cfg.Images.Generate(ctx, heroPrompt)
		if err != nil {
			metrics.RecordUpstreamError("image")
			logx.Warn().Err(err).Str("thread_id", threadID).Msg("Hero image generation failed")
		} else if err := nodes.Update(ctx, func(s *model.BlogState) { s.HeroImageURL = img.PublicURL }); err != nil {
			return nil, err
		}
	}

	return nodes.Read(ctx, func(s *model.BlogState) *model.BlogState { return s.Snapshot() })
}
