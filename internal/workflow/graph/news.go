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
	"github.com/contentstudio/server/internal/workflow/graph/parsers"
	"github.com/contentstudio/server/internal/workflow/graph/prompts"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const (
	NodeTopicResearch = "topic_research"
	NodeDraftArticle  = "draft_article"
	NodeRevisionStep  = "revision_step"

	NewsSummary = "News article workflow completed."

	NoSearchResults = "No web search results found. Relying on internal knowledge."
	SearchFailed    = "Web research failed. Relying on internal knowledge."

	newsWriterTokens = 1500
	reviewTokens     = 512
)

// FormatSources renders search hits as numbered [S#] blocks the writer cites.
func FormatSources(results []search.Result) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("[S%d] %s\nSnippet: %s\nURL: %s", i+1, r.Title, r.Content, r.URL))
	}
	return strings.Join(blocks, "\n\n")
}

type newsBuilder struct {
	cfg   Config
	graph *compose.Graph[model.NewsRequest, *model.NewsState]
}

// BuildNewsGraph compiles web research, drafting and the review loop of the
// news article workflow.
func BuildNewsGraph(ctx context.Context, cfg Config) (compose.Runnable[model.NewsRequest, *model.NewsState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &newsBuilder{
		cfg: cfg,
		graph: compose.NewGraph[model.NewsRequest, *model.NewsState](
			compose.WithGenLocalState(func(ctx context.Context) *model.NewsState {
				return &model.NewsState{}
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
	return compile(ctx, b.graph, WorkflowNews, compose.WithMaxRunSteps(cfg.maxRunSteps()))
}

func (b *newsBuilder) addNodes() error {
	cms := b.cfg.Models
	writer := cms.WriterWith(einomodel.WithMaxTokens(newsWriterTokens))

	return buildErr(WorkflowNews,
		nodes.AddInit(b.graph, func(s *model.NewsState, in model.NewsRequest) {
			s.Request = in
		}),
		b.graph.AddLambdaNode(NodeTopicResearch,
			compose.InvokableLambda(b.topicResearch),
			compose.WithNodeName(NodeTopicResearch),
		),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.NewsState]{
			Key:   NodeDraftArticle,
			Model: writer,
			Render: func(ctx context.Context, s *model.NewsState) ([]*schema.Message, error) {
				r := s.Request
				return prompts.Render(ctx, prompts.NewsDraftArticle, map[string]any{
					"Prompt":            r.Prompt,
					"WordCount":         r.WordCount,
					"Tone":              r.Tone,
					"Audience":          r.Audience,
					"AdditionalContext": r.AdditionalContext,
					"ResearchNotes":     s.ResearchNotes,
				})
			},
			Store: func(s *model.NewsState, out *schema.Message) { s.ArticleDraft = out.Content },
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.NewsState]{
			Key:   NodeComplianceReview,
			Model: cms.FastWith(einomodel.WithMaxTokens(reviewTokens)),
			Render: func(ctx context.Context, s *model.NewsState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.NewsComplianceReview, map[string]any{
					"Audience":      s.Request.Audience,
					"ArticleDraft":  s.ArticleDraft,
					"ResearchNotes": s.ResearchNotes,
				})
			},
			Store: func(s *model.NewsState, out *schema.Message) {
				s.ComplianceReport = out.Content
				s.Verdict = parsers.ParseVerdict(out.Content)
			},
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.NewsState]{
			Key:   NodeRevisionStep,
			Model: writer,
			Render: func(ctx context.Context, s *model.NewsState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.NewsRevisionStep, map[string]any{
					"ArticleDraft":     s.ArticleDraft,
					"ComplianceReport": s.ComplianceReport,
					"WordCount":        s.Request.WordCount,
					"Tone":             s.Request.Tone,
					"ResearchNotes":    s.ResearchNotes,
				})
			},
			Store: func(s *model.NewsState, out *schema.Message) {
				s.ArticleDraft = out.Content
				s.RevisionCount++
				metrics.RecordRevision(WorkflowNews)
			},
		}),
		nodes.AddFinalize(b.graph, NodeFinalizePackage, func(ctx context.Context) (*model.NewsState, error) {
			return nodes.Read(ctx, func(s *model.NewsState) *model.NewsState {
				s.RecordStep(NodeFinalizePackage)
				s.FinalResponse = NewsSummary
				return s.Snapshot()
			})
		}),
	)
}

// topicResearch searches the web outside the state lock. Search failures
// never fail the run; the writer falls back to its own knowledge.
func (b *newsBuilder) topicResearch(ctx context.Context, in *schema.Message) (*schema.Message, error) {
	var query, threadID string
	if err := nodes.Update(ctx, func(s *model.NewsState) {
		s.RecordStep(NodeTopicResearch)
		query, threadID = s.Request.Prompt, s.ThreadID
	}); err != nil {
		return nil, err
	}

	notes := NoSearchResults
	if b.cfg.Search == nil {
		notes = SearchFailed
	} else if results, err := b.cfg.Search.Search(ctx, query, b.cfg.researchResults()); err != nil {
		metrics.RecordUpstreamError("search")
		logx.Warn().Err(err).Str("thread_id", threadID).Msg("Web research failed")
		notes = SearchFailed
	} else if len(results) > 0 {
		notes = FormatSources(results)
	}
	logx.Debug().Str("thread_id", threadID).Int("chars", len(notes)).Msg("Topic research done")

	if err := nodes.Update(ctx, func(s *model.NewsState) { s.ResearchNotes = notes }); err != nil {
		return nil, err
	}
	return in, nil
}

func (b *newsBuilder) addEdges() error {
	return buildErr(WorkflowNews, nodes.AddEdges(b.graph, [][2]string{
		{compose.START, nodes.NodeInit},
		{nodes.NodeInit, NodeTopicResearch},
		{NodeTopicResearch, NodeDraftArticle},
		{nodes.ModelNode(NodeDraftArticle), NodeComplianceReview},
		{nodes.ModelNode(NodeRevisionStep), NodeComplianceReview},
		{NodeFinalizePackage, compose.END},
	}))
}

func (b *newsBuilder) addBranches() error {
	maxRevisions := b.cfg.Workflow.MaxRevisions
	reviewBranch := compose.NewGraphBranch(
		nodes.NewStateCondition(func(s *model.NewsState) string {
			if nodes.ShouldRevise(s.ThreadID, s.Verdict, s.RevisionCount, maxRevisions) {
				return NodeRevisionStep
			}
			return NodeFinalizePackage
		}),
		map[string]bool{
			NodeRevisionStep:    true,
			NodeFinalizePackage: true,
		},
	)
	if err := b.graph.AddBranch(nodes.ModelNode(NodeComplianceReview), reviewBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding news review branch")
		return buildErr(WorkflowNews, err)
	}
	return nil
}
