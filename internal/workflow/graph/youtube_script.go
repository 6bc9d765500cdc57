package graph

import (
	"context"

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
	NodeGenerateScript = "generate_script"
	NodeFinalize       = "finalize"

	ScriptSummary = "YouTube script generation completed."

	NoRevisionNeeded = "No revision needed."
	RevisedNote      = "Revised based on compliance."

	shortformStyle = "Write in a fast-paced, punchy TikTok/Shorts pacing with jump cuts."
	longformStyle  = "Write in a structured long-form YouTube documentary/narrative style."

	scriptTokens = 1024
)

func scriptStyle(videoType string) string {
	if videoType == model.VideoShortform {
		return shortformStyle
	}
	return longformStyle
}

type scriptBuilder struct {
	cfg   Config
	graph *compose.Graph[model.ScriptRequest, *model.ScriptState]
}

// BuildScriptGraph compiles research, script writing, review and a single
// optional revision pass.
func BuildScriptGraph(ctx context.Context, cfg Config) (compose.Runnable[model.ScriptRequest, *model.ScriptState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := &scriptBuilder{
		cfg: cfg,
		graph: compose.NewGraph[model.ScriptRequest, *model.ScriptState](
			compose.WithGenLocalState(func(ctx context.Context) *model.ScriptState {
				return &model.ScriptState{}
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
	return compile(ctx, b.graph, WorkflowScript, compose.WithMaxRunSteps(cfg.maxRunSteps()))
}

func (b *scriptBuilder) addNodes() error {
	cms := b.cfg.Models
	writer := cms.WriterWith(einomodel.WithMaxTokens(scriptTokens))
	fast := cms.FastWith(einomodel.WithMaxTokens(reviewTokens))

	return buildErr(WorkflowScript,
		nodes.AddInit(b.graph, func(s *model.ScriptState, in model.ScriptRequest) {
			s.Request = in
			s.DurationMinutes = parsers.VideoDuration(in.VideoType, in.Prompt)
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.ScriptState]{
			Key:   NodeTopicResearch,
			Model: fast,
			Render: func(ctx context.Context, s *model.ScriptState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.ScriptTopicResearch, map[string]any{"Prompt": s.Request.Prompt})
			},
			Store: func(s *model.ScriptState, out *schema.Message) { s.ResearchNotes = out.Content },
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.ScriptState]{
			Key:   NodeGenerateScript,
			Model: writer,
			Render: func(ctx context.Context, s *model.ScriptState) ([]*schema.Message, error) {
				r := s.Request
				return prompts.Render(ctx, prompts.ScriptGenerate, map[string]any{
					"Duration":           s.DurationMinutes,
					"VideoType":          r.VideoType,
					"Tone":               r.Tone,
					"Audience":           r.Audience,
					"ChannelDescription": r.ChannelDescription,
					"Subscribers":        r.Subscribers,
					"Prompt":             r.Prompt,
					"ResearchNotes":      s.ResearchNotes,
					"Style":              scriptStyle(r.VideoType),
				})
			},
			Store: func(s *model.ScriptState, out *schema.Message) { s.ScriptDraft = out.Content },
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.ScriptState]{
			Key:   NodeComplianceReview,
			Model: fast,
			Render: func(ctx context.Context, s *model.ScriptState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.ScriptComplianceCheck, map[string]any{
					"Tone":        s.Request.Tone,
					"Audience":    s.Request.Audience,
					"ScriptDraft": s.ScriptDraft,
				})
			},
			Store: func(s *model.ScriptState, out *schema.Message) {
				s.ComplianceReport = out.Content
				s.Verdict = parsers.ParseVerdict(out.Content)
			},
		}),
		nodes.AddPromptStep(b.graph, nodes.PromptStep[*model.ScriptState]{
			Key:   NodeRevisionStep,
			Model: writer,
			Render: func(ctx context.Context, s *model.ScriptState) ([]*schema.Message, error) {
				return prompts.Render(ctx, prompts.ScriptRevisionStep, map[string]any{
					"ComplianceReport": s.ComplianceReport,
					"ScriptDraft":      s.ScriptDraft,
				})
			},
			Store: func(s *model.ScriptState, out *schema.Message) {
				s.ScriptDraft = out.Content
				s.RevisionNotes = RevisedNote
				s.RevisionCount++
				metrics.RecordRevision(WorkflowScript)
			},
		}),
		nodes.AddFinalize(b.graph, NodeFinalize, func(ctx context.Context) (*model.ScriptState, error) {
			return nodes.Read(ctx, func(s *model.ScriptState) *model.ScriptState {
				s.RecordStep(NodeFinalize)
				if s.RevisionNotes == "" {
					s.RevisionNotes = NoRevisionNeeded
				}
				s.Response = ScriptSummary
				return s.Snapshot()
			})
		}),
	)
}

func (b *scriptBuilder) addEdges() error {
	return buildErr(WorkflowScript, nodes.AddEdges(b.graph, [][2]string{
		{compose.START, nodes.NodeInit},
		{nodes.NodeInit, NodeTopicResearch},
		{nodes.ModelNode(NodeTopicResearch), NodeGenerateScript},
		{nodes.ModelNode(NodeGenerateScript), NodeComplianceReview},
		{nodes.ModelNode(NodeRevisionStep), NodeFinalize},
		{NodeFinalize, compose.END},
	}))
}

// addBranches revises once unless the reviewer approved. An unreadable
// report is treated as not approved.
func (b *scriptBuilder) addBranches() error {
	reviewBranch := compose.NewGraphBranch(
		nodes.NewStateCondition(func(s *model.ScriptState) string {
			if s.Verdict == model.VerdictApproved {
				return NodeFinalize
			}
			return NodeRevisionStep
		}),
		map[string]bool{
			NodeRevisionStep: true,
			NodeFinalize:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.ModelNode(NodeComplianceReview), reviewBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding script review branch")
		return buildErr(WorkflowScript, err)
	}
	return nil
}
