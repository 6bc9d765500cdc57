package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentstudio/server/internal/workflow/graph/models/modeltest"
	"github.com/contentstudio/server/internal/workflow/model"
)

func scriptModel(report string) *modeltest.ChatModel {
	return modeltest.New(
		modeltest.Reply("compliance reviewer", report),
		modeltest.Reply("script editor", "SCRIPT v2"),
		modeltest.Reply("professional YouTube scriptwriter", "SCRIPT v1"),
		modeltest.Reply("research strategist", "- fact one"),
	)
}

func TestScriptGraph(t *testing.T) {
	tests := []struct {
		name      string
		report    string
		videoType string
		prompt    string
		wantTrace []string
		wantDraft string
		wantNotes string
		wantCount int
		wantMins  int
		wantStyle string
	}{
		{
			name:      "approved skips revision",
			report:    "Verdict: APPROVED\n- tight pacing",
			videoType: model.VideoShortform,
			prompt:    "a 45 seconds explainer on Go channels",
			wantTrace: []string{NodeTopicResearch, NodeGenerateScript, NodeComplianceReview, NodeFinalize},
			wantDraft: "SCRIPT v1",
			wantNotes: NoRevisionNeeded,
			wantMins:  1,
			wantStyle: shortformStyle,
		},
		{
			name:      "revision needed",
			report:    "Verdict: REVISION_NEEDED\n- slower intro",
			videoType: model.VideoLongform,
			prompt:    "deep dive into generics",
			wantTrace: []string{NodeTopicResearch, NodeGenerateScript, NodeComplianceReview, NodeRevisionStep, NodeFinalize},
			wantDraft: "SCRIPT v2",
			wantNotes: RevisedNote,
			wantCount: 1,
			wantMins:  15,
			wantStyle: longformStyle,
		},
		{
			name:      "unreadable report revises",
			report:    "Looks fine to me",
			videoType: model.VideoShortform,
			prompt:    "a 3 minute tour",
			wantTrace: []string{NodeTopicResearch, NodeGenerateScript, NodeComplianceReview, NodeRevisionStep, NodeFinalize},
			wantDraft: "SCRIPT v2",
			wantNotes: RevisedNote,
			wantCount: 1,
			wantMins:  3,
			wantStyle: shortformStyle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := scriptModel(tt.report)
			runnable, err := BuildScriptGraph(context.Background(), testConfig(m))
			require.NoError(t, err)

			out, err := runnable.Invoke(context.Background(), model.ScriptRequest{
				ThreadID:  "script-1",
				Prompt:    tt.prompt,
				VideoType: tt.videoType,
				Tone:      "casual",
				Audience:  "developers",
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantTrace, out.Trace)
			assert.Equal(t, tt.wantDraft, out.ScriptDraft)
			assert.Equal(t, tt.wantNotes, out.RevisionNotes)
			assert.Equal(t, tt.wantCount, out.RevisionCount)
			assert.Equal(t, tt.wantMins, out.DurationMinutes)
			assert.Equal(t, ScriptSummary, out.Response)

			calls := m.CallsContaining("professional YouTube scriptwriter")
			require.Len(t, calls, 1)
			assert.Contains(t, calls[0].Prompt(), tt.wantStyle)
		})
	}
}
