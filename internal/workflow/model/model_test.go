package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestResolvePricing(t *testing.T) {
	assert.Equal(t, Pricing{InputPerM: 0.59, OutputPerM: 0.79}, ResolvePricing("llama-3.3-70b-versatile"))
	assert.Equal(t, Pricing{InputPerM: 0.05, OutputPerM: 0.08}, ResolvePricing("groq/Llama-3.1-8b-instant"))
	assert.Equal(t, Pricing{InputPerM: 0.30, OutputPerM: 2.50}, ResolvePricing("models/gemini-2.5-flash"))
	assert.Equal(t, Pricing{}, ResolvePricing("llama3.2:latest"))
}

func TestComputeCost(t *testing.T) {
	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000}, Pricing{InputPerM: 1, OutputPerM: 2})
	assert.InDelta(t, 1.0, in, 1e-9)
	assert.InDelta(t, 1.0, out, 1e-9)
	assert.InDelta(t, 2.0, total, 1e-9)

	in, out, total = ComputeCost(nil, Pricing{InputPerM: 1})
	assert.Zero(t, in+out+total)
}

func TestRunStatsRecord(t *testing.T) {
	var stats RunStats
	stats.RecordStep("draft_article")
	step := stats.RecordUsage("draft_article", "llama-3.3-70b-versatile", &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 2000, TotalTokens: 3000})
	stats.RecordUsage("compliance_review", "unknown-model", nil)

	assert.Equal(t, []string{"draft_article"}, stats.Trace)
	assert.True(t, stats.Visited("draft_article"))
	assert.False(t, stats.Visited("revision_step"))
	assert.Equal(t, 3000, step.TotalTokens)
	assert.InDelta(t, 0.00059+0.00158, step.CostUSD, 1e-9)
	assert.InDelta(t, step.CostUSD, stats.TotalCostUSD, 1e-12)
	assert.Len(t, stats.Usage, 2)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := &BlogState{Draft: "v1"}
	s.RecordStep("draft_blog")

	snap := s.Snapshot()
	s.RecordStep("compliance_review")
	s.Draft = "v2"

	assert.Equal(t, "v1", snap.Draft)
	assert.Equal(t, []string{"draft_blog"}, snap.Trace)
	assert.Same(t, &s.RunStats, s.Stats())
}

func TestVerdict(t *testing.T) {
	assert.True(t, VerdictRevise.NeedsRevision())
	assert.False(t, VerdictApproved.NeedsRevision())
	assert.False(t, VerdictUnknown.NeedsRevision())
}
