package model

import "github.com/cloudwego/eino/schema"

// StepUsage is the token usage and cost of one model call.
type StepUsage struct {
	Node             string  `json:"node"`
	Model            string  `json:"model"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// RunStats is embedded in every workflow state. It is only touched from
// state handlers and compose.ProcessState, like the rest of the state.
type RunStats struct {
	ThreadID     string      `json:"thread_id"`
	Trace        []string    `json:"trace"`
	Usage        []StepUsage `json:"usage,omitempty"`
	TotalCostUSD float64     `json:"total_cost_usd"`
}

// Tracker is implemented by every workflow state through RunStats.
type Tracker interface {
	Stats() *RunStats
}

func (r *RunStats) Stats() *RunStats { return r }

// RecordStep appends a node name to the run trace.
func (r *RunStats) RecordStep(node string) {
	r.Trace = append(r.Trace, node)
}

// RecordUsage prices the usage of one model call and accumulates it.
// A nil usage (provider did not report it) is recorded with zero tokens.
func (r *RunStats) RecordUsage(node, modelName string, usage *schema.TokenUsage) StepUsage {
	step := StepUsage{Node: node, Model: modelName}
	if usage != nil {
		_, _, total := ComputeCost(usage, ResolvePricing(modelName))
		step.PromptTokens = usage.PromptTokens
		step.CompletionTokens = usage.CompletionTokens
		step.TotalTokens = usage.TotalTokens
		step.CostUSD = total
	}
	r.Usage = append(r.Usage, step)
	r.TotalCostUSD += step.CostUSD
	return step
}

// Clone returns a copy that is safe to hand out after the run finished.
func (r RunStats) Clone() RunStats {
	r.Trace = append([]string(nil), r.Trace...)
	r.Usage = append([]StepUsage(nil), r.Usage...)
	return r
}

// Visited reports whether the node appears in the trace.
func (r *RunStats) Visited(node string) bool {
	for _, n := range r.Trace {
		if n == node {
			return true
		}
	}
	return false
}
