// Package modeltest provides a scripted eino chat model for workflow tests.
package modeltest

import (
	"context"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Rule answers any call whose prompt contains Contains. Replies are used in
// order and the last one repeats.
type Rule struct {
	Contains string
	Replies  []string
	Err      error

	next int
}

// Call is one recorded Generate invocation.
type Call struct {
	Messages []*schema.Message
	Options  *einomodel.Options
}

// Prompt joins the contents of all messages of the call.
func (c Call) Prompt() string {
	parts := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// ChatModel is safe for concurrent use by parallel graph branches.
type ChatModel struct {
	Rules   []*Rule
	Default string
	Usage   *schema.TokenUsage

	mu    sync.Mutex
	calls []Call
}

func New(rules ...*Rule) *ChatModel {
	return &ChatModel{Rules: rules, Default: "ok"}
}

// Reply is shorthand for a rule with fixed replies.
func Reply(contains string, replies ...string) *Rule {
	return &Rule{Contains: contains, Replies: replies}
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := Call{Messages: input, Options: einomodel.GetCommonOptions(&einomodel.Options{}, opts...)}
	m.calls = append(m.calls, call)

	reply := m.Default
	prompt := call.Prompt()
	for _, r := range m.Rules {
		if !strings.Contains(prompt, r.Contains) {
			continue
		}
		if r.Err != nil {
			return nil, r.Err
		}
		if len(r.Replies) > 0 {
			i := r.next
			if i >= len(r.Replies) {
				i = len(r.Replies) - 1
			} else {
				r.next++
			}
			reply = r.Replies[i]
		}
		break
	}

	out := schema.AssistantMessage(reply, nil)
	if m.Usage != nil {
		usage := *m.Usage
		out.ResponseMeta = &schema.ResponseMeta{Usage: &usage}
	}
	return out, nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// Calls returns a copy of the recorded calls.
func (m *ChatModel) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsContaining returns the calls whose prompt contains s.
func (m *ChatModel) CallsContaining(s string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if strings.Contains(c.Prompt(), s) {
			out = append(out, c)
		}
	}
	return out
}
