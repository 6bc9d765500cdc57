package models

import (
	"context"

	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// withDefaults prepends fixed options to every call so a shared model can be
// used with different token budgets and temperatures per node. Call time
// options still win because eino applies options in order.
type withDefaults struct {
	base     einomodel.BaseChatModel
	defaults []einomodel.Option
}

// WithDefaults wraps base so each call starts from opts.
func WithDefaults(base einomodel.BaseChatModel, opts ...einomodel.Option) einomodel.BaseChatModel {
	if len(opts) == 0 {
		return base
	}
	return &withDefaults{base: base, defaults: opts}
}

func (m *withDefaults) merge(opts []einomodel.Option) []einomodel.Option {
	merged := make([]einomodel.Option, 0, len(m.defaults)+len(opts))
	merged = append(merged, m.defaults...)
	return append(merged, opts...)
}

func (m *withDefaults) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	return m.base.Generate(ctx, input, m.merge(opts)...)
}

func (m *withDefaults) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.base.Stream(ctx, input, m.merge(opts)...)
}

// IsCallbacksEnabled defers to the wrapped model so callbacks fire once.
func (m *withDefaults) IsCallbacksEnabled() bool {
	return components.IsCallbacksEnabled(m.base)
}

func (m *withDefaults) GetType() string {
	if typ, ok := components.GetType(m.base); ok {
		return typ
	}
	return "Tuned"
}
