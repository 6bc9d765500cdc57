package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/contentstudio/server/internal/metrics"
	"github.com/contentstudio/server/internal/workflow/graph/models"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

// NodeInit is the first node of every workflow graph.
const NodeInit = "init"

// ModelNode returns the key of the chat model node paired with a step.
func ModelNode(step string) string { return step + "_model" }

// PromptStep is a render lambda followed by a chat model node. Render reads
// the run state and Store writes the reply back into it. Both run under the
// state lock, so neither may block on I/O.
type PromptStep[S model.Tracker] struct {
	Key    string
	Model  models.Tuned
	Render func(ctx context.Context, state S) ([]*schema.Message, error)
	Store  func(state S, out *schema.Message)
}

// AddInit adds the node that seeds the run state from the graph input.
func AddInit[I model.Request, O any, S model.Tracker](g *compose.Graph[I, O], seed func(state S, in I)) error {
	lambda := compose.InvokableLambda(func(ctx context.Context, in I) (*schema.Message, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, s S) error {
			s.Stats().ThreadID = in.Thread()
			seed(s, in)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("seed state: %w", err)
		}
		return schema.UserMessage(in.Thread()), nil
	})
	return g.AddLambdaNode(NodeInit, lambda, compose.WithNodeName(NodeInit))
}

// AddPromptStep adds the render lambda under step.Key and its chat model
// under ModelNode(step.Key). Edges between the two are added here.
func AddPromptStep[I, O any, S model.Tracker](g *compose.Graph[I, O], step PromptStep[S]) error {
	render := compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) ([]*schema.Message, error) {
		var msgs []*schema.Message
		err := compose.ProcessState(ctx, func(ctx context.Context, s S) error {
			s.Stats().RecordStep(step.Key)
			var err error
			msgs, err = step.Render(ctx, s)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Key, err)
		}
		return msgs, nil
	})

	return errors.Join(
		g.AddLambdaNode(step.Key, render, compose.WithNodeName(step.Key)),
		AddModelStep(g, ModelNode(step.Key), step.Model, step.Store),
		g.AddEdge(step.Key, ModelNode(step.Key)),
	)
}

// AddModelStep adds a chat model node whose usage is priced and recorded
// before store sees the reply.
func AddModelStep[I, O any, S model.Tracker](g *compose.Graph[I, O], key string, tuned models.Tuned, store func(S, *schema.Message)) error {
	return g.AddChatModelNode(key, tuned.Model,
		compose.WithNodeName(key),
		compose.WithStatePostHandler(NewModelPostHandler(key, tuned.Name, store)),
	)
}

// NewModelPostHandler records token usage and cost of a model reply.
func NewModelPostHandler[S model.Tracker](node, modelName string, store func(S, *schema.Message)) func(context.Context, *schema.Message, S) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state S) (*schema.Message, error) {
		if out == nil {
			return nil, fmt.Errorf("%s: model returned no message", node)
		}
		var usage *schema.TokenUsage
		if out.ResponseMeta != nil {
			usage = out.ResponseMeta.Usage
		}
		stats := state.Stats()
		step := stats.RecordUsage(node, modelName, usage)
		metrics.RecordLLMUsage(modelName, step.PromptTokens, step.CompletionTokens, step.CostUSD)

		logx.Debug().
			Str("thread_id", stats.ThreadID).
			Str("node", node).
			Str("model", modelName).
			Int("prompt_tokens", step.PromptTokens).
			Int("completion_tokens", step.CompletionTokens).
			Float64("cost_usd", step.CostUSD).
			Float64("total_cost_usd", stats.TotalCostUSD).
			Msg("LLM usage")

		if store != nil {
			store(state, out)
		}
		return out, nil
	}
}

// AddStep adds a lambda that only touches the run state.
func AddStep[I, O any, S model.Tracker](g *compose.Graph[I, O], key string, fn func(ctx context.Context, state S) error) error {
	lambda := compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (*schema.Message, error) {
		err := compose.ProcessState(ctx, func(ctx context.Context, s S) error {
			s.Stats().RecordStep(key)
			return fn(ctx, s)
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return in, nil
	})
	return g.AddLambdaNode(key, lambda, compose.WithNodeName(key))
}

// AddFinalize adds the terminal node. finish may do I/O; it gets the state
// only through Update and Snapshot.
func AddFinalize[I, O any](g *compose.Graph[I, O], key string, finish func(ctx context.Context) (O, error)) error {
	lambda := compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (O, error) {
		return finish(ctx)
	})
	return g.AddLambdaNode(key, lambda, compose.WithNodeName(key))
}

// Update runs fn against the run state under the state lock.
func Update[S any](ctx context.Context, fn func(S)) error {
	return compose.ProcessState(ctx, func(_ context.Context, s S) error {
		fn(s)
		return nil
	})
}

// Read returns a value derived from the run state.
func Read[S, T any](ctx context.Context, fn func(S) T) (T, error) {
	var out T
	err := compose.ProcessState(ctx, func(_ context.Context, s S) error {
		out = fn(s)
		return nil
	})
	return out, err
}

// NewStateCondition turns a routing decision over the run state into a
// branch condition.
func NewStateCondition[S any](decide func(S) string) func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, _ *schema.Message) (string, error) {
		next, err := Read(ctx, decide)
		if err != nil {
			return "", fmt.Errorf("read state for branch: %w", err)
		}
		return next, nil
	}
}

// AddEdges adds edges pairwise.
func AddEdges[I, O any](g *compose.Graph[I, O], edges [][2]string) error {
	var errs []error
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			errs = append(errs, fmt.Errorf("edge %s -> %s: %w", e[0], e[1], err))
		}
	}
	return errors.Join(errs...)
}
