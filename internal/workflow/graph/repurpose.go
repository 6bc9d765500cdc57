package graph

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/workflow/graph/nodes"
	"github.com/contentstudio/server/internal/workflow/graph/parsers"
	"github.com/contentstudio/server/internal/workflow/graph/prompts"
	"github.com/contentstudio/server/internal/workflow/model"
)

const (
	NodeLoadArticle      = "load_article"
	NodeRepurposeArticle = "repurpose_article"
	NodeParseRepurpose   = "parse_repurpose"

	repurposeTokens = 1536
)

// BuildRepurposeChain compiles article loading, one JSON producing model
// call and the parse step as a linear chain.
func BuildRepurposeChain(ctx context.Context, cfg Config) (compose.Runnable[model.RepurposeRequest, *model.RepurposeState], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tuned := cfg.Models.WriterWith(einomodel.WithMaxTokens(repurposeTokens), einomodel.WithTemperature(0.3))
	loader := &articleLoader{extractor: cfg.Extractor}

	chain := compose.NewChain[model.RepurposeRequest, *model.RepurposeState](
		compose.WithGenLocalState(func(ctx context.Context) *model.RepurposeState {
			return &model.RepurposeState{}
		}),
	)
	chain.
		AppendLambda(compose.InvokableLambda(loader.load),
			compose.WithNodeKey(NodeLoadArticle), compose.WithNodeName(NodeLoadArticle)).
		AppendLambda(compose.InvokableLambda(renderRepurpose),
			compose.WithNodeKey(NodeRepurposeArticle), compose.WithNodeName(NodeRepurposeArticle)).
		AppendChatModel(tuned.Model,
			compose.WithNodeKey(nodes.ModelNode(NodeRepurposeArticle)),
			compose.WithNodeName(nodes.ModelNode(NodeRepurposeArticle)),
			compose.WithStatePostHandler(nodes.NewModelPostHandler[*model.RepurposeState](
				nodes.ModelNode(NodeRepurposeArticle), tuned.Name, nil)),
		).
		AppendLambda(compose.InvokableLambda(parseRepurpose),
			compose.WithNodeKey(NodeParseRepurpose), compose.WithNodeName(NodeParseRepurpose))

	runnable, err := chain.Compile(ctx, compose.WithGraphName(WorkflowRepurpose))
	if err != nil {
		return nil, fmt.Errorf("error compiling %s chain: %w", WorkflowRepurpose, err)
	}
	return runnable, nil
}

type articleLoader struct {
	extractor ArticleExtractor
}

// load seeds the state and resolves article_url when no text was posted.
// Posted text wins over the URL.
func (l *articleLoader) load(ctx context.Context, in model.RepurposeRequest) (string, error) {
	if err := nodes.Update(ctx, func(s *model.RepurposeState) {
		s.ThreadID = in.ThreadID
		s.Request = in
		s.RecordStep(NodeLoadArticle)
	}); err != nil {
		return "", err
	}

	text := strings.TrimSpace(in.ArticleText)
	title := ""
	if text == "" {
		url := strings.TrimSpace(in.ArticleURL)
		if url == "" {
			return "", errx.Validation("article_text or article_url is required")
		}
		if l.extractor == nil {
			return "", errx.Validation("article_url is not supported; post article_text instead")
		}
		article, err := l.extractor.Extract(ctx, url)
		if err != nil {
			return "", err
		}
		text, title = article.Markdown, article.Title
	}

	err := nodes.Update(ctx, func(s *model.RepurposeState) { s.Article = text })
	if err != nil {
		return "", err
	}
	return title, nil
}

func renderRepurpose(ctx context.Context, title string) ([]*schema.Message, error) {
	var msgs []*schema.Message
	err := compose.ProcessState(ctx, func(ctx context.Context, s *model.RepurposeState) error {
		s.RecordStep(NodeRepurposeArticle)
		var err error
		msgs, err = prompts.Render(ctx, prompts.RepurposeArticle, map[string]any{
			"Title":   title,
			"Article": s.Article,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", NodeRepurposeArticle, err)
	}
	return msgs, nil
}

// parseRepurpose fails the run with 502 when the model did not return the
// expected JSON object.
func parseRepurpose(ctx context.Context, out *schema.Message) (*model.RepurposeState, error) {
	content, err := parsers.ParseRepurpose(out.Content)
	if err != nil {
		return nil, errx.Upstream(err, "repurpose model")
	}
	return nodes.Read(ctx, func(s *model.RepurposeState) *model.RepurposeState {
		s.RecordStep(NodeParseRepurpose)
		s.Content = content
		return s.Snapshot()
	})
}
