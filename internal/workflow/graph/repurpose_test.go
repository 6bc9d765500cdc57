package graph

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/extract"
	"github.com/contentstudio/server/internal/workflow/graph/models/modeltest"
	"github.com/contentstudio/server/internal/workflow/model"
)

const repurposeReply = "Here you go:\n```json\n" + `{
  "summary": "Teams adopt Go.",
  "social_posts": {"twitter": "Go!", "linkedin": "Long post", "instagram": "#golang"},
  "faq_section": "**Q:** Why? **A:** Speed.",
  "entities": {"people": ["Rob Pike"], "organizations": ["Google"]}
}` + "\n```"

type fakeExtractor struct {
	article *extract.Article
	urls    []string
}

func (f *fakeExtractor) Extract(_ context.Context, rawURL string) (*extract.Article, error) {
	f.urls = append(f.urls, rawURL)
	return f.article, nil
}

func TestRepurposeChainFromText(t *testing.T) {
	m := modeltest.New(modeltest.Reply("content strategist", repurposeReply))
	runnable, err := BuildRepurposeChain(context.Background(), testConfig(m))
	require.NoError(t, err)

	out, err := runnable.Invoke(context.Background(), model.RepurposeRequest{
		ThreadID:    "rp-1",
		ArticleText: "Go adoption keeps growing.",
	})
	require.NoError(t, err)

	require.NotNil(t, out.Content)
	assert.Equal(t, "Teams adopt Go.", out.Content.Summary)
	assert.Equal(t, "#golang", out.Content.SocialPosts.Instagram)
	assert.Equal(t, []string{"Rob Pike"}, out.Content.Entities.People)
	assert.Empty(t, out.Content.Entities.Topics)
	assert.Equal(t, []string{NodeLoadArticle, NodeRepurposeArticle, NodeParseRepurpose}, out.Trace)
	assert.Equal(t, "rp-1", out.ThreadID)
	assert.Len(t, out.Usage, 1)
	assert.Contains(t, m.Calls()[0].Prompt(), "Go adoption keeps growing.")
}

func TestRepurposeChainFromURL(t *testing.T) {
	m := modeltest.New(modeltest.Reply("content strategist", repurposeReply))
	ex := &fakeExtractor{article: &extract.Article{Title: "Go at scale", Markdown: "# Go at scale\n\nBody"}}
	cfg := testConfig(m)
	cfg.Extractor = ex

	runnable, err := BuildRepurposeChain(context.Background(), cfg)
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), model.RepurposeRequest{ArticleURL: "https://blog.example/go"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://blog.example/go"}, ex.urls)
	assert.Contains(t, m.Calls()[0].Prompt(), "Title: Go at scale")
}

func TestRepurposeChainErrors(t *testing.T) {
	m := modeltest.New(modeltest.Reply("content strategist", "Sorry, I cannot help."))
	runnable, err := BuildRepurposeChain(context.Background(), testConfig(m))
	require.NoError(t, err)

	_, err = runnable.Invoke(context.Background(), model.RepurposeRequest{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, errx.StatusOf(err))
	assert.Empty(t, m.Calls())

	_, err = runnable.Invoke(context.Background(), model.RepurposeRequest{ArticleText: "text"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}
