package graph

import (
	"context"

	"github.com/contentstudio/server/internal/extract"
	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/search"
	"github.com/contentstudio/server/internal/transcript"
)

// Searcher is the web search used by the research nodes.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

// Captioner describes an uploaded image.
type Captioner interface {
	Caption(ctx context.Context, imageBase64, prompt string) (string, error)
}

// ImageGenerator renders the blog hero image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*media.Image, error)
}

// TranscriptFetcher loads metadata and captions of a YouTube video.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (*transcript.Video, error)
}

// ArticleExtractor turns a web page into Markdown.
type ArticleExtractor interface {
	Extract(ctx context.Context, rawURL string) (*extract.Article, error)
}
