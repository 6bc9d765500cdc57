package graph

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/transcript"
	"github.com/contentstudio/server/internal/workflow/graph/models/modeltest"
	"github.com/contentstudio/server/internal/workflow/model"
)

type fakeTranscripts struct {
	video *transcript.Video
	err   error
	ids   []string
}

func (f *fakeTranscripts) Fetch(_ context.Context, videoID string) (*transcript.Video, error) {
	f.ids = append(f.ids, videoID)
	if f.err != nil {
		return nil, f.err
	}
	return f.video, nil
}

func testVideo() *transcript.Video {
	return &transcript.Video{
		ID:       "dQw4w9WgXcQ",
		Metadata: model.VideoMetadata{Title: "Go in 100 seconds", Channel: "Gopher TV", Description: "A quick tour."},
		Segments: []transcript.Segment{
			{Text: "Go is a compiled language.", Start: 0, Duration: 2},
			{Text: "It has goroutines.", Start: 2, Duration: 2},
		},
	}
}

func youTubeWorkflows(t *testing.T, m *modeltest.ChatModel, fetcher TranscriptFetcher) *Workflows {
	t.Helper()
	cfg := testConfig(m)
	cfg.Transcripts = fetcher
	wf, err := BuildWorkflows(context.Background(), cfg)
	require.NoError(t, err)
	return wf
}

func TestYouTubeBlogWorkflow(t *testing.T) {
	m := modeltest.New(
		modeltest.Reply("Summarize the following blog post", "  Short summary.\n- a\n- b\n- c  "),
		modeltest.Reply("based on the YouTube video", "\n# Go basics\n\nBody\n"),
	)
	fetcher := &fakeTranscripts{video: testVideo()}
	wf := youTubeWorkflows(t, m, fetcher)

	out, err := wf.YouTubeBlog.Invoke(context.Background(), model.YouTubeBlogRequest{
		URL:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10",
		Prompt: "beginner friendly",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"dQw4w9WgXcQ"}, fetcher.ids)
	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", out.VideoURL)
	assert.Equal(t, "# Go basics\n\nBody", out.BlogPost)
	assert.Equal(t, "Short summary.\n- a\n- b\n- c", out.Summary)
	assert.Equal(t, DefaultYouTubeWordCount, out.Request.WordCount)
	assert.Equal(t, []string{NodeWriteBlog, NodeSummarize, NodeFinalize}, out.Trace)
	assert.NotEmpty(t, out.ThreadID)

	writes := m.CallsContaining("based on the YouTube video")
	require.Len(t, writes, 1)
	require.Len(t, writes[0].Messages, 2)
	assert.Contains(t, writes[0].Messages[0].Content, "editorial assistant")
	assert.Contains(t, writes[0].Prompt(), "Go is a compiled language. It has goroutines.")
	require.NotNil(t, writes[0].Options.Temperature)
	assert.InDelta(t, 0.4, *writes[0].Options.Temperature, 1e-6)
	assert.Equal(t, 2048, *writes[0].Options.MaxTokens)
}

func TestYouTubeBlogTranscriptIsCapped(t *testing.T) {
	m := modeltest.New()
	video := testVideo()
	video.Segments = []transcript.Segment{{Text: strings.Repeat("x", 50)}}
	cfg := testConfig(m)
	cfg.Transcripts = &fakeTranscripts{video: video}
	cfg.Workflow.TranscriptMaxChars = 10
	wf, err := BuildWorkflows(context.Background(), cfg)
	require.NoError(t, err)

	_, err = wf.YouTubeBlog.Invoke(context.Background(), model.YouTubeBlogRequest{URL: "https://youtu.be/dQw4w9WgXcQ", WordCount: 300})
	require.NoError(t, err)
	assert.Contains(t, m.Calls()[0].Prompt(), strings.Repeat("x", 10)+"...")
	assert.NotContains(t, m.Calls()[0].Prompt(), strings.Repeat("x", 11))
}

func TestYouTubeBlogErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     model.YouTubeBlogRequest
		fetcher *fakeTranscripts
		status  int
		message string
	}{
		{
			name:    "invalid url",
			req:     model.YouTubeBlogRequest{URL: "https://vimeo.com/123"},
			fetcher: &fakeTranscripts{video: testVideo()},
			status:  http.StatusBadRequest,
			message: "Invalid YouTube URL",
		},
		{
			name:    "word count too small",
			req:     model.YouTubeBlogRequest{URL: "https://youtu.be/dQw4w9WgXcQ", WordCount: 150},
			fetcher: &fakeTranscripts{video: testVideo()},
			status:  http.StatusUnprocessableEntity,
		},
		{
			name:    "word count too large",
			req:     model.YouTubeBlogRequest{URL: "https://youtu.be/dQw4w9WgXcQ", WordCount: 2001},
			fetcher: &fakeTranscripts{video: testVideo()},
			status:  http.StatusUnprocessableEntity,
		},
		{
			name:    "transcript unavailable",
			req:     model.YouTubeBlogRequest{URL: "https://youtu.be/dQw4w9WgXcQ"},
			fetcher: &fakeTranscripts{err: &transcript.Error{Reason: "No transcript available for this video."}},
			status:  http.StatusNotFound,
			message: "No transcript available for this video.",
		},
		{
			name:    "other failure",
			req:     model.YouTubeBlogRequest{URL: "https://youtu.be/dQw4w9WgXcQ"},
			fetcher: &fakeTranscripts{err: errors.New("disk full")},
			status:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := modeltest.New()
			wf := youTubeWorkflows(t, m, tt.fetcher)

			_, err := wf.YouTubeBlog.Invoke(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.status, errx.StatusOf(err))
			if tt.message != "" {
				var appErr *errx.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.message, appErr.Message)
			}
			assert.Empty(t, m.Calls())
		})
	}
}

func TestNormalizeYouTubeWordCount(t *testing.T) {
	n, err := NormalizeYouTubeWordCount(0)
	require.NoError(t, err)
	assert.Equal(t, 600, n)

	n, err = NormalizeYouTubeWordCount(2000)
	require.NoError(t, err)
	assert.Equal(t, 2000, n)

	_, err = NormalizeYouTubeWordCount(199)
	assert.Error(t, err)
}
