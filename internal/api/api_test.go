package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/workflow/graph"
	"github.com/contentstudio/server/internal/workflow/model"
	"github.com/contentstudio/server/internal/workflow/repo"
)

type runnerFunc[I, O any] func(ctx context.Context, in I) (O, error)

func (f runnerFunc[I, O]) Invoke(ctx context.Context, in I) (O, error) { return f(ctx, in) }

func notCalled[I, O any](t *testing.T) runnerFunc[I, O] {
	return func(context.Context, I) (O, error) {
		t.Helper()
		t.Fatal("workflow should not run")
		var zero O
		return zero, nil
	}
}

func stubWorkflows(t *testing.T) *graph.Workflows {
	return &graph.Workflows{
		Blog:        notCalled[model.BlogRequest, *model.BlogState](t),
		News:        notCalled[model.NewsRequest, *model.NewsState](t),
		Script:      notCalled[model.ScriptRequest, *model.ScriptState](t),
		Visual:      notCalled[model.VisualRequest, *model.VisualState](t),
		YouTubeBlog: notCalled[model.YouTubeBlogRequest, *model.YouTubeBlogState](t),
		Repurpose:   notCalled[model.RepurposeRequest, *model.RepurposeState](t),
	}
}

func testServer(t *testing.T, wf *graph.Workflows, mutate ...func(*Config, *Deps)) http.Handler {
	t.Helper()
	cfg := Config{CORSOrigins: []string{"http://localhost:3000"}}
	deps := Deps{Workflows: wf}
	for _, m := range mutate {
		m(&cfg, &deps)
	}
	s, err := NewServer(cfg, deps)
	require.NoError(t, err)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthRoutes(t *testing.T) {
	h := testServer(t, stubWorkflows(t))

	rec, body := do(t, h, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", body["message"])

	_, body = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, "ok", body["status"])

	rec, _ = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "content_studio_http_requests_total")
}

func TestBlogPayloadNormalisation(t *testing.T) {
	var got model.BlogRequest
	wf := stubWorkflows(t)
	wf.Blog = runnerFunc[model.BlogRequest, *model.BlogState](func(_ context.Context, in model.BlogRequest) (*model.BlogState, error) {
		got = in
		s := &model.BlogState{Request: in, Draft: "# Draft", Summary: "done"}
		s.ThreadID = "thread-1"
		s.Trace = []string{"project_plan"}
		return s, nil
	})
	h := testServer(t, wf)

	rec, body := do(t, h, http.MethodPost, "/generate-blog", `{
		"brandVoice": "Acme",
		"prompt": "Go in production",
		"existingDraft": "keep it short",
		"modalities": ["medium", "linkedin", "tiktok"],
		"linkedinWordCount": "250",
		"twitterWordCount": 80
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Acme", got.BrandName)
	assert.Equal(t, "Acme", got.BrandVoice)
	assert.Equal(t, "Go in production", got.Topic)
	assert.Equal(t, "keep it short", got.Brief)
	assert.Equal(t, 600, got.WordCount)
	assert.Equal(t, map[string]int{"medium": 600, "linkedin": 250, "tiktok": 100}, got.Modalities)

	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "thread-1", body["threadId"])
	assert.Equal(t, "# Draft", body["generated_blog"])
	assert.NotContains(t, body, "html")
}

func TestBlogWordCountWithoutMedium(t *testing.T) {
	p := blogPayload{}
	require.NoError(t, json.Unmarshal([]byte(`{"modalities":["twitter"],"mediumWordCount":900}`), &p))
	req := p.blogRequest()
	assert.Equal(t, defaultBlogWords, req.WordCount)
	assert.Equal(t, map[string]int{"twitter": 100}, req.Modalities)
}

func TestNewsAndScriptPayloads(t *testing.T) {
	var news model.NewsRequest
	var script model.ScriptRequest
	wf := stubWorkflows(t)
	wf.News = runnerFunc[model.NewsRequest, *model.NewsState](func(_ context.Context, in model.NewsRequest) (*model.NewsState, error) {
		news = in
		s := &model.NewsState{ArticleDraft: "# Headline\n\nBody"}
		s.ThreadID = in.ThreadID
		return s, nil
	})
	wf.Script = runnerFunc[model.ScriptRequest, *model.ScriptState](func(_ context.Context, in model.ScriptRequest) (*model.ScriptState, error) {
		script = in
		return &model.ScriptState{ScriptDraft: "INTRO", RevisionCount: 1}, nil
	})
	h := testServer(t, wf)

	rec, body := do(t, h, http.MethodPost, "/generate-news-article?format=html",
		`{"threadId":"news-7","prompt":"rate cuts","existingDraft":"old draft"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.NewsRequest{
		ThreadID:          "news-7",
		Prompt:            "rate cuts",
		AdditionalContext: "old draft",
		WordCount:         defaultNewsWords,
	}, news)
	assert.Equal(t, "news-7", body["threadId"])
	assert.Contains(t, body["html"], "Headline</h1>")

	rec, body = do(t, h, http.MethodPost, "/generate-youtube-script",
		`{"channelDescription":"cooking","prompt":"pasta","subscribers":1200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.VideoShortform, script.VideoType)
	assert.Equal(t, "1200", script.Subscribers)
	assert.Equal(t, "INTRO", body["generated_script"])
	assert.EqualValues(t, 1, body["revision_count"])
}

func TestRequestValidation(t *testing.T) {
	h := testServer(t, stubWorkflows(t))

	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		message string
	}{
		{"empty body", "/generate-blog", "", http.StatusBadRequest, "Request body is required"},
		{"malformed json", "/generate-news-article", "{", http.StatusBadRequest, "Invalid JSON body"},
		{"visual without image", "/generate-visual-post", `{"platform":"Instagram"}`, http.StatusUnprocessableEntity, "image_base64 is required"},
		{"visual without platform", "/generate-visual-post", `{"image_base64":"aGk="}`, http.StatusUnprocessableEntity, "platform is required"},
		{"youtube without url", "/youtube-blog", `{"prompt":"x"}`, http.StatusUnprocessableEntity, "youtube_url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, tt.message, body["detail"])
		})
	}
}

func TestWorkflowErrorsMapToStatus(t *testing.T) {
	wf := stubWorkflows(t)
	wf.YouTubeBlog = runnerFunc[model.YouTubeBlogRequest, *model.YouTubeBlogState](func(context.Context, model.YouTubeBlogRequest) (*model.YouTubeBlogState, error) {
		return nil, errx.NotFound(errors.New("no captions"), "No transcript available for this video.")
	})
	wf.Repurpose = runnerFunc[model.RepurposeRequest, *model.RepurposeState](func(context.Context, model.RepurposeRequest) (*model.RepurposeState, error) {
		return nil, errx.Upstream(errors.New("timeout"), "repurpose model")
	})
	wf.Visual = runnerFunc[model.VisualRequest, *model.VisualState](func(context.Context, model.VisualRequest) (*model.VisualState, error) {
		panic("boom")
	})
	h := testServer(t, wf)

	rec, body := do(t, h, http.MethodPost, "/youtube-blog", `{"youtube_url":"https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No transcript available for this video.", body["detail"])

	rec, body = do(t, h, http.MethodPost, "/repurpose-article", `{"article_text":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "repurpose model request failed", body["message"])

	rec, body = do(t, h, http.MethodPost, "/generate-visual-post", `{"image_base64":"aGk=","platform":"X"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errx.SystemErrorMessage, body["message"])
}

func TestYouTubeBlogResponse(t *testing.T) {
	wf := stubWorkflows(t)
	wf.YouTubeBlog = runnerFunc[model.YouTubeBlogRequest, *model.YouTubeBlogState](func(_ context.Context, in model.YouTubeBlogRequest) (*model.YouTubeBlogState, error) {
		assert.Equal(t, 900, in.WordCount)
		s := &model.YouTubeBlogState{
			Request:    in,
			VideoID:    "dQw4w9WgXcQ",
			VideoURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Metadata:   model.VideoMetadata{Title: "Go"},
			Transcript: "hello there",
			BlogPost:   "# Go",
			Summary:    "short",
		}
		return s, nil
	})
	h := testServer(t, wf)

	rec, body := do(t, h, http.MethodPost, "/youtube-blog", `{"youtube_url":" https://youtu.be/dQw4w9WgXcQ ","word_count":"900"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Go", body["blog_post"])
	assert.Equal(t, "hello there", body["transcript"])
	assert.EqualValues(t, 900, body["word_count"])
	assert.Equal(t, "Go", body["metadata"].(map[string]any)["title"])
}

func TestCORS(t *testing.T) {
	h := testServer(t, stubWorkflows(t))

	req := httptest.NewRequest(http.MethodOptions, "/generate-blog", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	assert.True(t, originAllowed("https://app.studio.dev", []string{"*.studio.dev"}))
	assert.False(t, originAllowed("https://studio.dev.evil", []string{"*.studio.dev"}))
}

func TestRateLimitOnGenerationRoutes(t *testing.T) {
	wf := stubWorkflows(t)
	wf.Script = runnerFunc[model.ScriptRequest, *model.ScriptState](func(context.Context, model.ScriptRequest) (*model.ScriptState, error) {
		return &model.ScriptState{}, nil
	})
	h := testServer(t, wf, func(c *Config, _ *Deps) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	rec, _ := do(t, h, http.MethodPost, "/generate-youtube-script", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/generate-youtube-script", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "error", body["status"])

	// health checks are not limited
	rec, _ = do(t, h, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	l := NewRateLimiter(1, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, l.allow("b"))
	assert.NotContains(t, l.clients, "a")
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	wf := stubWorkflows(t)
	wf.Script = runnerFunc[model.ScriptRequest, *model.ScriptState](func(context.Context, model.ScriptRequest) (*model.ScriptState, error) {
		return &model.ScriptState{}, nil
	})
	h := testServer(t, wf, func(c *Config, _ *Deps) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	send := func(fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/generate-youtube-script", strings.NewReader(`{}`))
		req.RemoteAddr = "198.51.100.7:4242"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2"))
}

func TestRateLimiterClientIP(t *testing.T) {
	l := NewRateLimiter(1, 1)
	require.NoError(t, l.TrustProxies([]string{"10.0.0.0/8", "192.0.2.1"}))

	tests := []struct {
		name   string
		remote string
		fwd    []string
		want   string
	}{
		{"untrusted peer", "203.0.113.5:1000", []string{"1.2.3.4"}, "203.0.113.5"},
		{"trusted peer without header", "10.1.1.1:1000", nil, "10.1.1.1"},
		{"trusted peer", "10.1.1.1:1000", []string{"1.2.3.4"}, "1.2.3.4"},
		{"spoofed left entry", "192.0.2.1:1000", []string{"6.6.6.6, 1.2.3.4"}, "1.2.3.4"},
		{"proxy chain", "10.1.1.1:1000", []string{"1.2.3.4, 10.2.2.2", "10.3.3.3"}, "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.fwd {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, l.clientIP(req))
		})
	}

	assert.Error(t, l.TrustProxies([]string{"not-an-ip"}))
}

func TestThreadRoutes(t *testing.T) {
	ctx := context.Background()
	threads := repo.NewMemoryThreadRepository(time.Hour, 50)
	require.NoError(t, threads.SaveThread(ctx, &model.ThreadRecord{
		ID:        "t-1",
		Workflow:  graph.WorkflowNews,
		Status:    model.ThreadSucceeded,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, threads.AddMessage(ctx, "t-1", schema.UserMessage("rate cuts")))
	require.NoError(t, threads.AddMessage(ctx, "t-1", schema.AssistantMessage("# Article", nil)))

	h := testServer(t, stubWorkflows(t), func(_ *Config, d *Deps) { d.Threads = threads })

	rec, body := do(t, h, http.MethodGet, "/threads?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["threads"], 1)

	rec, _ = do(t, h, http.MethodGet, "/threads?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/threads/t-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t-1", body["thread"].(map[string]any)["id"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])

	rec, _ = do(t, h, http.MethodDelete, "/threads/t-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body = do(t, h, http.MethodGet, "/threads/t-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "thread not found", body["message"])
}

func TestThreadRoutesWithoutStore(t *testing.T) {
	h := testServer(t, stubWorkflows(t))
	rec, _ := do(t, h, http.MethodGet, "/threads", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type fakeImages struct{ req media.ImageRequest }

func (f *fakeImages) GenerateWith(_ context.Context, req media.ImageRequest) (*media.Image, error) {
	f.req = req
	return &media.Image{FileKey: "k.png", PublicURL: "https://cdn.example/k.png"}, nil
}

type fakeSpeech struct{}

func (fakeSpeech) Speak(context.Context, media.SpeechRequest) (string, error) {
	return "https://cdn.example/a.wav", nil
}

func TestMediaRoutes(t *testing.T) {
	h := testServer(t, stubWorkflows(t))
	rec, body := do(t, h, http.MethodPost, "/generate-image", `{"prompt":"cat"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Image generation is not configured", body["message"])

	images := &fakeImages{}
	h = testServer(t, stubWorkflows(t), func(_ *Config, d *Deps) {
		d.Images = images
		d.Speech = fakeSpeech{}
	})

	rec, body = do(t, h, http.MethodPost, "/generate-image", `{"prompt":"cat","guidance_scale":1.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, media.ImageRequest{Prompt: "cat", GuidanceScale: 1.5, NumSteps: 2}, images.req)
	assert.Equal(t, "https://cdn.example/k.png", body["public_url"])

	rec, body = do(t, h, http.MethodPost, "/text-to-audio", `{"text":"hi","description":"calm","voiceLabel":" Ava "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://cdn.example/a.wav", body["audioUrl"])
	assert.Equal(t, "Ava", body["voiceLabel"])

	rec, body = do(t, h, http.MethodPost, "/text-to-audio", `{"description":"calm"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Text is required", body["message"])
}
