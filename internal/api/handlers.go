package api

import (
	"net/http"
	"strconv"
	"strings"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/media"
	"github.com/contentstudio/server/internal/render"
	"github.com/contentstudio/server/internal/workflow/model"
)

const (
	defaultThreadLimit = 20
	maxThreadLimit     = 100

	defaultImageSteps = 2
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Hello from Content Studio"})
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// success builds the common response fields of a workflow run.
func success(stats *model.RunStats) map[string]any {
	return map[string]any{
		"status":         "success",
		"threadId":       stats.ThreadID,
		"trace":          stats.Trace,
		"usage":          stats.Usage,
		"total_cost_usd": stats.TotalCostUSD,
	}
}

// withHTML adds the rendered markdown when the client asks for ?format=html.
func withHTML(r *http.Request, resp map[string]any, md string) map[string]any {
	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		resp["html"] = render.HTML(md)
	}
	return resp
}

func (s *Server) handleBlog(w http.ResponseWriter, r *http.Request) {
	var p blogPayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}
	req := p.blogRequest()

	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.deps.Workflows.Blog.Invoke(ctx, req)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := success(out.Stats())
	resp["generated_blog"] = out.Draft
	resp["summary"] = out.Summary
	resp["social_assets"] = out.SocialAssets
	resp["hero_prompt"] = out.HeroPrompt
	resp["hero_image_url"] = out.HeroImageURL
	resp["revision_count"] = out.RevisionCount
	resp["received_data"] = req
	WriteJSON(w, http.StatusOK, withHTML(r, resp, out.Draft))
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	var p newsPayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.deps.Workflows.News.Invoke(ctx, p.newsRequest())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := success(out.Stats())
	resp["generated_article"] = out.ArticleDraft
	resp["research_notes"] = out.ResearchNotes
	resp["revision_count"] = out.RevisionCount
	WriteJSON(w, http.StatusOK, withHTML(r, resp, out.ArticleDraft))
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	var p scriptPayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.deps.Workflows.Script.Invoke(ctx, p.scriptRequest())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := success(out.Stats())
	resp["generated_script"] = out.ScriptDraft
	resp["revision_count"] = out.RevisionCount
	resp["revision_notes"] = out.RevisionNotes
	resp["duration_minutes"] = out.DurationMinutes
	WriteJSON(w, http.StatusOK, withHTML(r, resp, out.ScriptDraft))
}

func (s *Server) handleVisual(w http.ResponseWriter, r *http.Request) {
	var p visualPayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}
	switch {
	case strings.TrimSpace(p.ImageBase64) == "":
		WriteError(w, r, errx.Validation("image_base64 is required"))
		return
	case strings.TrimSpace(p.Platform) == "":
		WriteError(w, r, errx.Validation("platform is required"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.deps.Workflows.Visual.Invoke(ctx, model.VisualRequest{
		ImageBase64: media.StripDataURL(p.ImageBase64),
		Context:     p.Context,
		Platform:    strings.TrimSpace(p.Platform),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := success(out.Stats())
	resp["generated_post"] = out.FinalPost
	resp["image_caption"] = out.ImageCaption
	resp["platform_trends"] = out.PlatformTrends
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleYouTubeBlog(w http.ResponseWriter, r *http.Request) {
	var p youTubeBlogPayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(p.URL) == "" {
		WriteError(w, r, errx.Validation("youtube_url is required"))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.deps.Workflows.YouTubeBlog.Invoke(ctx, model.YouTubeBlogRequest{
		URL:       strings.TrimSpace(p.URL),
		Prompt:    p.Prompt,
		WordCount: int(p.WordCount),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := success(out.Stats())
	resp["video_id"] = out.VideoID
	resp["video_url"] = out.VideoURL
	resp["metadata"] = out.Metadata
	resp["blog_post"] = out.BlogPost
	resp["summary"] = out.Summary
	resp["word_count"] = out.Request.WordCount
	resp["transcript"] = out.Transcript
	WriteJSON(w, http.StatusOK, withHTML(r, resp, out.BlogPost))
}

func (s *Server) handleRepurpose(w http.ResponseWriter, r *http.Request) {
	var p repurposePayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	out, err := s.deps.Workflows.Repurpose.Invoke(ctx, model.RepurposeRequest{
		ArticleText: p.ArticleText,
		ArticleURL:  strings.TrimSpace(p.ArticleURL),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := success(out.Stats())
	resp["repurposed_content"] = out.Content
	faq := ""
	if out.Content != nil {
		faq = out.Content.FAQSection
	}
	WriteJSON(w, http.StatusOK, withHTML(r, resp, faq))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if s.deps.Images == nil {
		WriteError(w, r, errx.New(nil, http.StatusServiceUnavailable, "Image generation is not configured"))
		return
	}
	var p imagePayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}
	req := media.ImageRequest{Prompt: p.Prompt, NumSteps: defaultImageSteps}
	if p.GuidanceScale != nil {
		req.GuidanceScale = *p.GuidanceScale
	}
	if p.NumSteps != nil && *p.NumSteps > 0 {
		req.NumSteps = *p.NumSteps
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	img, err := s.deps.Images.GenerateWith(ctx, req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"file_key":   img.FileKey,
		"public_url": img.PublicURL,
	})
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if s.deps.Speech == nil {
		WriteError(w, r, errx.New(nil, http.StatusServiceUnavailable, "Text to speech is not configured"))
		return
	}
	var p speechPayload
	if err := decodeJSON(r, &p); err != nil {
		WriteError(w, r, err)
		return
	}
	req := media.SpeechRequest{Text: p.Text, Description: p.Description}
	if err := req.Validate(); err != nil {
		WriteError(w, r, err)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	url, err := s.deps.Speech.Speak(ctx, req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"audioUrl":    url,
		"text":        req.Text,
		"description": req.Description,
		"voiceLabel":  strings.TrimSpace(p.VoiceLabel),
	})
}

func (s *Server) threadStore() error {
	if s.deps.Threads == nil {
		return errx.New(nil, http.StatusServiceUnavailable, "Thread store is not configured")
	}
	return nil
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	if err := s.threadStore(); err != nil {
		WriteError(w, r, err)
		return
	}
	limit := defaultThreadLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, r, errx.New(err, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxThreadLimit)
	}

	recs, err := s.deps.Threads.ListThreads(r.Context(), limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*model.ThreadRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"threads": recs})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	if err := s.threadStore(); err != nil {
		WriteError(w, r, err)
		return
	}
	rec, history, err := s.history.History(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	msgs := make([]message, 0, len(history.Messages))
	for _, m := range history.Messages {
		msgs = append(msgs, message{Role: string(m.Role), Content: m.Content})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"thread": rec, "messages": msgs})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.threadStore(); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.deps.Threads.DeleteThread(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
