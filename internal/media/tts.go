package media

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	errx "github.com/contentstudio/server/internal/core/error"
)

// MaxSpeechChars is the longest text the TTS server accepts.
const MaxSpeechChars = 400

type SpeechRequest struct {
	Text        string `json:"text"`
	Description string `json:"description"`
}

type ttsResponse struct {
	AudioURL      string `json:"audio_url"`
	AudioURLCamel string `json:"audioUrl"`
}

// TTSClient calls the text-to-speech server.
type TTSClient struct {
	c *client
}

func NewTTSClient(endpoint string, timeout time.Duration) *TTSClient {
	return &TTSClient{c: newClient("TTS", endpoint, timeout)}
}

// Validate trims the request and checks the server limits.
func (r *SpeechRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	r.Description = strings.TrimSpace(r.Description)
	switch {
	case r.Text == "":
		return errx.New(nil, http.StatusBadRequest, "Text is required")
	case utf8.RuneCountInString(r.Text) > MaxSpeechChars:
		return errx.New(nil, http.StatusBadRequest, "Text must be 400 characters or less")
	case r.Description == "":
		return errx.New(nil, http.StatusBadRequest, "Voice description is required")
	}
	return nil
}

// Speak returns the URL of the synthesized audio.
func (c *TTSClient) Speak(ctx context.Context, req SpeechRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	var out ttsResponse
	if err := c.c.postJSON(ctx, req, &out); err != nil {
		return "", err
	}
	url := out.AudioURL
	if url == "" {
		url = out.AudioURLCamel
	}
	if url == "" {
		return "", errx.New(nil, http.StatusBadGateway, "TTS service did not return an audio URL")
	}
	return url, nil
}
