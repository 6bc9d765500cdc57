package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/contentstudio/server/internal/core/error"
)

func jsonServer(t *testing.T, status int, body string, capture *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCaptionStripsDataURL(t *testing.T) {
	var got map[string]any
	srv := jsonServer(t, http.StatusOK, `{"caption":" a dog on a beach "}`, &got)

	caption, err := NewCaptionClient(srv.URL, time.Second).Caption(context.Background(), "data:image/png;base64,QUJD", "describe")
	require.NoError(t, err)
	assert.Equal(t, "a dog on a beach", caption)
	assert.Equal(t, "QUJD", got["image_base64"])
	assert.Equal(t, "describe", got["prompt"])
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURL("QUJD"))
	assert.Equal(t, "QUJD", StripDataURL(" data:image/jpeg;base64,QUJD"))
}

func TestImageGenerate(t *testing.T) {
	var got map[string]any
	srv := jsonServer(t, http.StatusOK, `{"file_key":"k.png","public_url":"https://cdn/k.png"}`, &got)

	img, err := NewImageClient(srv.URL, time.Second).Generate(context.Background(), "a lighthouse")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/k.png", img.PublicURL)
	assert.Equal(t, float64(2), got["num_steps"])
	assert.Equal(t, float64(0), got["guidance_scale"])

	_, err = NewImageClient(srv.URL, time.Second).Generate(context.Background(), "  ")
	assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
}

func TestSpeakValidation(t *testing.T) {
	c := NewTTSClient("http://unused", time.Second)
	tests := []struct {
		req  SpeechRequest
		want string
	}{
		{SpeechRequest{Text: " ", Description: "calm"}, "Text is required"},
		{SpeechRequest{Text: strings.Repeat("a", 401), Description: "calm"}, "Text must be 400 characters or less"},
		{SpeechRequest{Text: "hi"}, "Voice description is required"},
	}
	for _, tt := range tests {
		_, err := c.Speak(context.Background(), tt.req)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, errx.StatusOf(err))
		assert.Equal(t, tt.want, err.Error())
	}
}

func TestSpeak(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"audioUrl":"https://cdn/a.wav"}`, nil)
	url, err := NewTTSClient(srv.URL, time.Second).Speak(context.Background(), SpeechRequest{Text: "hello", Description: "warm"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.wav", url)

	srv = jsonServer(t, http.StatusOK, `{}`, nil)
	_, err = NewTTSClient(srv.URL, time.Second).Speak(context.Background(), SpeechRequest{Text: "hello", Description: "warm"})
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestSpeakRemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusInternalServerError, `{"error":"GPU busy"}`, "GPU busy"},
		{"detail string", http.StatusBadRequest, `{"detail":"bad voice"}`, "bad voice"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"text too long"},{"msg":"missing field"}]}`, "text too long; missing field"},
		{"plain text", http.StatusServiceUnavailable, `down for maintenance`, "down for maintenance"},
		{"empty body", http.StatusServiceUnavailable, ``, "Service Unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body, nil)
			_, err := NewTTSClient(srv.URL, time.Second).Speak(context.Background(), SpeechRequest{Text: "hello", Description: "warm"})
			require.Error(t, err)
			assert.Equal(t, tt.status, errx.StatusOf(err))

			var appErr *errx.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.want, appErr.Message)
		})
	}
}

func TestUnreachableAndUnconfigured(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewTTSClient(url, time.Second).Speak(context.Background(), SpeechRequest{Text: "hi", Description: "warm"})
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))

	_, err = NewCaptionClient("", time.Second).Caption(context.Background(), "QUJD", "")
	assert.Equal(t, http.StatusInternalServerError, errx.StatusOf(err))
	assert.Contains(t, err.Error(), "caption endpoint not configured")
}
