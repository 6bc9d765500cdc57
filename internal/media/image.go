package media

import (
	"context"
	"net/http"
	"strings"
	"time"

	errx "github.com/contentstudio/server/internal/core/error"
)

type ImageRequest struct {
	Prompt        string  `json:"prompt"`
	GuidanceScale float64 `json:"guidance_scale"`
	NumSteps      int     `json:"num_steps"`
}

type Image struct {
	FileKey   string `json:"file_key"`
	PublicURL string `json:"public_url"`
}

// ImageClient calls the text-to-image server.
type ImageClient struct {
	c *client
}

func NewImageClient(endpoint string, timeout time.Duration) *ImageClient {
	return &ImageClient{c: newClient("image", endpoint, timeout)}
}

// Generate renders prompt with the server defaults (guidance 0, 2 steps).
func (c *ImageClient) Generate(ctx context.Context, prompt string) (*Image, error) {
	return c.GenerateWith(ctx, ImageRequest{Prompt: prompt, NumSteps: 2})
}

func (c *ImageClient) GenerateWith(ctx context.Context, req ImageRequest) (*Image, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return nil, errx.New(nil, http.StatusBadRequest, "Prompt is required")
	}
	if req.NumSteps <= 0 {
		req.NumSteps = 2
	}
	var out Image
	if err := c.c.postJSON(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.PublicURL == "" {
		return nil, errx.New(nil, http.StatusBadGateway, "image service did not return a public URL")
	}
	return &out, nil
}
