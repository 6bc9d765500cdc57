package media

import (
	"context"
	"strings"
	"time"
)

type captionRequest struct {
	ImageBase64 string `json:"image_base64"`
	Prompt      string `json:"prompt"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// CaptionClient calls the image captioning server.
type CaptionClient struct {
	c *client
}

func NewCaptionClient(endpoint string, timeout time.Duration) *CaptionClient {
	return &CaptionClient{c: newClient("caption", endpoint, timeout)}
}

// Caption describes the image. A data URL header ("data:image/png;base64,")
// is stripped before sending.
func (c *CaptionClient) Caption(ctx context.Context, imageBase64, prompt string) (string, error) {
	var out captionResponse
	if err := c.c.postJSON(ctx, captionRequest{ImageBase64: StripDataURL(imageBase64), Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Caption), nil
}

// StripDataURL returns the base64 payload of a data URL, or s unchanged.
func StripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
