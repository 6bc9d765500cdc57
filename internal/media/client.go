package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errx "github.com/contentstudio/server/internal/core/error"
)

const maxErrBody = 4 * 1024

// Config holds the endpoints of the single-purpose model servers. An empty
// endpoint disables the matching client.
type Config struct {
	CaptionEndpoint string        `envconfig:"CAPTION_ENDPOINT"`
	ImageEndpoint   string        `envconfig:"IMAGE_ENDPOINT"`
	TTSEndpoint     string        `envconfig:"TTS_ENDPOINT"`
	Timeout         time.Duration `envconfig:"MEDIA_TIMEOUT" default:"120s"`
}

// client posts JSON to one model server endpoint.
type client struct {
	service  string
	endpoint string
	http     *http.Client
}

func newClient(service, endpoint string, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &client{service: service, endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

func (c *client) configured() error {
	if c.endpoint == "" {
		return errx.New(nil, http.StatusInternalServerError, c.service+" endpoint not configured")
	}
	return nil
}

// postJSON sends in and decodes the 2xx response into out. Transport
// failures become 502; non-2xx replies keep the remote status and message.
func (c *client) postJSON(ctx context.Context, in, out any) error {
	if err := c.configured(); err != nil {
		return err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", c.service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", c.service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errx.New(err, http.StatusBadGateway, "Unable to reach "+c.service+" service")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		msg := RemoteMessage(raw)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if msg == "" {
			msg = c.service + " service failed"
		}
		return errx.New(fmt.Errorf("%s status %d", c.service, resp.StatusCode), resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errx.New(err, http.StatusBadGateway, "Invalid response from "+c.service+" service")
	}
	return nil
}

// RemoteMessage extracts the error text a model server returned. It reads
// "error", a string "detail", or a list of "detail" items (strings or
// {"msg": ...}) joined with "; ", and falls back to the raw body.
func RemoteMessage(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	var parsed struct {
		Error  any `json:"error"`
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return text
	}
	if s, ok := parsed.Error.(string); ok && s != "" {
		return s
	}
	switch d := parsed.Detail.(type) {
	case string:
		if d != "" {
			return d
		}
	case []any:
		var msgs []string
		for _, item := range d {
			switch v := item.(type) {
			case string:
				msgs = append(msgs, v)
			case map[string]any:
				if m, ok := v["msg"].(string); ok {
					msgs = append(msgs, m)
				}
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return text
}
