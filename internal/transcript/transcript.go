package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

var (
	ErrInvalidURL = errors.New("invalid YouTube URL")

	videoIDRe = regexp.MustCompile(`(?:v=|youtu\.be/)([\w-]{11})`)

	// preferredLangs are tried first by every caption source.
	preferredLangs = []string{"en", "en-US", "en-GB"}
)

// Error is returned when no transcript (or metadata) can be produced.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Video is everything the YouTube blog workflow needs about one video.
type Video struct {
	ID       string
	URL      string
	Metadata model.VideoMetadata
	Segments []Segment
	Source   string
}

type Config struct {
	YTDLPPath string        `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	Timeout   time.Duration `envconfig:"TRANSCRIPT_TIMEOUT" default:"60s"`
}

// Service resolves metadata and captions through the YouTube timedtext
// endpoint, yt-dlp and oEmbed.
type Service struct {
	http         *http.Client
	runner       CommandRunner
	ytdlp        string
	timeout      time.Duration
	timedTextURL string
	oembedURL    string
}

type Option func(*Service)

// WithRunner replaces the process runner used for yt-dlp.
func WithRunner(r CommandRunner) Option {
	return func(s *Service) { s.runner = r }
}

// WithHTTPClient replaces the client used for caption and oEmbed downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.http = c }
}

// WithEndpoints overrides the timedtext and oEmbed base URLs.
func WithEndpoints(timedText, oembed string) Option {
	return func(s *Service) {
		s.timedTextURL = timedText
		s.oembedURL = oembed
	}
}

func NewService(cfg Config, opts ...Option) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	path := cfg.YTDLPPath
	if path == "" {
		path = "yt-dlp"
	}
	s := &Service{
		http:         &http.Client{Timeout: 10 * time.Second},
		runner:       ExecRunner{},
		ytdlp:        path,
		timeout:      timeout,
		timedTextURL: "https://www.youtube.com/api/timedtext",
		oembedURL:    "https://www.youtube.com/oembed",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractVideoID returns the 11-character id of a watch or youtu.be URL.
func ExtractVideoID(youtubeURL string) (string, error) {
	m := videoIDRe.FindStringSubmatch(youtubeURL)
	if m == nil {
		return "", ErrInvalidURL
	}
	return m[1], nil
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// Fetch loads metadata and a transcript for the video. Sources are tried in
// order: timedtext, then the captions listed by yt-dlp (manual subtitles
// before automatic captions).
func (s *Service) Fetch(ctx context.Context, videoID string) (*Video, error) {
	v := &Video{ID: videoID, URL: WatchURL(videoID)}

	info, infoErr := s.videoInfo(ctx, videoID)
	if infoErr != nil {
		logx.Warn().Err(infoErr).Str("video_id", videoID).Msg("yt-dlp metadata failed - trying oEmbed")
		meta, err := s.oembed(ctx, videoID)
		if err != nil {
			return nil, &Error{Reason: "Unable to fetch video metadata", Err: errors.Join(infoErr, err)}
		}
		v.Metadata = meta
	} else {
		v.Metadata = info.metadata()
	}

	segs, err := s.timedText(ctx, videoID)
	if err == nil && len(segs) > 0 {
		v.Segments, v.Source = segs, "timedtext"
		return v, nil
	}
	logx.Debug().Err(err).Str("video_id", videoID).Msg("timedtext transcript unavailable - falling back to yt-dlp captions")

	if info == nil {
		return nil, &Error{Reason: "No transcript available for this video.", Err: infoErr}
	}
	segs, err = s.captionsFromInfo(ctx, info)
	if err != nil {
		return nil, err
	}
	v.Segments, v.Source = segs, "yt-dlp"
	return v, nil
}

// ToText joins segment texts with spaces and caps the result at maxChars
// runes, appending "..." when cut. maxChars <= 0 disables the cap.
func ToText(segments []Segment, maxChars int) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	combined := strings.TrimSpace(strings.Join(parts, " "))
	if maxChars > 0 && utf8.RuneCountInString(combined) > maxChars {
		return string([]rune(combined)[:maxChars]) + "..."
	}
	return combined
}
