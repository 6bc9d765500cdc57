package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/contentstudio/server/internal/workflow/model"
)

const maxCaptionBytes = 8 << 20

// timedText asks the YouTube timedtext endpoint for a VTT track in each
// preferred language. An empty body means no track for that language. When
// none exists, the first listed track is requested translated to English.
func (s *Service) timedText(ctx context.Context, videoID string) ([]Segment, error) {
	var lastErr error
	for _, lang := range preferredLangs {
		q := url.Values{"v": {videoID}, "lang": {lang}, "fmt": {"vtt"}}
		body, err := s.get(ctx, s.timedTextURL+"?"+q.Encode())
		if err != nil {
			lastErr = err
			continue
		}
		if segs := ParseVTT(string(body)); len(segs) > 0 {
			return segs, nil
		}
	}

	tracks, err := s.timedTextTracks(ctx, videoID)
	if err != nil {
		lastErr = err
	}
	for _, tr := range tracks {
		q := url.Values{"v": {videoID}, "lang": {tr.Lang}, "tlang": {translateTo}, "fmt": {"vtt"}}
		if tr.Name != "" {
			q.Set("name", tr.Name)
		}
		if tr.Kind != "" {
			q.Set("kind", tr.Kind)
		}
		body, err := s.get(ctx, s.timedTextURL+"?"+q.Encode())
		if err != nil {
			lastErr = err
			continue
		}
		if segs := ParseVTT(string(body)); len(segs) > 0 {
			return segs, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no timedtext track for %s", videoID)
}

const translateTo = "en"

type trackList struct {
	Tracks []timedTextTrack `xml:"track"`
}

type timedTextTrack struct {
	Lang string `xml:"lang_code,attr"`
	Name string `xml:"name,attr"`
	Kind string `xml:"kind,attr"`
}

// timedTextTracks lists the caption tracks of a video. An empty body is an
// empty list.
func (s *Service) timedTextTracks(ctx context.Context, videoID string) ([]timedTextTrack, error) {
	q := url.Values{"v": {videoID}, "type": {"list"}}
	body, err := s.get(ctx, s.timedTextURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode track list: %w", err)
	}
	out := list.Tracks[:0]
	for _, tr := range list.Tracks {
		if tr.Lang != "" {
			out = append(out, tr)
		}
	}
	return out, nil
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

func (s *Service) oembed(ctx context.Context, videoID string) (model.VideoMetadata, error) {
	q := url.Values{"url": {WatchURL(videoID)}, "format": {"json"}}
	body, err := s.get(ctx, s.oembedURL+"?"+q.Encode())
	if err != nil {
		return model.VideoMetadata{}, err
	}
	var out oembedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return model.VideoMetadata{}, fmt.Errorf("decode oembed: %w", err)
	}
	return model.VideoMetadata{Title: out.Title, Channel: out.AuthorName}, nil
}

func (s *Service) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
}
