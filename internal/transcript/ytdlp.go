package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/contentstudio/server/internal/workflow/model"
)

// CommandRunner runs an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return stdout.Bytes(), nil
}

type captionTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// videoInfo is the subset of `yt-dlp -J` output that is used.
type videoInfo struct {
	Title             string                    `json:"title"`
	Duration          float64                   `json:"duration"`
	Description       string                    `json:"description"`
	Uploader          string                    `json:"uploader"`
	Channel           string                    `json:"channel"`
	Subtitles         map[string][]captionTrack `json:"subtitles"`
	AutomaticCaptions map[string][]captionTrack `json:"automatic_captions"`
}

func (i *videoInfo) metadata() model.VideoMetadata {
	channel := i.Uploader
	if channel == "" {
		channel = i.Channel
	}
	return model.VideoMetadata{
		Title:       i.Title,
		Duration:    i.Duration,
		Description: i.Description,
		Channel:     channel,
	}
}

func (s *Service) videoInfo(ctx context.Context, videoID string) (*videoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.runner.Run(ctx, s.ytdlp, "-J", "--skip-download", "--no-warnings", WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	var info videoInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	return &info, nil
}

// captionsFromInfo downloads the best caption track listed by yt-dlp.
func (s *Service) captionsFromInfo(ctx context.Context, info *videoInfo) ([]Segment, error) {
	track := selectTrack(info.Subtitles)
	if track == nil {
		track = selectTrack(info.AutomaticCaptions)
	}
	if track == nil {
		return nil, &Error{Reason: "No captions found via yt-dlp fallback."}
	}

	body, err := s.get(ctx, track.URL)
	if err != nil {
		return nil, &Error{Reason: "Unable to download caption file", Err: err}
	}
	segs := ParseVTT(string(body))
	if len(segs) == 0 {
		return nil, &Error{Reason: "Unable to parse captions returned by yt-dlp."}
	}
	return segs, nil
}

// selectTrack picks a preferred language first and then any language; within
// a language a VTT track wins over other formats.
func selectTrack(captions map[string][]captionTrack) *captionTrack {
	if len(captions) == 0 {
		return nil
	}
	for _, lang := range preferredLangs {
		if t := bestFormat(captions[lang]); t != nil {
			return t
		}
	}
	// map order is random; keep the choice stable
	var langs []string
	for lang := range captions {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if t := bestFormat(captions[lang]); t != nil {
			return t
		}
	}
	return nil
}

func bestFormat(tracks []captionTrack) *captionTrack {
	var first *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if t.URL == "" {
			continue
		}
		if t.Ext == "vtt" {
			return t
		}
		if first == nil {
			first = t
		}
	}
	return first
}
