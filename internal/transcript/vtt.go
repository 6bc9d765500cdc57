package transcript

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// ParseVTT reads WebVTT cue blocks into segments. Header, numeric cue ids
// and NOTE/STYLE blocks are skipped; inline tags are removed.
func ParseVTT(vtt string) []Segment {
	var (
		segments   []Segment
		buffer     []string
		start, end float64
		skipBlock  bool
		validCue   bool
	)

	flush := func() {
		if validCue && len(buffer) > 0 {
			text := strings.TrimSpace(strings.Join(buffer, " "))
			if text != "" {
				segments = append(segments, Segment{Text: text, Start: start, Duration: max(0, end-start)})
			}
		}
		buffer = buffer[:0]
	}

	lines := strings.Split(strings.ReplaceAll(vtt, "\r\n", "\n"), "\n")
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			skipBlock, validCue = false, false
			continue
		}
		if skipBlock {
			continue
		}
		if !validCue && len(buffer) == 0 && (strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "REGION")) {
			skipBlock = true
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") || isDigits(line) {
			continue
		}
		if strings.Contains(line, "-->") {
			flush()
			validCue = false
			parts := strings.SplitN(line, "-->", 2)
			endField := strings.Fields(parts[1])
			if len(endField) == 0 {
				continue
			}
			s, err1 := parseTimestamp(parts[0])
			e, err2 := parseTimestamp(endField[0])
			if err1 != nil || err2 != nil {
				continue
			}
			start, end, validCue = s, e, true
			continue
		}
		text := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(line, "")))
		if text != "" {
			buffer = append(buffer, text)
		}
	}
	flush()
	return segments
}

// parseTimestamp accepts HH:MM:SS.mmm and MM:SS.mmm.
func parseTimestamp(ts string) (float64, error) {
	ts = strings.ReplaceAll(strings.TrimSpace(ts), ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}
	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid hours in %q", ts)
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", ts)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", ts)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
