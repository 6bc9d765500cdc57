package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/contentstudio/server/internal/workflow/model"
)

const (
	// DefaultHeroPrompt is used when the strategist reply has no hero line.
	DefaultHeroPrompt = "A futuristic workspace with holographic meeting displays."

	longformMinutes = 15
)

var (
	heroRe    = regexp.MustCompile(`(?im)^[\s\d.*#>-]*hero(?:\s+image)?\s+prompt[*\s]*:[*\s]*(.+)$`)
	secondsRe = regexp.MustCompile(`(?i)(\d+)\s*(?:seconds|second|sec)\b`)
	minutesRe = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes|minute|min)\b`)
)

// ParseHeroPrompt returns the text after the "HERO PROMPT:" line, or
// DefaultHeroPrompt.
func ParseHeroPrompt(text string) string {
	m := heroRe.FindStringSubmatch(text)
	if m == nil {
		return DefaultHeroPrompt
	}
	p := strings.Trim(strings.TrimSpace(m[1]), `*"'`)
	if p == "" {
		return DefaultHeroPrompt
	}
	return p
}

// ParseRepurpose decodes the JSON object of the repurposer reply.
func ParseRepurpose(text string) (*model.RepurposedContent, error) {
	raw := ExtractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("repurpose reply has no JSON object")
	}
	var out model.RepurposedContent
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("repurpose reply: %w", err)
	}
	if out.Summary == "" && out.SocialPosts == (model.SocialPosts{}) && out.FAQSection == "" {
		return nil, fmt.Errorf("repurpose reply is empty")
	}
	if out.Entities.People == nil {
		out.Entities.People = []string{}
	}
	if out.Entities.Organizations == nil {
		out.Entities.Organizations = []string{}
	}
	if out.Entities.Topics == nil {
		out.Entities.Topics = []string{}
	}
	return &out, nil
}

// VideoDuration returns the target script length in minutes.
func VideoDuration(videoType, prompt string) int {
	if strings.EqualFold(strings.TrimSpace(videoType), model.VideoLongform) {
		return longformMinutes
	}
	if m := secondsRe.FindStringSubmatch(prompt); m != nil {
		n, _ := strconv.Atoi(m[1])
		return max(1, n/60)
	}
	if m := minutesRe.FindStringSubmatch(prompt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}
