package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/contentstudio/server/internal/workflow/model"
)

const (
	defaultBlogWords    = 1000
	defaultNewsWords    = 800
	defaultChannelWords = 100
)

// defaultWordCounts applies when a selected channel has no
// "{channel}WordCount" in the payload.
var defaultWordCounts = map[string]int{
	"medium":    600,
	"linkedin":  200,
	"twitter":   100,
	"facebook":  150,
	"threads":   150,
	"instagram": 100,
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts a JSON string or number, e.g. subscriber counts.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

type blogPayload struct {
	BrandVoice    string   `json:"brandVoice"`
	Prompt        string   `json:"prompt"`
	ExistingDraft string   `json:"existingDraft"`
	Tone          string   `json:"tone"`
	Audience      string   `json:"audience"`
	Modalities    []string `json:"modalities"`

	// counts holds every "{channel}WordCount" key of the body.
	counts map[string]flexInt
}

func (p *blogPayload) UnmarshalJSON(b []byte) error {
	type plain blogPayload
	if err := json.Unmarshal(b, (*plain)(p)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.counts = make(map[string]flexInt)
	for k, v := range raw {
		channel, ok := strings.CutSuffix(k, "WordCount")
		if !ok || channel == "" {
			continue
		}
		var n flexInt
		if err := json.Unmarshal(v, &n); err != nil {
			return err
		}
		p.counts[channel] = n
	}
	return nil
}

// blogRequest maps the front-end form to the workflow input. Only selected
// channels are kept; the draft length follows the medium channel.
func (p *blogPayload) blogRequest() model.BlogRequest {
	modalities := make(map[string]int, len(p.Modalities))
	for _, ch := range p.Modalities {
		ch = strings.TrimSpace(ch)
		if ch == "" {
			continue
		}
		n := int(p.counts[ch])
		if n <= 0 {
			n = defaultWordCounts[ch]
		}
		if n <= 0 {
			n = defaultChannelWords
		}
		modalities[ch] = n
	}

	words := defaultBlogWords
	if n, ok := modalities["medium"]; ok {
		words = n
	}

	return model.BlogRequest{
		BrandName:  p.BrandVoice,
		BrandVoice: p.BrandVoice,
		Topic:      p.Prompt,
		Brief:      p.ExistingDraft,
		Tone:       p.Tone,
		Audience:   p.Audience,
		WordCount:  words,
		Modalities: modalities,
	}
}

type newsPayload struct {
	ThreadID         string  `json:"threadId"`
	Prompt           string  `json:"prompt"`
	ExistingDraft    string  `json:"existingDraft"`
	ArticleWordCount flexInt `json:"articleWordCount"`
	Tone             string  `json:"tone"`
	Audience         string  `json:"audience"`
}

func (p *newsPayload) newsRequest() model.NewsRequest {
	words := int(p.ArticleWordCount)
	if words <= 0 {
		words = defaultNewsWords
	}
	return model.NewsRequest{
		ThreadID:          strings.TrimSpace(p.ThreadID),
		Prompt:            p.Prompt,
		Tone:              p.Tone,
		Audience:          p.Audience,
		AdditionalContext: p.ExistingDraft,
		WordCount:         words,
	}
}

type scriptPayload struct {
	ChannelDescription string     `json:"channelDescription"`
	Prompt             string     `json:"prompt"`
	Subscribers        flexString `json:"subscribers"`
	VideoType          string     `json:"videoType"`
	Tone               string     `json:"tone"`
	Audience           string     `json:"audience"`
}

func (p *scriptPayload) scriptRequest() model.ScriptRequest {
	videoType := strings.ToLower(strings.TrimSpace(p.VideoType))
	if videoType == "" {
		videoType = model.VideoShortform
	}
	return model.ScriptRequest{
		ChannelDescription: p.ChannelDescription,
		Prompt:             p.Prompt,
		Subscribers:        string(p.Subscribers),
		VideoType:          videoType,
		Tone:               p.Tone,
		Audience:           p.Audience,
	}
}

type visualPayload struct {
	ImageBase64 string `json:"image_base64"`
	Context     string `json:"context"`
	Platform    string `json:"platform"`
}

type youTubeBlogPayload struct {
	URL       string  `json:"youtube_url"`
	Prompt    string  `json:"prompt"`
	WordCount flexInt `json:"word_count"`
}

type repurposePayload struct {
	ArticleText string `json:"article_text"`
	ArticleURL  string `json:"article_url"`
}

type imagePayload struct {
	Prompt        string   `json:"prompt"`
	GuidanceScale *float64 `json:"guidance_scale"`
	NumSteps      *int     `json:"num_steps"`
}

type speechPayload struct {
	Text        string `json:"text"`
	Description string `json:"description"`
	VoiceLabel  string `json:"voiceLabel"`
}
