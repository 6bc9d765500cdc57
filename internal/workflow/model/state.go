package model

// Verdict is the reviewer decision extracted from a compliance report.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRevise   Verdict = "revise"
	// VerdictUnknown means the report carried no recognizable decision.
	VerdictUnknown Verdict = "unknown"
)

func (v Verdict) NeedsRevision() bool { return v == VerdictRevise }

// Request is implemented by every workflow input.
type Request interface {
	Thread() string
}

// Threaded is a Request that can be re-issued under a new thread id.
type Threaded[R any] interface {
	Request
	WithThreadID(id string) R
}

// ================ Blog ================

type BlogRequest struct {
	ThreadID   string         `json:"thread_id"`
	BrandName  string         `json:"brand_name"`
	BrandVoice string         `json:"brand_voice"`
	Topic      string         `json:"topic"`
	Brief      string         `json:"brief"`
	Tone       string         `json:"tone"`
	Audience   string         `json:"audience"`
	WordCount  int            `json:"word_count"`
	Modalities map[string]int `json:"modalities,omitempty"`
}

func (r BlogRequest) Thread() string { return r.ThreadID }

func (r BlogRequest) WithThreadID(id string) BlogRequest {
	r.ThreadID = id
	return r
}

type BlogState struct {
	RunStats
	Request          BlogRequest `json:"request"`
	Plan             string      `json:"plan"`
	ResearchNotes    string      `json:"research_notes"`
	Draft            string      `json:"draft"`
	ComplianceReport string      `json:"compliance_report"`
	Verdict          Verdict     `json:"verdict"`
	FlaggedSections  []string    `json:"flagged_sections,omitempty"`
	RevisionNotes    string      `json:"revision_notes,omitempty"`
	RevisionCount    int         `json:"revision_count"`
	SocialAssets     string      `json:"social_assets"`
	HeroPrompt       string      `json:"hero_prompt"`
	HeroImageURL     string      `json:"hero_image_url,omitempty"`
	Summary          string      `json:"summary"`
}

func (s *BlogState) Snapshot() *BlogState {
	c := *s
	c.RunStats = s.RunStats.Clone()
	c.FlaggedSections = append([]string(nil), s.FlaggedSections...)
	return &c
}

// ================ News ================

type NewsRequest struct {
	ThreadID          string `json:"thread_id"`
	Prompt            string `json:"prompt"`
	Tone              string `json:"tone"`
	Audience          string `json:"audience"`
	AdditionalContext string `json:"additional_context"`
	WordCount         int    `json:"word_count"`
}

func (r NewsRequest) Thread() string { return r.ThreadID }

func (r NewsRequest) WithThreadID(id string) NewsRequest {
	r.ThreadID = id
	return r
}

type NewsState struct {
	RunStats
	Request          NewsRequest `json:"request"`
	ResearchNotes    string      `json:"research_notes"`
	ArticleDraft     string      `json:"article_draft"`
	ComplianceReport string      `json:"compliance_report"`
	Verdict          Verdict     `json:"verdict"`
	RevisionCount    int         `json:"revision_count"`
	FinalResponse    string      `json:"final_response"`
}

func (s *NewsState) Snapshot() *NewsState {
	c := *s
	c.RunStats = s.RunStats.Clone()
	return &c
}

// ================ YouTube script ================

const (
	VideoShortform = "shortform"
	VideoLongform  = "longform"
)

type ScriptRequest struct {
	ThreadID           string `json:"thread_id"`
	ChannelDescription string `json:"channel_description"`
	Prompt             string `json:"prompt"`
	Subscribers        string `json:"subscribers"`
	VideoType          string `json:"video_type"`
	Tone               string `json:"tone"`
	Audience           string `json:"audience"`
}

func (r ScriptRequest) Thread() string { return r.ThreadID }

func (r ScriptRequest) WithThreadID(id string) ScriptRequest {
	r.ThreadID = id
	return r
}

type ScriptState struct {
	RunStats
	Request          ScriptRequest `json:"request"`
	DurationMinutes  int           `json:"duration_minutes"`
	ResearchNotes    string        `json:"research_notes"`
	ScriptDraft      string        `json:"script_draft"`
	ComplianceReport string        `json:"compliance_report"`
	Verdict          Verdict       `json:"verdict"`
	RevisionNotes    string        `json:"revision_notes"`
	RevisionCount    int           `json:"revision_count"`
	Response         string        `json:"response"`
}

func (s *ScriptState) Snapshot() *ScriptState {
	c := *s
	c.RunStats = s.RunStats.Clone()
	return &c
}

// ================ Visual post ================

type VisualRequest struct {
	ThreadID    string `json:"thread_id"`
	ImageBase64 string `json:"-"`
	Context     string `json:"context"`
	Platform    string `json:"platform"`
}

func (r VisualRequest) Thread() string { return r.ThreadID }

func (r VisualRequest) WithThreadID(id string) VisualRequest {
	r.ThreadID = id
	return r
}

type VisualState struct {
	RunStats
	Request        VisualRequest `json:"request"`
	ImageCaption   string        `json:"image_caption"`
	PlatformTrends string        `json:"platform_trends"`
	FinalPost      string        `json:"final_post"`
}

func (s *VisualState) Snapshot() *VisualState {
	c := *s
	c.RunStats = s.RunStats.Clone()
	return &c
}

// ================ YouTube blog ================

type YouTubeBlogRequest struct {
	ThreadID  string `json:"thread_id"`
	URL       string `json:"youtube_url"`
	Prompt    string `json:"prompt"`
	WordCount int    `json:"word_count"`
}

func (r YouTubeBlogRequest) Thread() string { return r.ThreadID }

func (r YouTubeBlogRequest) WithThreadID(id string) YouTubeBlogRequest {
	r.ThreadID = id
	return r
}

type VideoMetadata struct {
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
	Channel     string  `json:"channel"`
}

// YouTubeBlogInput is the request after the transcript has been fetched.
type YouTubeBlogInput struct {
	Request    YouTubeBlogRequest `json:"request"`
	VideoID    string             `json:"video_id"`
	Metadata   VideoMetadata      `json:"metadata"`
	Transcript string             `json:"-"`
}

func (in YouTubeBlogInput) Thread() string { return in.Request.ThreadID }

func (in YouTubeBlogInput) WithThreadID(id string) YouTubeBlogInput {
	in.Request.ThreadID = id
	return in
}

type YouTubeBlogState struct {
	RunStats
	Request    YouTubeBlogRequest `json:"request"`
	VideoID    string             `json:"video_id"`
	VideoURL   string             `json:"video_url"`
	Metadata   VideoMetadata      `json:"metadata"`
	Transcript string             `json:"-"`
	BlogPost   string             `json:"blog_post"`
	Summary    string             `json:"summary"`
}

func (s *YouTubeBlogState) Snapshot() *YouTubeBlogState {
	c := *s
	c.RunStats = s.RunStats.Clone()
	return &c
}

// ================ Repurposer ================

type RepurposeRequest struct {
	ThreadID    string `json:"thread_id"`
	ArticleText string `json:"-"`
	ArticleURL  string `json:"article_url,omitempty"`
}

func (r RepurposeRequest) Thread() string { return r.ThreadID }

func (r RepurposeRequest) WithThreadID(id string) RepurposeRequest {
	r.ThreadID = id
	return r
}

type SocialPosts struct {
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	Instagram string `json:"instagram"`
}

type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Topics        []string `json:"topics"`
}

type RepurposedContent struct {
	Summary     string      `json:"summary"`
	SocialPosts SocialPosts `json:"social_posts"`
	FAQSection  string      `json:"faq_section"`
	Entities    Entities    `json:"entities"`
}

type RepurposeState struct {
	RunStats
	Request RepurposeRequest   `json:"request"`
	Article string             `json:"-"`
	Content *RepurposedContent `json:"repurposed_content"`
}

func (s *RepurposeState) Snapshot() *RepurposeState {
	c := *s
	c.RunStats = s.RunStats.Clone()
	return &c
}
