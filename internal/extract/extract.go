package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	errx "github.com/contentstudio/server/internal/core/error"
)

const (
	defaultUserAgent = "ContentStudioBot/1.0 (+article repurposer)"
	defaultMaxBytes  = 5 << 20
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// noiseTags never carry article text.
var noiseTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "svg": true,
	"object": true, "embed": true, "form": true, "button": true, "input": true,
}

// chromeTags and chromeClasses are layout around the article; they are only
// removed when no main element is found.
var (
	chromeTags    = map[string]bool{"nav": true, "header": true, "footer": true, "aside": true}
	chromeClasses = map[string]bool{
		"nav": true, "navbar": true, "menu": true, "sidebar": true, "footer": true,
		"header": true, "ad": true, "advertisement": true, "share": true, "social": true,
		"comments": true, "related": true, "breadcrumb": true, "newsletter": true,
	}
)

type Article struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

type Config struct {
	Timeout   time.Duration `envconfig:"EXTRACT_TIMEOUT" default:"20s"`
	UserAgent string        `envconfig:"EXTRACT_USER_AGENT"`
	MaxBytes  int64         `envconfig:"EXTRACT_MAX_BYTES" default:"5242880"`
}

// Extractor downloads a page and converts its main content to Markdown.
type Extractor struct {
	client    *http.Client
	converter *md.Converter
	userAgent string
	maxBytes  int64
}

func New(cfg Config) *Extractor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		converter: converter,
		userAgent: ua,
		maxBytes:  maxBytes,
	}
}

// Extract fetches rawURL and returns its article content.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Article, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errx.Validation("article_url must be an absolute http(s) URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, errx.New(err, http.StatusBadGateway, "Unable to fetch article")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errx.New(fmt.Errorf("HTTP %d", resp.StatusCode), http.StatusBadGateway,
			fmt.Sprintf("Article URL returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, errx.Validation("article_url does not point to an HTML page")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		return nil, errx.New(err, http.StatusBadGateway, "Unable to read article")
	}

	a, err := e.Convert(body)
	if err != nil {
		return nil, err
	}
	a.URL = u.String()
	if a.Markdown == "" {
		return nil, errx.Validation("no readable article text found at article_url")
	}
	return a, nil
}

// Convert turns an HTML document into an Article.
func (e *Extractor) Convert(page []byte) (*Article, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := textOf(first(doc, tagIs("title")))
	prune(doc, func(n *html.Node) bool { return noiseTags[n.Data] })

	content := first(doc, tagIs("main"))
	if content == nil {
		content = first(doc, tagIs("article"))
	}
	if content == nil {
		content = first(doc, attrIs("role", "main"))
	}
	if content == nil {
		prune(doc, isChrome)
		content = first(doc, tagIs("body"))
	}
	if content == nil {
		content = doc
	}

	var sb strings.Builder
	if err := html.Render(&sb, content); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	markdown, err := e.converter.ConvertString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = tidy(markdown)

	if title == "" {
		title = firstHeading(markdown)
	}
	return &Article{Title: title, Markdown: markdown}, nil
}

type matcher func(*html.Node) bool

func tagIs(tag string) matcher {
	return func(n *html.Node) bool { return n.Data == tag }
}

func attrIs(key, val string) matcher {
	return func(n *html.Node) bool {
		for _, a := range n.Attr {
			if a.Key == key && a.Val == val {
				return true
			}
		}
		return false
	}
}

func isChrome(n *html.Node) bool {
	if chromeTags[n.Data] {
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(strings.ToLower(a.Val)) {
			if chromeClasses[c] {
				return true
			}
		}
	}
	return false
}

// first returns the first element in document order that matches.
func first(n *html.Node, match matcher) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, match); found != nil {
			return found
		}
	}
	return nil
}

// prune detaches every element that matches, without descending into it.
func prune(n *html.Node, match matcher) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && match(c) {
			n.RemoveChild(c)
		} else {
			prune(c, match)
		}
		c = next
	}
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func tidy(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if t := strings.TrimSpace(line); strings.HasPrefix(t, "# ") {
			return strings.TrimSpace(t[2:])
		}
	}
	return ""
}
