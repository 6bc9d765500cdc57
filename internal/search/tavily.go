package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.tavily.com"
	maxErrSnippet  = 200
)

// ErrNoAPIKey is returned by Search when TAVILY_API_KEY is not set.
var ErrNoAPIKey = errors.New("TAVILY_API_KEY not set")

type Config struct {
	APIKey  string        `envconfig:"TAVILY_API_KEY"`
	BaseURL string        `envconfig:"TAVILY_BASE_URL" default:"https://api.tavily.com"`
	Depth   string        `envconfig:"TAVILY_SEARCH_DEPTH" default:"basic"`
	Timeout time.Duration `envconfig:"TAVILY_TIMEOUT" default:"20s"`
}

type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type response struct {
	Results []Result `json:"results"`
}

// TavilyClient calls the Tavily search REST API.
type TavilyClient struct {
	apiKey  string
	baseURL string
	depth   string
	http    *http.Client
}

func NewTavilyClient(cfg Config) *TavilyClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	depth := cfg.Depth
	if depth == "" {
		depth = "basic"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &TavilyClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		depth:   depth,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	reqBody := map[string]any{
		"query":        query,
		"api_key":      c.apiKey,
		"search_depth": c.depth,
		"max_results":  maxResults,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrSnippet))
		return nil, fmt.Errorf("tavily api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}
	if len(result.Results) > maxResults {
		result.Results = result.Results[:maxResults]
	}
	return result.Results, nil
}
