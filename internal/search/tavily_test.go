package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilySearch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a","content":"alpha","score":0.9},
			{"title":"B","url":"https://b","content":"beta","score":0.5},
			{"title":"C","url":"https://c","content":"gamma","score":0.1}
		]}`))
	}))
	defer srv.Close()

	c := NewTavilyClient(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	res, err := c.Search(context.Background(), "go generics", 2)
	require.NoError(t, err)

	assert.Equal(t, "go generics", got["query"])
	assert.Equal(t, "k", got["api_key"])
	assert.Equal(t, "basic", got["search_depth"])
	assert.Equal(t, float64(2), got["max_results"])
	require.Len(t, res, 2)
	assert.Equal(t, "https://a", res[0].URL)
	assert.Equal(t, "beta", res[1].Content)
}

func TestTavilySearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewTavilyClient(Config{APIKey: "k", BaseURL: srv.URL}).Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = NewTavilyClient(Config{BaseURL: srv.URL}).Search(context.Background(), "q", 3)
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}
