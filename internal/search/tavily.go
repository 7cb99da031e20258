package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey     string
	depth      string
	maxResults int
	endpoint   string
	client     *http.Client
	limiter    *rate.Limiter
}

func NewTavily(apiKey, depth string, maxResults int, endpoint string, client *http.Client, limiter *rate.Limiter) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	if endpoint == "" {
		endpoint = tavilyEndpoint
	}
	return &Tavily{
		apiKey:     apiKey,
		depth:      depth,
		maxResults: maxResults,
		endpoint:   endpoint,
		client:     client,
		limiter:    limiter,
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string) ([]pipeline.SearchResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, pipeline.Permanent("tavily", err)
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: t.depth,
		MaxResults:  t.maxResults,
	})
	if err != nil {
		return nil, pipeline.Permanent("tavily", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pipeline.Permanent("tavily", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, "tavily", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("tavily", resp.StatusCode)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pipeline.Transient("tavily", errors.Wrap(err, "decode response"))
	}
	results := make([]pipeline.SearchResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, pipeline.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= t.maxResults {
			break
		}
	}
	return results, nil
}
