// Package search implements the web search collaborators used by the research pipeline.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config selects and tunes a search provider.
type Config struct {
	Provider   string // tavily or duckduckgo
	APIKey     string
	Depth      string // tavily search_depth, basic or advanced
	MaxResults int
	Timeout    time.Duration
	// RatePerSecond paces outbound queries; zero disables pacing.
	RatePerSecond float64
	Endpoint      string // overrides the provider URL, used by tests
}

// New returns the configured provider.
func New(cfg Config) (pipeline.Searcher, error) {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}
	limiter := newLimiter(cfg.RatePerSecond)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "tavily":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("tavily: api key is required")
		}
		return NewTavily(cfg.APIKey, cfg.Depth, cfg.MaxResults, cfg.Endpoint, client, limiter), nil
	case "duckduckgo", "ddg":
		return NewDuckDuckGo(cfg.MaxResults, cfg.Endpoint, client, limiter), nil
	default:
		return nil, errors.Errorf("unknown search provider %q", cfg.Provider)
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// statusError classifies a non-200 response: throttling, timeouts and server errors are
// worth retrying, everything else is not.
func statusError(provider string, code int) error {
	err := fmt.Errorf("http %d", code)
	if code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500 {
		return pipeline.Transient(provider, err)
	}
	return pipeline.Permanent(provider, err)
}

// transportError classifies a failed round trip. A done context is never retried.
func transportError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return pipeline.Permanent(provider, ctx.Err())
	}
	return pipeline.Transient(provider, err)
}
