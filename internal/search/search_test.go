package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Aryanchhabra/DeepResearchAI/internal/search"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavily_Search(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"One","url":"https://one.example","content":"first"},
			{"title":"No URL","url":"","content":"skipped"},
			{"title":"Two","url":"https://two.example","content":"second"},
			{"title":"Three","url":"https://three.example","content":"third"}
		]}`))
	}))
	defer srv.Close()

	s, err := search.New(search.Config{Provider: "tavily", APIKey: "tvly-key", Depth: "advanced", MaxResults: 2, Endpoint: srv.URL})
	require.NoError(t, err)
	results, err := s.Search(context.Background(), "quantum entanglement")
	require.NoError(t, err)
	assert.Equal(t, []pipeline.SearchResult{
		{Title: "One", URL: "https://one.example", Snippet: "first"},
		{Title: "Two", URL: "https://two.example", Snippet: "second"},
	}, results)
	assert.Equal(t, "quantum entanglement", got["query"])
	assert.Equal(t, "advanced", got["search_depth"])
	assert.Equal(t, "tvly-key", got["api_key"])
}

func TestTavily_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()
			s, err := search.New(search.Config{APIKey: "k", Endpoint: srv.URL})
			require.NoError(t, err)
			_, err = s.Search(context.Background(), "q")
			require.Error(t, err)
			assert.Equal(t, tt.transient, pipeline.IsTransient(err))
			assert.Contains(t, err.Error(), "tavily: http")
		})
	}
}

func TestTavily_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()
	s, err := search.New(search.Config{APIKey: "k", Endpoint: endpoint})
	require.NoError(t, err)
	_, err = s.Search(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, pipeline.IsTransient(err))
}

const ddgPage = `<html><body>
<div class="result results_links web-result">
  <div class="result__body">
    <h2 class="result__title"><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fen.wikipedia.org%2Fwiki%2FQuantum_entanglement&amp;rut=abc">Quantum <b>entanglement</b> - Wikipedia</a></h2>
    <a class="result__snippet" href="#">Quantum entanglement is the phenomenon...</a>
  </div>
</div>
<div class="result">
  <div class="result__body">
    <h2 class="result__title"><a class="result__a" href="https://example.org/physics">Physics explained</a></h2>
    <div class="result__snippet">Entangled   particles.</div>
  </div>
</div>
<div class="result"><a class="result__a" href="https://duckduckgo.com/about">internal</a></div>
</body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "quantum entanglement", r.PostForm.Get("q"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(ddgPage))
	}))
	defer srv.Close()

	s, err := search.New(search.Config{Provider: "duckduckgo", Endpoint: srv.URL, RatePerSecond: 10})
	require.NoError(t, err)
	results, err := s.Search(context.Background(), "quantum entanglement")
	require.NoError(t, err)
	assert.Equal(t, []pipeline.SearchResult{
		{Title: "Quantum entanglement - Wikipedia", URL: "https://en.wikipedia.org/wiki/Quantum_entanglement", Snippet: "Quantum entanglement is the phenomenon..."},
		{Title: "Physics explained", URL: "https://example.org/physics", Snippet: "Entangled particles."},
	}, results)
}

func TestNew_Validation(t *testing.T) {
	_, err := search.New(search.Config{Provider: "tavily"})
	assert.Error(t, err, "tavily needs a key")
	_, err = search.New(search.Config{Provider: "bing"})
	assert.Error(t, err)
	_, err = search.New(search.Config{Provider: "ddg"})
	assert.NoError(t, err)
}
