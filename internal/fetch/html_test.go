package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/fetch"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head><title>  Quantum
 Entanglement </title><style>body { color: red }</style><script>var x = 1;</script></head>
<body>
<header>Site header</header>
<nav><a href="/">Home</a></nav>
<article>
  <h1>Entanglement</h1>
  <p>Two particles   share a state.</p>

  <p>Measuring one <b>instantly</b> constrains the other.</p>
</article>
<noscript>Enable JS</noscript>
<footer>Copyright</footer>
</body></html>`

func TestExtractText(t *testing.T) {
	title, text, err := fetch.ExtractText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Quantum Entanglement", title)
	assert.Equal(t, "Entanglement\nTwo particles share a state.\nMeasuring one instantly constrains the other.", text)
	for _, hidden := range []string{"Site header", "Home", "Copyright", "var x", "color: red", "Enable JS"} {
		assert.NotContains(t, text, hidden)
	}
}

func TestExtractor_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		case "/long":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<p>" + strings.Repeat("a", 500) + "</p>"))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	e := fetch.NewExtractor(5*time.Second, 100)

	p, err := e.Extract(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "Quantum Entanglement", p.Title)
	assert.Equal(t, srv.URL+"/ok", p.URL)
	assert.Contains(t, p.Content, "Two particles share a state.")

	p, err = e.Extract(context.Background(), srv.URL+"/long")
	require.NoError(t, err)
	assert.Len(t, p.Content, 100)

	_, err = e.Extract(context.Background(), srv.URL+"/busy")
	require.Error(t, err)
	assert.True(t, pipeline.IsTransient(err))

	_, err = e.Extract(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))

	_, err = e.Extract(context.Background(), srv.URL+"/pdf")
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}
