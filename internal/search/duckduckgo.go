package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the keyless HTML results page.
type DuckDuckGo struct {
	maxResults int
	endpoint   string
	client     *http.Client
	limiter    *rate.Limiter
}

func NewDuckDuckGo(maxResults int, endpoint string, client *http.Client, limiter *rate.Limiter) *DuckDuckGo {
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	return &DuckDuckGo{maxResults: maxResults, endpoint: endpoint, client: client, limiter: limiter}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]pipeline.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, pipeline.Permanent("duckduckgo", errors.New("query is empty"))
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, pipeline.Permanent("duckduckgo", err)
	}

	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pipeline.Permanent("duckduckgo", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, "duckduckgo", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("duckduckgo", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, pipeline.Transient("duckduckgo", errors.Wrap(err, "parse results"))
	}
	return parseResults(doc, d.maxResults), nil
}

// parseResults walks the result page. Each hit is an anchor with class result__a followed
// by an element with class result__snippet.
func parseResults(doc *html.Node, max int) []pipeline.SearchResult {
	var results []pipeline.SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				if u := resultURL(attr(n, "href")); u != "" {
					results = append(results, pipeline.SearchResult{Title: textOf(n), URL: u})
				}
				return
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Snippet == "" {
					results[len(results)-1].Snippet = textOf(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if max > 0 && len(results) > max {
		results = results[:max]
	}
	return results
}

// resultURL unwraps DuckDuckGo's /l/?uddg= redirect links and drops internal links.
func resultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		return ""
	}
	return u.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
