// Package fetch downloads web pages and reduces them to readable text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultMaxChars caps the extracted text handed to the LLM.
	DefaultMaxChars = 10000
	maxBodyBytes    = 4 << 20
	userAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

// block elements end a line of text.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
}

// Extractor implements pipeline.Extractor over plain HTTP.
type Extractor struct {
	client   *http.Client
	maxChars int
}

func NewExtractor(timeout time.Duration, maxChars int) *Extractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{client: &http.Client{Timeout: timeout}, maxChars: maxChars}
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (pipeline.Page, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return pipeline.Page{}, pipeline.Permanent("extract", errors.New("url is empty"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return pipeline.Page{}, pipeline.Permanent("extract", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Page{}, pipeline.Permanent("extract", ctx.Err())
		}
		return pipeline.Page{}, pipeline.Transient("extract", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("http %d for %s", resp.StatusCode, rawURL)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return pipeline.Page{}, pipeline.Transient("extract", err)
		}
		return pipeline.Page{}, pipeline.Permanent("extract", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") && !strings.HasPrefix(ct, "text/") {
		return pipeline.Page{}, pipeline.Permanent("extract", fmt.Errorf("unsupported content type %q", ct))
	}

	title, text, err := ExtractText(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return pipeline.Page{}, pipeline.Permanent("extract", err)
	}
	return pipeline.Page{URL: rawURL, Title: title, Content: truncate(text, e.maxChars)}, nil
}

// ExtractText parses an HTML document and returns its title and visible text, one
// non-blank line per block.
func ExtractText(r io.Reader) (string, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", errors.Wrap(err, "parse html")
	}

	var title string
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title && title == "" {
				title = collapse(nodeText(n))
				return
			}
			if skipped[n.DataAtom] {
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && block[n.DataAtom] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = collapse(line); line != "" {
			out = append(out, line)
		}
	}
	return title, strings.Join(out, "\n"), nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
