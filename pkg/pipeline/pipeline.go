package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/pkg/errors"
)

// Logger defines the logging interface used by the pipeline
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// SearchResult is a single ranked hit returned by a Searcher.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher runs a web search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Page is the extracted text of a web page.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Extractor downloads a URL and returns its readable text.
type Extractor interface {
	Extract(ctx context.Context, url string) (Page, error)
}

// LLM generates text from a system and a user prompt.
type LLM interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds the pipeline defaults; ResearchOptions may override some per run.
type Config struct {
	MaxQueries       int
	MaxSources       int
	SummaryExcerpt   int // characters per source fed to the summarizer
	FactCheckExcerpt int // characters per source fed to the fact checker
	Retry            RetryConfig
}

func DefaultConfig() Config {
	return Config{
		MaxQueries:       3,
		MaxSources:       5,
		SummaryExcerpt:   5000,
		FactCheckExcerpt: 5000,
		Retry:            DefaultRetryConfig(),
	}
}

// Progress checkpoints reported to the coordinator, one pair per step.
const (
	pctInitializing   = 0
	pctQueriesReady   = 5
	pctSearching      = 20
	pctSearchDone     = 30
	pctExtracting     = 40
	pctExtractDone    = 50
	pctDrafting       = 60
	pctDraftingAnswer = 65
	pctDraftDone      = 70
	pctFactChecking   = 80
	pctFactCheckDone  = 90
	pctFinalizing     = 95
)

// Pipeline runs the fixed research sequence against its collaborators.
type Pipeline struct {
	searcher  Searcher
	extractor Extractor
	llm       LLM
	cfg       Config
	logger    Logger
}

func New(searcher Searcher, extractor Extractor, llm LLM, cfg Config, logger Logger) *Pipeline {
	def := DefaultConfig()
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = def.MaxQueries
	}
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = def.MaxSources
	}
	if cfg.SummaryExcerpt <= 0 {
		cfg.SummaryExcerpt = def.SummaryExcerpt
	}
	if cfg.FactCheckExcerpt <= 0 {
		cfg.FactCheckExcerpt = def.FactCheckExcerpt
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	return &Pipeline{searcher: searcher, extractor: extractor, llm: llm, cfg: cfg, logger: logger}
}

// Run researches question and returns a cited answer. Every error is a *StepError.
func (p *Pipeline) Run(ctx context.Context, question string, opts models.ResearchOptions, progress models.ProgressFunc) (models.Result, error) {
	if progress == nil {
		progress = func(models.Step, int, string) {}
	}
	question = strings.TrimSpace(question)
	maxQueries, maxSources := p.cfg.MaxQueries, p.cfg.MaxSources
	if opts.MaxQueries > 0 {
		maxQueries = opts.MaxQueries
	}
	if opts.MaxSources > 0 {
		maxSources = opts.MaxSources
	}

	progress(models.StepInitializing, pctInitializing, "Generating search queries")
	queries := GenerateQueries(question, maxQueries)
	if len(queries) == 0 {
		return models.Result{}, &StepError{Step: models.StepInitializing, Err: errors.New("question is empty")}
	}
	progress(models.StepInitializing, pctQueriesReady, fmt.Sprintf("Generated %d search queries", len(queries)))

	progress(models.StepSearching, pctSearching, "Searching the web")
	results, err := p.search(ctx, queries)
	if err != nil {
		return models.Result{}, &StepError{Step: models.StepSearching, Err: err}
	}
	progress(models.StepSearching, pctSearchDone, fmt.Sprintf("Found %d search results", len(results)))

	progress(models.StepExtracting, pctExtracting, "Extracting page content")
	pages, err := p.extract(ctx, results, maxSources)
	if err != nil {
		return models.Result{}, &StepError{Step: models.StepExtracting, Err: err}
	}
	sources := make([]models.Source, 0, len(pages))
	for _, pg := range pages {
		sources = append(sources, models.NewSource(pg.Title, pg.URL))
	}
	progress(models.StepExtracting, pctExtractDone, fmt.Sprintf("Extracted content from %d sources", len(pages)))

	progress(models.StepDrafting, pctDrafting, "Summarizing research findings")
	summary, err := p.generate(ctx, summarizeSystemPrompt, buildSummaryPrompt(question, pages, p.cfg.SummaryExcerpt))
	if err != nil {
		return models.Result{}, &StepError{Step: models.StepDrafting, Err: errors.Wrap(err, "summarize")}
	}
	progress(models.StepDrafting, pctDraftingAnswer, "Drafting answer")
	draft, err := p.generate(ctx, draftSystemPrompt, buildDraftPrompt(question, summary, sources))
	if err != nil {
		return models.Result{}, &StepError{Step: models.StepDrafting, Err: errors.Wrap(err, "draft")}
	}
	progress(models.StepDrafting, pctDraftDone, "Draft complete")

	progress(models.StepFactChecking, pctFactChecking, "Fact checking draft answer")
	check, err := p.generate(ctx, factCheckSystemPrompt, buildFactCheckPrompt(question, draft, pages, p.cfg.FactCheckExcerpt))
	if err != nil {
		return models.Result{}, &StepError{Step: models.StepFactChecking, Err: err}
	}
	progress(models.StepFactChecking, pctFactCheckDone, "Fact check complete")

	progress(models.StepFinalizing, pctFinalizing, "Finalizing answer")
	final, err := p.generate(ctx, finalizeSystemPrompt, buildFinalizePrompt(question, draft, check, sources))
	if err != nil {
		return models.Result{}, &StepError{Step: models.StepFinalizing, Err: err}
	}

	return models.Result{
		Question: question,
		Answer:   strings.TrimSpace(final),
		Sources:  sources,
	}, nil
}

// search runs every query. A permanent failure aborts; a query whose transient
// retries run out is skipped as long as another query produced results.
func (p *Pipeline) search(ctx context.Context, queries []string) ([]SearchResult, error) {
	var all []SearchResult
	var lastErr error
	for _, q := range queries {
		q = cleanQuery(q)
		p.logger.Infof("Searching for: %s", q)
		results, err := withRetry(ctx, p.cfg.Retry, p.logger, "search", func(ctx context.Context) ([]SearchResult, error) {
			return p.searcher.Search(ctx, q)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !IsTransient(err) {
				return nil, err
			}
			p.logger.Warnf("Skipping query %q after retries: %v", q, err)
			lastErr = err
			continue
		}
		p.logger.Infof("Found %d results for %q", len(results), q)
		all = append(all, results...)
	}
	if len(all) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, ErrNoResults
	}
	return all, nil
}

// extract pulls text for unique result URLs in rank order until maxSources pages
// are collected. Pages that fail or come back empty are skipped.
func (p *Pipeline) extract(ctx context.Context, results []SearchResult, maxSources int) ([]Page, error) {
	seen := make(map[string]struct{}, len(results))
	var candidates []SearchResult
	for _, r := range results {
		u := strings.TrimSpace(r.URL)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		r.URL = u
		candidates = append(candidates, r)
	}
	attempts := 2 * maxSources
	pages := make([]Page, 0, maxSources)
	for i, c := range candidates {
		if len(pages) >= maxSources || i >= attempts {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := withRetry(ctx, p.cfg.Retry, p.logger, "extract", func(ctx context.Context) (Page, error) {
			return p.extractor.Extract(ctx, c.URL)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.logger.Warnf("Skipping %s: %v", c.URL, err)
			continue
		}
		if strings.TrimSpace(page.Content) == "" {
			p.logger.Warnf("Skipping %s: empty content", c.URL)
			continue
		}
		if page.URL == "" {
			page.URL = c.URL
		}
		if strings.TrimSpace(page.Title) == "" {
			page.Title = c.Title
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		return nil, ErrNoContent
	}
	return pages, nil
}

func (p *Pipeline) generate(ctx context.Context, system, user string) (string, error) {
	return withRetry(ctx, p.cfg.Retry, p.logger, "llm", func(ctx context.Context) (string, error) {
		out, err := p.llm.Generate(ctx, system, user)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", Permanent("llm", errors.New("empty completion"))
		}
		return out, nil
	})
}
