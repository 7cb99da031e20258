package cli

import (
	"context"

	"github.com/Aryanchhabra/DeepResearchAI/internal/config"
	"github.com/Aryanchhabra/DeepResearchAI/internal/fetch"
	"github.com/Aryanchhabra/DeepResearchAI/internal/llm"
	"github.com/Aryanchhabra/DeepResearchAI/internal/log"
	"github.com/Aryanchhabra/DeepResearchAI/internal/search"
	internal_storage "github.com/Aryanchhabra/DeepResearchAI/internal/storage"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/pipeline"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/service"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
)

// app holds the wired components shared by serve and ask.
type app struct {
	cfg         *config.Config
	store       storage.HistoryStore
	history     *service.HistoryService
	coordinator *service.Coordinator
}

func initStore(ctx context.Context, cfg *config.Config) (storage.HistoryStore, error) {
	store, err := internal_storage.InitStore(ctx, internal_storage.Options{
		Driver:        cfg.History.Driver,
		DSN:           cfg.History.DSN,
		Dir:           cfg.History.Dir,
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize history store")
	}
	return store, nil
}

func newPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	model, err := llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}
	searcher, err := search.New(search.Config{
		Provider:      cfg.Search.Provider,
		APIKey:        cfg.Search.APIKey,
		Depth:         cfg.Search.Depth,
		MaxResults:    cfg.Search.MaxResults,
		Timeout:       cfg.Search.Timeout,
		RatePerSecond: cfg.Search.RatePerSecond,
		Endpoint:      cfg.Search.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	extractor := fetch.NewExtractor(cfg.Extract.Timeout, cfg.Extract.MaxChars)

	pc := pipeline.DefaultConfig()
	if cfg.Pipeline.MaxQueries > 0 {
		pc.MaxQueries = cfg.Pipeline.MaxQueries
	}
	if cfg.Pipeline.MaxSources > 0 {
		pc.MaxSources = cfg.Pipeline.MaxSources
	}
	pc.Retry = pipeline.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     cfg.Retry.MaxInterval,
	}
	return pipeline.New(searcher, extractor, model, pc, log.GetLogger()), nil
}

// newApp wires config into a started coordinator. Completed research is recorded in
// the history store before its completed event is published.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	research, err := newPipeline(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build research pipeline")
	}
	store, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	history := service.NewHistoryService(store, log.GetLogger())

	cc := cfg.Coordinator
	// workers outlive the signal context so Close can drain them
	coordinator := service.NewCoordinator(context.WithoutCancel(ctx), research, log.GetLogger(), service.Config{
		Workers:           cc.Workers,
		QueueSize:         cc.QueueSize,
		TaskTimeout:       cc.TaskTimeout,
		HeartbeatInterval: cc.HeartbeatInterval,
		Retention:         cc.Retention,
		AccessGrace:       cc.AccessGrace,
		CleanupInterval:   cc.CleanupInterval,
	}, service.WithCompletionHook(history.Record))
	coordinator.Start()

	return &app{cfg: cfg, store: store, history: history, coordinator: coordinator}, nil
}

// Close stops the coordinator, letting running research finish, then closes the store.
func (a *app) Close() {
	a.coordinator.Stop()
	if err := a.store.Close(); err != nil {
		log.GetLogger().Warnf("Failed to close history store: %v", err)
	}
}
