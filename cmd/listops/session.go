package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dan-solli/listops/pkg/config"
	"github.com/dan-solli/listops/pkg/listops"
	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/metrics"
	"github.com/dan-solli/listops/pkg/store"
	"github.com/dan-solli/listops/pkg/trace"
)

const defaultOllamaURL = "http://localhost:11434"

// completionCache is a cache the command can both use and maintain.
type completionCache interface {
	llm.Cache
	store.Maintainer
}

// session holds everything one command invocation needs.
type session struct {
	cfg     *config.Config
	engine  *listops.Engine
	metrics *metrics.PrometheusCollector
	traces  trace.Exporter
	closers []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if parallel > 0 {
		cfg.Engine.ParallelCompletions = parallel
	}
	return cfg, nil
}

// openSession builds the engine and its supporting infrastructure from the
// configuration file and flags.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}

	port, err := newCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	port = llm.NewLoggingCompleter(port, logger.Named("llm"), verbose)

	if cfg.Cache.Path != "" {
		cache, err := openCache(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, closerOf(cache))
		namespace := cfg.Provider.Name + "/" + cfg.Provider.Model
		port = llm.NewCachingCompleter(port, cache, namespace, logger.Named("cache"))
	}

	engine, err := listops.New(port, cfg.EngineConfig())
	if err != nil {
		s.Close()
		return nil, err
	}
	engine.WithLogger(logger)

	if cfg.Metrics.Enabled {
		s.metrics = metrics.NewCollector()
		engine.WithMetrics(s.metrics)
	}

	s.traces, err = trace.NewFileExporter(cfg.Trace.Path)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	engine.WithTraceExporter(s.traces)

	s.engine = engine
	return s, nil
}

// options returns the per-call options set by global flags.
func (s *session) options() listops.Options {
	return listops.Options{
		Instructions:    instructions,
		LogExplanations: explain,
	}
}

// Close flushes metrics and traces and releases the cache.
func (s *session) Close() error {
	var errs []error
	if s.metrics != nil && s.cfg.Metrics.Path != "" {
		if err := prometheus.WriteToTextfile(s.cfg.Metrics.Path, s.metrics.Registry()); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if s.traces != nil {
		errs = append(errs, s.traces.Close())
	}
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.Warn("session close failed", zap.Error(err))
	}
	return err
}

func newCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	p := cfg.Provider
	switch p.Name {
	case "openai":
		client := llm.NewOpenAIClient(p.APIKey).WithTimeout(cfg.GetTimeout())
		if p.Model != "" {
			client.Model = p.Model
		}
		if p.BaseURL != "" {
			client.BaseURL = p.BaseURL
		}
		client.Logger = logger.Named("openai")
		return client, nil
	case "ollama":
		baseURL := p.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return llm.NewOllamaClient(baseURL, p.Model), nil
	case "gemini":
		return llm.NewGeminiClient(ctx, p.APIKey, p.Model)
	}
	return nil, fmt.Errorf("unsupported provider %q", p.Name)
}

func openCache(path string) (completionCache, error) {
	if path == ":memory:" {
		return store.NewMemoryCache(0), nil
	}
	cache, err := store.NewSQLiteCache(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return cache, nil
}

func closerOf(v any) func() error {
	if c, ok := v.(interface{ Close() error }); ok {
		return c.Close
	}
	return func() error { return nil }
}
