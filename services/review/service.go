// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package review assembles the clause review service.
//
// This package wires the engine's ports to their production
// implementations — rule validator, LLM classifier and generator,
// Weaviate retriever, Badger session store, JSONL result log — and
// exposes the HTTP API.
package review

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/AleutianAI/FairClause/services/llm"
	"github.com/AleutianAI/FairClause/services/review/batch"
	"github.com/AleutianAI/FairClause/services/review/classify"
	"github.com/AleutianAI/FairClause/services/review/datatypes"
	"github.com/AleutianAI/FairClause/services/review/engine"
	"github.com/AleutianAI/FairClause/services/review/evidence"
	"github.com/AleutianAI/FairClause/services/review/generate"
	"github.com/AleutianAI/FairClause/services/review/resultlog"
	"github.com/AleutianAI/FairClause/services/review/routes"
	"github.com/AleutianAI/FairClause/services/review/rules"
	"github.com/AleutianAI/FairClause/services/review/store"
	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

// Service is the review service lifecycle contract. Run blocks until the
// server stops; Router exposes the configured routes for tests.
type Service interface {
	Run() error
	Router() *gin.Engine
	Engine() *engine.Engine
	Close() error
}

// Config holds review service configuration. Zero values select defaults.
type Config struct {
	// Port is the HTTP server port. Default: 12310.
	Port int

	// LLMBackend selects the text generation provider: "openai" or
	// "ollama". Default: "ollama".
	LLMBackend string

	// WeaviateURL is the evidence index URL. Empty disables retrieval;
	// reviews then run with an explicit no-evidence caveat.
	WeaviateURL string

	// StorePath is the session store directory. Default: "./data/sessions".
	StorePath string

	// StoreInMemory runs the session store in memory. For tests.
	StoreInMemory bool

	// SessionTTL expires abandoned sessions. Zero keeps them forever.
	SessionTTL time.Duration

	// ResultLogPath is the JSONL result log. Default:
	// "./logs/review_results.jsonl". Open failures disable the log with a
	// warning; they never block startup.
	ResultLogPath string

	// BatchConcurrency bounds simultaneous sessions per batch request.
	BatchConcurrency int

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "./data/sessions"
	}
	if cfg.ResultLogPath == "" {
		cfg.ResultLogPath = "./logs/review_results.jsonl"
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = batch.DefaultConcurrency
	}
	return cfg
}

type service struct {
	config         Config
	router         *gin.Engine
	engine         *engine.Engine
	runner         *batch.Runner
	sessions       *store.SessionStore
	results        *resultlog.Logger
	weaviateClient *weaviate.Client
}

// New builds a ready-to-run review service.
//
// # Description
//
//	Initialization order: LLM client, Weaviate (optional), session store,
//	result log (optional), engine, batch runner, router. A missing
//	Weaviate index degrades retrieval to the no-evidence path instead of
//	failing startup; a missing result log only loses the audit trail.
func New(cfg Config) (Service, error) {
	s := &service{config: applyConfigDefaults(cfg)}

	llmClient, err := s.newLLMClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	searcher := s.initSearcher()

	s.sessions, err = store.Open(store.Config{
		Path:       s.config.StorePath,
		InMemory:   s.config.StoreInMemory,
		SyncWrites: !s.config.StoreInMemory,
		TTL:        s.config.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	var results engine.ResultLogger
	s.results, err = resultlog.Open(s.config.ResultLogPath)
	if err != nil {
		slog.Warn("Result log unavailable, continuing without audit trail",
			"path", s.config.ResultLogPath, "error", err)
	} else {
		results = s.results
	}

	validator, err := rules.NewClauseValidator()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load clause rules: %w", err)
	}
	retriever, err := evidence.NewRetriever(searcher)
	if err != nil {
		s.Close()
		return nil, err
	}
	generator, err := generate.NewGenerator(llmClient)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.engine, err = engine.New(engine.Config{
		Validator:  validator,
		Normalizer: rules.NewNormalizer(),
		Classifier: classify.NewFairnessClassifier(llmClient),
		Typifier:   classify.NewUnfairTypifier(llmClient),
		Searcher:   retriever,
		Generator:  generator,
		Store:      s.sessions,
		Results:    results,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to build review engine: %w", err)
	}

	s.runner, err = batch.NewRunner(s.engine, s.config.BatchConcurrency)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting review server", "port", s.config.Port)
	return s.router.Run(addr)
}

// Router returns the configured Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Engine returns the review engine for direct (non-HTTP) use.
func (s *service) Engine() *engine.Engine {
	return s.engine
}

// Close releases the store and result log.
func (s *service) Close() error {
	var firstErr error
	if s.results != nil {
		if err := s.results.Close(); err != nil {
			firstErr = err
		}
		s.results = nil
	}
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.sessions = nil
	}
	return firstErr
}

func (s *service) newLLMClient() (llm.LLMClient, error) {
	switch s.config.LLMBackend {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return llm.NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return llm.NewOllamaClient()
	default:
		slog.Warn("Unknown LLM backend, defaulting to ollama",
			"backend", s.config.LLMBackend)
		return llm.NewOllamaClient()
	}
}

// initSearcher connects to Weaviate when configured, falling back to the
// no-evidence searcher otherwise.
func (s *service) initSearcher() evidence.Searcher {
	weaviateURL := strings.Trim(s.config.WeaviateURL, "\"' ")
	if weaviateURL == "" {
		slog.Warn("Weaviate URL not configured, reviews will run without evidence")
		return evidence.NoopSearcher{}
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("Invalid Weaviate URL, reviews will run without evidence",
			"url", weaviateURL)
		return evidence.NoopSearcher{}
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Warn("Failed to create Weaviate client, reviews will run without evidence",
			"error", err)
		return evidence.NoopSearcher{}
	}
	s.weaviateClient = client
	datatypes.EnsureReviewSchema(client)

	searcher, err := evidence.NewWeaviateSearcher(client)
	if err != nil {
		slog.Warn("Failed to create evidence searcher, reviews will run without evidence",
			"error", err)
		return evidence.NoopSearcher{}
	}
	slog.Info("Weaviate evidence index initialized", "url", weaviateURL)
	return searcher
}

func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	routes.SetupRoutes(s.router, s.engine, s.runner)
}

var _ Service = (*service)(nil)
