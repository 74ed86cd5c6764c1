// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"time"

	"github.com/AleutianAI/FairClause/services/review"
)

// Config mirrors config.yaml. Zero values fall back to service defaults.
type Config struct {
	Server struct {
		Port    int    `yaml:"port"`
		GinMode string `yaml:"gin_mode"`
	} `yaml:"server"`

	LLM struct {
		Backend string `yaml:"backend"`
	} `yaml:"llm"`

	Weaviate struct {
		URL string `yaml:"url"`
	} `yaml:"weaviate"`

	Store struct {
		Path       string        `yaml:"path"`
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"store"`

	Results struct {
		Path string `yaml:"path"`
	} `yaml:"results"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`

	Review struct {
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		BatchConcurrency    int     `yaml:"batch_concurrency"`
	} `yaml:"review"`
}

// serviceConfig maps the file config onto the review service config.
func (c Config) serviceConfig() review.Config {
	return review.Config{
		Port:             c.Server.Port,
		GinMode:          c.Server.GinMode,
		LLMBackend:       c.LLM.Backend,
		WeaviateURL:      c.Weaviate.URL,
		StorePath:        c.Store.Path,
		SessionTTL:       c.Store.SessionTTL,
		ResultLogPath:    c.Results.Path,
		BatchConcurrency: c.Review.BatchConcurrency,
	}
}
