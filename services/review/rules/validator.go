// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules implements the rule-based front door of the review pipeline:
// the admissibility validator and the deterministic text normalizer.
//
// Both are pure with respect to the pipeline: the validator never mutates
// its input, and the normalizer is idempotent so re-running it on already
// normalized text is a no-op.
package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AleutianAI/FairClause/services/review/rules/enforcement"
	"gopkg.in/yaml.v3"
)

// clauseRuleFile mirrors the embedded clause_rules.yaml layout.
type clauseRuleFile struct {
	MinLength        int      `yaml:"min_length"`
	ContractKeywords []string `yaml:"contract_keywords"`
	QuestionMarkers  []string `yaml:"question_markers"`
	SmalltalkMarkers []string `yaml:"smalltalk_markers"`
	Reasons          struct {
		TooShort  string `yaml:"too_short"`
		NoKeyword string `yaml:"no_keyword"`
		Question  string `yaml:"question"`
		Smalltalk string `yaml:"smalltalk"`
		Accepted  string `yaml:"accepted"`
	} `yaml:"reasons"`
}

// ClauseValidator decides whether raw input is admissible as a contract
// clause. Rules are loaded once from the embedded YAML; the validator is
// immutable afterwards and safe for concurrent use.
type ClauseValidator struct {
	rules clauseRuleFile
}

// NewClauseValidator loads the embedded admission rules.
//
// Returns an error only if the embedded YAML is malformed or incomplete,
// which indicates a broken build rather than bad user input.
func NewClauseValidator() (*ClauseValidator, error) {
	var rules clauseRuleFile
	if err := yaml.Unmarshal(enforcement.ClauseRules, &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded clause rules: %w", err)
	}
	if rules.MinLength <= 0 {
		return nil, fmt.Errorf("embedded clause rules: min_length must be positive, got %d", rules.MinLength)
	}
	if len(rules.ContractKeywords) == 0 {
		return nil, fmt.Errorf("embedded clause rules: contract_keywords is empty")
	}
	return &ClauseValidator{rules: rules}, nil
}

// Validate checks a submission against the admission rules, in order:
// minimum length (in runes, the input is Korean), contract keyword
// presence, question markers, smalltalk markers.
//
// The returned reason is user-visible and required for rejections.
func (v *ClauseValidator) Validate(clause string) (bool, string) {
	clause = strings.TrimSpace(clause)

	if utf8.RuneCountInString(clause) < v.rules.MinLength {
		return false, v.rules.Reasons.TooShort
	}

	if !containsAny(clause, v.rules.ContractKeywords) {
		return false, v.rules.Reasons.NoKeyword
	}

	if containsAny(clause, v.rules.QuestionMarkers) {
		return false, v.rules.Reasons.Question
	}

	if containsAny(clause, v.rules.SmalltalkMarkers) {
		return false, v.rules.Reasons.Smalltalk
	}

	return true, v.rules.Reasons.Accepted
}

// MinLength returns the minimum admissible clause length in runes.
func (v *ClauseValidator) MinLength() int {
	return v.rules.MinLength
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
