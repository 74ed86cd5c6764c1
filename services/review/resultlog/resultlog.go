// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resultlog appends review outcomes to a JSONL file.
//
// The log is an audit trail, not a system of record: the engine swallows
// append failures so a full disk never blocks a review session.
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/FairClause/services/review/datatypes"
)

// Logger is an append-only JSONL sink, one result record per line.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// Open creates or opens the log file for appending, creating parent
// directories as needed.
func Open(path string) (*Logger, error) {
	if path == "" {
		return nil, fmt.Errorf("result log path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create result log directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open result log %s: %w", path, err)
	}
	return &Logger{file: file, enc: json.NewEncoder(file)}, nil
}

// Append writes one record as a JSON line.
func (l *Logger) Append(_ context.Context, record datatypes.ResultRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enc.Encode(record); err != nil {
		return fmt.Errorf("append result record: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
