// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SnapshotVersion is the current session snapshot format version (semver).
//
// Loaders accept any snapshot sharing the current major version; a major
// bump means old snapshots cannot be resumed and must be re-submitted.
const SnapshotVersion = "1.0.0"

// SessionSnapshot is the on-disk representation of a suspended or completed
// session. It is the only serialization boundary in the pipeline: written at
// StageAwaitFeedback and at terminal transitions, keyed by session ID.
type SessionSnapshot struct {
	Version string      `json:"version"`
	SavedAt time.Time   `json:"saved_at"`
	State   ReviewState `json:"state"`
}

// NewSessionSnapshot wraps a state in the current snapshot format.
func NewSessionSnapshot(state *ReviewState) *SessionSnapshot {
	return &SessionSnapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now().UTC(),
		State:   *state.Clone(),
	}
}

// MarshalSnapshot serializes a snapshot for storage.
func MarshalSnapshot(snap *SessionSnapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal session snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot deserializes a stored snapshot, rejecting incompatible
// format versions.
func UnmarshalSnapshot(data []byte) (*SessionSnapshot, error) {
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal session snapshot: %w", err)
	}
	if !compatibleSnapshotVersion(snap.Version) {
		return nil, fmt.Errorf("incompatible snapshot version %q (current %q)",
			snap.Version, SnapshotVersion)
	}
	return &snap, nil
}

// compatibleSnapshotVersion accepts snapshots with the same major version.
func compatibleSnapshotVersion(v string) bool {
	if v == "" {
		return false
	}
	cur, _, _ := strings.Cut(SnapshotVersion, ".")
	got, _, _ := strings.Cut(v, ".")
	return cur == got
}
