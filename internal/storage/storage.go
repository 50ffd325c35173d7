package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"buyer_agent/internal/logger"
	"buyer_agent/internal/memory"
)

// StateVersion is the schema version of session state files.
const StateVersion = "1.1"

// ErrUnsupportedVersion is returned for state files written by a newer build.
var ErrUnsupportedVersion = errors.New("unsupported state version")

// SessionState is what a suspended session leaves on disk.
type SessionState struct {
	Version   string       `json:"version"`
	SessionID string       `json:"session_id"`
	Scenario  string       `json:"scenario,omitempty"`
	LastSync  string       `json:"last_sync"`
	Memory    memory.State `json:"memory"`
}

// StatePath is where the state of session id lives inside dir.
func StatePath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

// LoadSessionState reads the state of session id from dir.
// found is false (with a nil error) when no file exists yet.
func LoadSessionState(dir, id string) (s SessionState, found bool, err error) {
	b, err := os.ReadFile(StatePath(dir, id))
	if os.IsNotExist(err) {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}

	if err := json.Unmarshal(b, &s); err != nil {
		return s, false, fmt.Errorf("parse state %s: %w", id, err)
	}

	cmp, err := compareVersions(s.Version, StateVersion)
	if err != nil {
		return s, false, fmt.Errorf("state %s: %w", id, err)
	}
	if cmp > 0 {
		return s, false, fmt.Errorf("%w: %s (this build writes %s)", ErrUnsupportedVersion, s.Version, StateVersion)
	}

	if migrateState(&s) {
		logger.Infof("State %s migrated to version %s. Saving...", id, s.Version)
		if err := SaveSessionState(dir, s); err != nil {
			return s, true, err
		}
	}

	return s, true, nil
}

// migrateState upgrades older schemas in place and reports whether anything changed.
func migrateState(s *SessionState) bool {
	updated := false

	// Migration: unversioned -> 1.1 (rounds counter and last offer kept explicitly)
	if cmp, _ := compareVersions(s.Version, "1.1"); cmp < 0 {
		logger.Infof("Migrating session state schema from %q to 1.1", s.Version)
		m := memory.New()
		m.Import(s.Memory)
		s.Memory = m.Export()
		s.Version = "1.1"
		updated = true
	}

	return updated
}

// compareVersions orders "major.minor" strings numerically. An empty version
// predates versioning and sorts first.
func compareVersions(a, b string) (int, error) {
	am, an, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	bm, bn, err := parseVersion(b)
	if err != nil {
		return 0, err
	}
	if am != bm {
		return sign(am - bm), nil
	}
	return sign(an - bn), nil
}

func parseVersion(v string) (major, minor int, err error) {
	if v == "" {
		return 0, 0, nil
	}
	majorStr, minorStr, _ := strings.Cut(v, ".")
	if major, err = strconv.Atoi(majorStr); err != nil {
		return 0, 0, fmt.Errorf("invalid state version %q", v)
	}
	if minorStr != "" {
		if minor, err = strconv.Atoi(minorStr); err != nil {
			return 0, 0, fmt.Errorf("invalid state version %q", v)
		}
	}
	return major, minor, nil
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// SaveSessionState writes s atomically: temp file, fsync, rename.
func SaveSessionState(dir string, s SessionState) error {
	if s.SessionID == "" {
		return fmt.Errorf("save state: empty session id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if s.Version == "" {
		s.Version = StateVersion
	}
	s.LastSync = time.Now().UTC().Format(time.RFC3339)

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	path := StatePath(dir, s.SessionID)
	tmpFile := path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	// Close before renaming (required on Windows).
	if err := f.Close(); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
