// Package killswitch implements the emergency trading-halt mechanism with
// three activation channels: a sentinel file, an authenticated API call, and
// a direct in-process call (spec.md §4.8).
package killswitch

import (
	"crypto/subtle"
	"os"
	"sync"
	"time"
)

// Config holds the kill switch's token and sentinel file path (spec.md §6).
type Config struct {
	Token        string
	SentinelPath string
}

// Switch tracks activation state in memory and mirrors it onto a sentinel
// file so an operator can trip it without going through the API (spec.md
// §4.8: "presence of the sentinel file is itself one of the three activation
// channels").
type Switch struct {
	mu sync.Mutex

	cfg Config

	active      bool
	reason      string
	activatedAt time.Time
}

// New creates a Switch from the given config. If the sentinel file is
// already present on disk at construction time, the switch starts active.
func New(cfg Config) *Switch {
	s := &Switch{cfg: cfg}
	if cfg.SentinelPath != "" {
		if _, err := os.Stat(cfg.SentinelPath); err == nil {
			s.active = true
			s.reason = "sentinel file present at startup"
			s.activatedAt = time.Now()
		}
	}
	return s
}

// IsActive reports whether the kill switch is active, checking both the
// in-memory flag and the sentinel file's current presence — an operator can
// drop the file directly on disk without calling the API (spec.md §4.8).
func (s *Switch) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return true
	}
	if s.cfg.SentinelPath == "" {
		return false
	}
	if _, err := os.Stat(s.cfg.SentinelPath); err == nil {
		s.active = true
		s.reason = "sentinel file detected"
		s.activatedAt = time.Now()
		return true
	}
	return false
}

// Activate trips the switch directly (in-process channel), writing the
// sentinel file so the state survives a restart. Activating an already-active
// switch updates the reason but keeps the original activatedAt (spec.md §8:
// "activating twice keeps it active with the first activated_at").
func (s *Switch) Activate(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.activatedAt = time.Now()
	}
	s.active = true
	s.reason = reason
	return s.writeSentinelLocked()
}

// Deactivate clears the switch and removes the sentinel file.
func (s *Switch) Deactivate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.reason = ""
	if s.cfg.SentinelPath == "" {
		return nil
	}
	err := os.Remove(s.cfg.SentinelPath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Switch) writeSentinelLocked() error {
	if s.cfg.SentinelPath == "" {
		return nil
	}
	body := "KILL SWITCH ACTIVATED\nTime: " + s.activatedAt.UTC().Format(time.RFC3339Nano) + "\nReason: " + s.reason + "\n"
	return os.WriteFile(s.cfg.SentinelPath, []byte(body), 0o600)
}

// ValidateToken compares candidate against the configured token in constant
// time. When no token is configured, validation fails closed — every token
// is rejected, including the empty string (spec.md §4.8: "a deployment that
// forgets to set the token can never authenticate activation over the API").
func (s *Switch) ValidateToken(candidate string) bool {
	s.mu.Lock()
	want := s.cfg.Token
	s.mu.Unlock()
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(want)) == 1
}

// Status is the non-secret snapshot returned by /status and /kill-switch
// (spec.md §4.8: never echoes the token).
type Status struct {
	Active      bool
	Reason      string
	ActivatedAt time.Time
}

// Status returns the current activation snapshot, re-checking the sentinel
// file via IsActive first.
func (s *Switch) Status() Status {
	_ = s.IsActive()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Active: s.active, Reason: s.reason, ActivatedAt: s.activatedAt}
}
