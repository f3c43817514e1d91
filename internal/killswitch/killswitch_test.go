package killswitch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSwitch_StartsInactiveWithoutSentinel(t *testing.T) {
	s := New(Config{Token: "secret", SentinelPath: filepath.Join(t.TempDir(), "kill.sentinel")})
	if s.IsActive() {
		t.Fatal("want inactive with no sentinel file present")
	}
}

func TestSwitch_ActivateWritesSentinelAndSetsActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kill.sentinel")
	s := New(Config{Token: "secret", SentinelPath: path})

	if err := s.Activate("manual stop"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsActive() {
		t.Fatal("want active after Activate")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("want sentinel file on disk: %v", err)
	}
	if status := s.Status(); status.Reason != "manual stop" {
		t.Fatalf("want reason to surface, got %q", status.Reason)
	}
}

func TestSwitch_ActivatingTwiceKeepsFirstActivatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kill.sentinel")
	s := New(Config{Token: "secret", SentinelPath: path})

	if err := s.Activate("first reason"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstActivatedAt := s.Status().ActivatedAt

	time.Sleep(time.Millisecond)
	if err := s.Activate("second reason"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := s.Status()
	if !status.Active {
		t.Fatal("want still active after second Activate")
	}
	if !status.ActivatedAt.Equal(firstActivatedAt) {
		t.Fatalf("want activatedAt to stay %v, got %v", firstActivatedAt, status.ActivatedAt)
	}
	if status.Reason != "second reason" {
		t.Fatalf("want reason updated to latest activation, got %q", status.Reason)
	}
}

func TestSwitch_DeactivateRemovesSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kill.sentinel")
	s := New(Config{Token: "secret", SentinelPath: path})
	_ = s.Activate("manual stop")

	if err := s.Deactivate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsActive() {
		t.Fatal("want inactive after Deactivate")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("want sentinel file removed")
	}
}

func TestSwitch_StartsActiveWhenSentinelPreexists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kill.sentinel")
	if err := os.WriteFile(path, []byte("preexisting"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	s := New(Config{Token: "secret", SentinelPath: path})
	if !s.IsActive() {
		t.Fatal("want active at construction when sentinel already exists on disk")
	}
}

func TestSwitch_ValidateTokenConstantTime(t *testing.T) {
	s := New(Config{Token: "correct-horse"})
	if !s.ValidateToken("correct-horse") {
		t.Fatal("want valid token to authenticate")
	}
	if s.ValidateToken("wrong") {
		t.Fatal("want invalid token to fail")
	}
}

func TestSwitch_ValidateTokenFailsClosedWhenUnconfigured(t *testing.T) {
	s := New(Config{})
	if s.ValidateToken("") {
		t.Fatal("want empty candidate against empty configured token to fail closed")
	}
	if s.ValidateToken("anything") {
		t.Fatal("want any candidate to fail when no token is configured")
	}
}
