package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func fail() error { return errUpstream }
func ok() error   { return nil }

func TestBreaker_StartsClosed(t *testing.T) {
	b := New("test-start", Config{FailureThreshold: 3, HalfOpenRequests: 1, OpenTimeout: time.Second})
	if b.State() != "closed" {
		t.Fatalf("expected closed, got %s", b.State())
	}
	if b.Name() != "test-start" {
		t.Fatalf("unexpected name %q", b.Name())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New("test-open", Config{FailureThreshold: 3, HalfOpenRequests: 1, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		if err := b.Execute(fail); !errors.Is(err, errUpstream) {
			t.Fatalf("expected upstream error, got %v", err)
		}
	}
	if b.State() != "closed" {
		t.Fatalf("expected closed after 2 failures, got %s", b.State())
	}

	_ = b.Execute(fail)
	if b.State() != "open" {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || !IsOpen(err) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatal("function must not run while open")
	}
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	b := New("test-reset", Config{FailureThreshold: 2, HalfOpenRequests: 1, OpenTimeout: time.Minute})

	_ = b.Execute(fail)
	_ = b.Execute(ok)
	_ = b.Execute(fail)
	if b.State() != "closed" {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestBreaker_HalfOpenThenClosed(t *testing.T) {
	b := New("test-recover", Config{FailureThreshold: 1, HalfOpenRequests: 1, OpenTimeout: 50 * time.Millisecond})

	_ = b.Execute(fail)
	if b.State() != "open" {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(70 * time.Millisecond)
	if b.State() != "half-open" {
		t.Fatalf("expected half-open after timeout, got %s", b.State())
	}
	if err := b.Execute(ok); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("expected closed after successful probe, got %s", b.State())
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	b := New("test-defaults", Config{})
	for i := 0; i < int(DefaultConfig().FailureThreshold)-1; i++ {
		_ = b.Execute(fail)
	}
	if b.State() != "closed" {
		t.Fatalf("expected default threshold to keep circuit closed, got %s", b.State())
	}
}
