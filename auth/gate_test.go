package auth

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestStaticGate(t *testing.T) {
	for _, state := range []State{NotDetermined, Authorized, Denied, Restricted} {
		got, err := Static(state).Request(context.Background())
		if err != nil {
			t.Fatalf("static gate returned error: %v", err)
		}
		if got != state {
			t.Errorf("static gate = %v, want %v", got, state)
		}
	}
}

func TestPromptGateEnvGrant(t *testing.T) {
	t.Setenv(ConsentEnv, "granted")
	gate := NewPromptGate(log.New(io.Discard))
	state, err := gate.Request(context.Background())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if state != Authorized {
		t.Errorf("state = %v, want %v", state, Authorized)
	}
}

func TestPromptGateEnvDeny(t *testing.T) {
	t.Setenv(ConsentEnv, "denied")
	gate := NewPromptGate(log.New(io.Discard))
	state, err := gate.Request(context.Background())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if state != Denied {
		t.Errorf("state = %v, want %v", state, Denied)
	}
}

func TestPromptGateResolvesOnce(t *testing.T) {
	t.Setenv(ConsentEnv, "granted")
	gate := NewPromptGate(log.New(io.Discard))
	if _, err := gate.Request(context.Background()); err != nil {
		t.Fatalf("request: %v", err)
	}

	// A changed environment must not flip an already-resolved gate.
	t.Setenv(ConsentEnv, "denied")
	state, err := gate.Request(context.Background())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if state != Authorized {
		t.Errorf("second request = %v, want memoized %v", state, Authorized)
	}
}
