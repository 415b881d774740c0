package browser

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"katari/internal/testutil"
)

func TestWaitForEnterConfirms(t *testing.T) {
	p := &Provider{input: strings.NewReader("\n"), logger: &testutil.DummyLogger{}}
	if err := p.waitForEnter(context.Background()); err != nil {
		t.Fatalf("waitForEnter: %v", err)
	}
}

func TestWaitForEnterTreatsEOFAsConfirmation(t *testing.T) {
	p := &Provider{input: strings.NewReader(""), logger: &testutil.DummyLogger{}}
	if err := p.waitForEnter(context.Background()); err != nil {
		t.Fatalf("waitForEnter on closed stdin = %v, want nil", err)
	}
}

func TestWaitForEnterHonorsCancellation(t *testing.T) {
	blocked, _ := io.Pipe()
	p := &Provider{input: blocked, logger: &testutil.DummyLogger{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.waitForEnter(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("waitForEnter after cancel = %v, want context.Canceled", err)
	}
}

func TestAcquireForceReauthDiscardsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state.json")
	if err := SaveAuthState(path, &AuthState{SavedAt: time.Now()}); err != nil {
		t.Fatalf("seeding state: %v", err)
	}

	// No base URL, so once the snapshot is gone the interactive flow cannot
	// start and Acquire reports the auth requirement instead of launching a
	// browser.
	p := NewProvider(ProviderConfig{StatePath: path}, &testutil.DummyLogger{})
	_, err := p.Acquire(context.Background(), true)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("Acquire = %v, want ErrAuthRequired", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("snapshot survived forceReauth: stat err = %v", err)
	}
}

func TestAcquireCorruptStateFallsBackToLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("seeding corrupt state: %v", err)
	}

	log := &testutil.DummyLogger{}
	p := NewProvider(ProviderConfig{StatePath: path}, log)
	_, err := p.Acquire(context.Background(), false)
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("Acquire = %v, want ErrAuthRequired", err)
	}
	if !log.Warned("unreadable") {
		t.Error("corrupt snapshot should be warned about")
	}
}
