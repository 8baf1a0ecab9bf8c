package notes

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"calcfleet/internal/logs"
	"calcfleet/internal/repo"
)

func TestMain(m *testing.M) {
	logs.Init(logs.Options{Level: "error"})
	os.Exit(m.Run())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(repo.NewGateway("", "", t.TempDir()))
}

func TestSetGetDelete(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if text, err := s.Get(ctx, "AA:BB:CC:DD:EE:FF"); err != nil || text != "" {
		t.Fatalf("fresh: %q %v", text, err)
	}
	if _, err := s.Set(ctx, "aabbccddeeff", "hello", false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := s.Set(ctx, "AA:BB:CC:DD:EE:FF", "world", true); err != nil {
		t.Fatalf("append: %v", err)
	}
	text, err := s.Get(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if text != "hello\nworld" {
		t.Errorf("text = %q", text)
	}
	if err := s.Delete(ctx, "aabbccddeeff"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if text, _ := s.Get(ctx, "aabbccddeeff"); text != "" {
		t.Errorf("survived delete: %q", text)
	}
}

func TestSet_BadMAC(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Set(context.Background(), "::", "x", false); !errors.Is(err, repo.ErrBadInput) {
		t.Fatalf("want ErrBadInput, got %v", err)
	}
}

// TestTailCap checks that oversized notes keep the most recent tail.
func TestTailCap(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	big := strings.Repeat("a", maxNoteBytes)
	if _, err := s.Set(ctx, "aabbccddeeff", big, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Set(ctx, "aabbccddeeff", "tail-marker", true)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got) > maxNoteBytes {
		t.Errorf("length = %d, cap %d", len(got), maxNoteBytes)
	}
	if !strings.HasSuffix(got, "tail-marker") {
		t.Error("newest text must survive the cap")
	}
	if strings.HasPrefix(got, "a") && len(got) == maxNoteBytes+len("\ntail-marker") {
		t.Error("old head not trimmed")
	}
}

func TestCapTail_RuneBoundary(t *testing.T) {
	// "яя" is 4 bytes; cutting at 3 must not leave half a rune
	if got := capTail("яя", 3); got != "я" {
		t.Errorf("capTail = %q", got)
	}
}
