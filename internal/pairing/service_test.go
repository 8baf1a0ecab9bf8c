package pairing

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
	return New(repo.NewGateway("", "", t.TempDir()), NewTokenTable(0))
}

func TestIssue_Idempotent(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != codeLength {
		t.Fatalf("code length = %d", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", code, r)
		}
	}

	again, err := s.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if again != code {
		t.Errorf("issue must be read-or-create: %q != %q", again, code)
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	mac, claimed, err := s.Resolve(ctx, strings.ToLower(code))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mac != "aabbccddeeff" || claimed {
		t.Errorf("mac=%q claimed=%v", mac, claimed)
	}
}

func TestRotate_InvalidatesOldCode(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	old, err := s.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, token, err := s.ClaimWeb(ctx, old)
	if err != nil {
		t.Fatalf("claim web: %v", err)
	}
	if err := s.g.SetNotes(ctx, "aabbccddeeff", "secret", false); err != nil {
		t.Fatalf("notes: %v", err)
	}

	fresh, err := s.Rotate(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if fresh == old {
		t.Error("rotate returned the same code")
	}
	if _, _, err := s.Resolve(ctx, old); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("old code still resolves: %v", err)
	}
	if mac, _, err := s.Resolve(ctx, fresh); err != nil || mac != "aabbccddeeff" {
		t.Errorf("fresh code broken: mac=%q err=%v", mac, err)
	}
	if s.tokens.Lookup(token) != "" {
		t.Error("web token survived rotation")
	}
	if notes, _ := s.g.Notes(ctx, "aabbccddeeff"); notes != "" {
		t.Errorf("notes survived rotation: %q", notes)
	}
}

func TestClaim_Conflict(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	code, err := s.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.Claim(ctx, code, "alice"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// same account again: fine
	if _, err := s.Claim(ctx, code, "alice"); err != nil {
		t.Fatalf("repeat claim by owner: %v", err)
	}
	// different account: conflict
	if _, err := s.Claim(ctx, code, "mallory"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("want ErrAlreadyClaimed, got %v", err)
	}

	// a rotated-away code must not claim anything
	if _, err := s.Rotate(ctx, "aabbccddeeff"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := s.Claim(ctx, code, "mallory"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("rotated-away code must not resolve: %v", err)
	}
}

func TestClaim_UnknownCode(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Claim(context.Background(), "ZZZZZZ", "alice"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
