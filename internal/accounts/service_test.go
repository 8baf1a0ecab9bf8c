package accounts

import (
	"context"
	"errors"
	"os"
	"testing"

	"calcfleet/internal/logs"
	"calcfleet/internal/pairing"
	"calcfleet/internal/repo"
)

func TestMain(m *testing.M) {
	logs.Init(logs.Options{Level: "error"})
	os.Exit(m.Run())
}

func TestHashVerifyPassword(t *testing.T) {
	h := HashPassword("s3cret")
	if !VerifyPassword(h, "s3cret") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(h, "wrong") {
		t.Error("wrong password accepted")
	}
	if VerifyPassword("garbage", "s3cret") {
		t.Error("malformed hash accepted")
	}
	// new salt per hash
	if h == HashPassword("s3cret") {
		t.Error("hashes must be salted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := signToken(secret, "alice", []string{"aabbccddeeff"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := parseToken(secret, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Username != "alice" || len(claims.Macs) != 1 || claims.Macs[0] != "aabbccddeeff" {
		t.Errorf("claims = %+v", claims)
	}
	if _, err := parseToken([]byte("other-secret"), tok); err == nil {
		t.Error("token verified with the wrong secret")
	}
}

func newTestService(t *testing.T) (*Service, *pairing.Service) {
	t.Helper()
	g := repo.NewGateway("", "", t.TempDir())
	pair := pairing.New(g, pairing.NewTokenTable(0))
	return New(g, pair, "test-secret"), pair
}

func TestRegisterLoginFlow(t *testing.T) {
	svc, pair := newTestService(t)
	ctx := context.Background()

	code, err := pair.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tok, err := svc.Register(ctx, " Alice ", "pw", code)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	username, macs, err := svc.VerifyToken(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if username != "alice" {
		t.Errorf("username = %q", username)
	}
	if len(macs) != 1 || macs[0] != "aabbccddeeff" {
		t.Errorf("macs = %v", macs)
	}

	if _, err := svc.Login(ctx, "alice", "pw"); err != nil {
		t.Errorf("login: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "nope"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("bad password: %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "pw"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown user: %v", err)
	}

	// registering again with the right password acts as login
	if _, err := svc.Register(ctx, "alice", "pw", ""); err != nil {
		t.Errorf("re-register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "nope", ""); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("re-register wrong password: %v", err)
	}
}

func TestRegister_ClaimConflict(t *testing.T) {
	svc, pair := newTestService(t)
	ctx := context.Background()

	code, err := pair.Issue(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "pw", code); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "mallory", "pw2", code); !errors.Is(err, pairing.ErrAlreadyClaimed) {
		t.Fatalf("want ErrAlreadyClaimed, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	temp, err := svc.ResetPassword(ctx, "alice")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if temp == "" {
		t.Fatal("empty temp password")
	}
	if _, err := svc.Login(ctx, "alice", "pw"); !errors.Is(err, ErrBadCredentials) {
		t.Error("old password still works")
	}
	if _, err := svc.Login(ctx, "alice", temp); err != nil {
		t.Errorf("temp password rejected: %v", err)
	}

	if _, err := svc.ResetPassword(ctx, "nobody"); !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("unknown account: %v", err)
	}
}
