package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

func TestMain(m *testing.M) {
	logs.Init(logs.Options{Level: "error"})
	os.Exit(m.Run())
}

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	return NewGateway("", "", t.TempDir())
}

// TestGateway_FileOnlyUpsert verifies the guaranteed file backend serves
// the full device lifecycle without any database configured.
func TestGateway_FileOnlyUpsert(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	d, err := g.UpsertDevice(ctx, "aabbccddeeff", DeviceUpdate{ChipID: "chip-1", Firmware: "1.0.0"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if d.Name != "calc-deeff" || d.Model != models.DefaultModel {
		t.Errorf("defaults not applied: name=%q model=%q", d.Name, d.Model)
	}

	// second upsert with missing fields must not wipe stored values
	d, err = g.UpsertDevice(ctx, "aabbccddeeff", DeviceUpdate{Firmware: "1.1.0"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if d.ChipID != "chip-1" {
		t.Errorf("chip id wiped on partial update: %q", d.ChipID)
	}
	if d.Firmware != "1.1.0" {
		t.Errorf("firmware = %q", d.Firmware)
	}

	got, err := g.GetDevice(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Firmware != "1.1.0" {
		t.Errorf("persisted firmware = %q", got.Firmware)
	}
}

// TestGateway_UnreachableDBFallsBackToFiles: a configured but unreachable
// relational backend must not take the gateway down — operations keep
// flowing through the file store, and the DB is retried lazily.
func TestGateway_UnreachableDBFallsBackToFiles(t *testing.T) {
	// порт 1 — connection refused сразу, без таймаута
	g := NewGateway("postgres", "postgres://u:p@127.0.0.1:1/fleet?sslmode=disable", t.TempDir())
	ctx := context.Background()

	if !g.Configured() {
		t.Fatal("gateway with a driver must report configured")
	}
	if g.State() != Disconnected {
		t.Fatalf("state = %v, want Disconnected", g.State())
	}

	d, err := g.UpsertDevice(ctx, "aabbccddeeff", DeviceUpdate{Firmware: "1.0.0"})
	if err != nil {
		t.Fatalf("upsert with dead db: %v", err)
	}
	if d.Firmware != "1.0.0" {
		t.Errorf("firmware = %q", d.Firmware)
	}

	got, err := g.GetDevice(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("get with dead db: %v", err)
	}
	if got.Firmware != "1.0.0" {
		t.Errorf("persisted firmware = %q", got.Firmware)
	}

	list, err := g.ListDevices(ctx)
	if err != nil {
		t.Fatalf("list with dead db: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list len = %d, want 1", len(list))
	}
	if g.State() != Disconnected {
		t.Error("dead db must stay Disconnected after operations")
	}
}

func TestGateway_GetDeviceNotFound(t *testing.T) {
	g := newTestGateway(t)
	if _, err := g.GetDevice(context.Background(), "000000000000"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGateway_ListOrdersByLastSeen(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	for _, mac := range []string{"aaaaaaaaaa01", "aaaaaaaaaa02", "aaaaaaaaaa03"} {
		if _, err := g.UpsertDevice(ctx, mac, DeviceUpdate{}); err != nil {
			t.Fatalf("upsert %s: %v", mac, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	list, err := g.ListDevices(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].MAC != "aaaaaaaaaa03" {
		t.Errorf("most recent first, got %q", list[0].MAC)
	}
}

func TestGateway_PairCodeRoundTrip(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	if err := g.SetPairCode(ctx, "aabbccddeeff", "abc123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	code, err := g.PairCode(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if code != "ABC123" {
		t.Errorf("codes are stored upper-case, got %q", code)
	}

	// resolve is case-insensitive
	mac, err := g.ResolvePairCode(ctx, "abc123")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mac != "aabbccddeeff" {
		t.Errorf("resolved mac = %q", mac)
	}
	if _, err := g.ResolvePairCode(ctx, "ZZZZZZ"); err != ErrNotFound {
		t.Errorf("unknown code: want ErrNotFound, got %v", err)
	}
}

func TestGateway_OwnerRoundTrip(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	if owner, err := g.DeviceOwner(ctx, "aabbccddeeff"); err != nil || owner != "" {
		t.Fatalf("fresh device: owner=%q err=%v", owner, err)
	}
	if err := g.SetDeviceOwner(ctx, "aabbccddeeff", "alice"); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	owner, err := g.DeviceOwner(ctx, "aabbccddeeff")
	if err != nil || owner != "alice" {
		t.Fatalf("owner=%q err=%v", owner, err)
	}
	macs, err := g.AccountDevices(ctx, "alice")
	if err != nil {
		t.Fatalf("account devices: %v", err)
	}
	if len(macs) != 1 || macs[0] != "aabbccddeeff" {
		t.Errorf("macs = %v", macs)
	}
}

func TestGateway_NotesRoundTrip(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	if text, err := g.Notes(ctx, "aabbccddeeff"); err != nil || text != "" {
		t.Fatalf("fresh notes: %q %v", text, err)
	}
	if err := g.SetNotes(ctx, "aabbccddeeff", "hello", false); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := g.SetNotes(ctx, "aabbccddeeff", "world", true); err != nil {
		t.Fatalf("append: %v", err)
	}
	text, err := g.Notes(ctx, "aabbccddeeff")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if text != "hello\nworld" {
		t.Errorf("text = %q", text)
	}
	if err := g.DeleteNotes(ctx, "aabbccddeeff"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if text, _ := g.Notes(ctx, "aabbccddeeff"); text != "" {
		t.Errorf("notes survived delete: %q", text)
	}
}

func TestGateway_AccountRoundTrip(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	if _, err := g.Account(ctx, "alice"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	now := time.Now().UTC()
	if err := g.SaveAccount(ctx, &models.Account{Username: "alice", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("save: %v", err)
	}
	acc, err := g.Account(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.PasswordHash != "x" {
		t.Errorf("hash = %q", acc.PasswordHash)
	}
}

// TestGateway_FilesOnDisk checks the on-disk layout the service is expected
// to leave behind, so an operator can inspect it by hand.
func TestGateway_FilesOnDisk(t *testing.T) {
	dir := t.TempDir()
	g := NewGateway("", "", dir)
	ctx := context.Background()

	if _, err := g.UpsertDevice(ctx, "aabbccddeeff", DeviceUpdate{}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := g.SetNotes(ctx, "aabbccddeeff", "n", false); err != nil {
		t.Fatalf("notes: %v", err)
	}

	for _, p := range []string{"devices.json", filepath.Join("notes", "aabbccddeeff.txt")} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("expected %s on disk: %v", p, err)
		}
	}
}
