package repo

import (
	"testing"
	"time"

	"calcfleet/internal/models"
)

func TestNormalizeMAC(t *testing.T) {
	cases := map[string]string{
		"AA:BB:CC:DD:EE:FF": "aabbccddeeff",
		"aa-bb-cc-dd-ee-ff": "aabbccddeeff",
		"aabbccddeeff":      "aabbccddeeff",
		"  AA BB ":          "aabb",
		"::::":              "",
	}
	for in, want := range cases {
		if got := NormalizeMAC(in); got != want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestMergeDevice_CoalesceKeepsExisting verifies that an empty field in the
// update never wipes a previously stored value.
func TestMergeDevice_CoalesceKeepsExisting(t *testing.T) {
	now := time.Now().UTC()
	existing := models.Device{
		MAC:      "aabbccddeeff",
		ChipID:   "chip-1",
		Model:    "ESP32",
		Firmware: "1.0.0",
		Name:     "calc-deeff",
	}

	merged := MergeDevice(existing, DeviceUpdate{Firmware: "1.1.0"}, now)

	if merged.ChipID != "chip-1" {
		t.Errorf("ChipID wiped: %q", merged.ChipID)
	}
	if merged.Name != "calc-deeff" {
		t.Errorf("Name wiped: %q", merged.Name)
	}
	if merged.Firmware != "1.1.0" {
		t.Errorf("Firmware not updated: %q", merged.Firmware)
	}
	if merged.LastSeen == nil || !merged.LastSeen.Equal(now) {
		t.Errorf("LastSeen not touched: %v", merged.LastSeen)
	}
}

func TestMergeDevice_FirstSeenSetOnce(t *testing.T) {
	now := time.Now().UTC()
	merged := MergeDevice(models.Device{MAC: "aabbccddeeff"}, DeviceUpdate{}, now)
	if merged.FirstSeen == nil || !merged.FirstSeen.Equal(now) {
		t.Fatalf("FirstSeen should default to now, got %v", merged.FirstSeen)
	}

	later := now.Add(time.Hour)
	merged2 := MergeDevice(merged, DeviceUpdate{}, later)
	if !merged2.FirstSeen.Equal(now) {
		t.Errorf("FirstSeen must be immutable, got %v", merged2.FirstSeen)
	}
}

func TestNewDevice_Defaults(t *testing.T) {
	now := time.Now().UTC()
	d := NewDevice("aabbccddeeff", now)
	if d.Model != models.DefaultModel {
		t.Errorf("Model = %q, want %q", d.Model, models.DefaultModel)
	}
	if d.Name != "calc-deeff" {
		t.Errorf("Name = %q, want calc-deeff", d.Name)
	}
	if d.Status != models.DeviceStatusOnline {
		t.Errorf("Status = %q", d.Status)
	}
}
