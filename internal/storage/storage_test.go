package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"buyer_agent/internal/memory"
	"buyer_agent/internal/models"

	"github.com/shopspring/decimal"
)

func TestSaveAndLoadSessionState(t *testing.T) {
	dir := t.TempDir()

	m := memory.New()
	m.Record(models.RoundRecord{
		Round:         1,
		SellerPrice:   models.Price(decimal.NewFromInt(270000)),
		SellerMessage: "Seller opening ask: ₹270000",
		BuyerOffer:    models.Price(decimal.NewFromInt(160000)),
		BuyerAction:   models.ActionOffer,
	})

	err := SaveSessionState(dir, SessionState{SessionID: "01HZX", Scenario: "Easy Market", Memory: m.Export()})
	if err != nil {
		t.Fatalf("SaveSessionState failed: %v", err)
	}
	if _, err := os.Stat(StatePath(dir, "01HZX") + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temp file left behind")
	}

	s, found, err := LoadSessionState(dir, "01HZX")
	if err != nil || !found {
		t.Fatalf("LoadSessionState failed: found=%v err=%v", found, err)
	}
	if s.Version != StateVersion || s.LastSync == "" {
		t.Errorf("Unexpected header: version=%q last_sync=%q", s.Version, s.LastSync)
	}

	restored := memory.New()
	restored.Import(s.Memory)
	if !restored.LastOffer().Equal(decimal.NewFromInt(160000)) {
		t.Errorf("Expected last offer 160000, got %v", restored.LastOffer())
	}
}

func TestLoadSessionState_Missing(t *testing.T) {
	_, found, err := LoadSessionState(t.TempDir(), "nope")
	if err != nil || found {
		t.Errorf("Expected not found without error, got found=%v err=%v", found, err)
	}
}

func TestLoadSessionState_MigratesLegacy(t *testing.T) {
	dir := t.TempDir()

	// Legacy state: no version, no rounds counter, no last offer.
	legacyJSON := `{
		"session_id": "legacy",
		"memory": {
			"history": [
				{"round": 1, "seller_price": "225000", "seller_message": "ask", "buyer_offer": "112000", "buyer_action": "OFFER"},
				{"round": 2, "seller_price": "128800", "seller_message": "ask", "buyer_offer": "120400", "buyer_action": "OFFER"}
			]
		}
	}`
	if err := os.WriteFile(StatePath(dir, "legacy"), []byte(legacyJSON), 0644); err != nil {
		t.Fatalf("Failed to write legacy state: %v", err)
	}

	s, found, err := LoadSessionState(dir, "legacy")
	if err != nil || !found {
		t.Fatalf("LoadSessionState failed: %v", err)
	}
	if s.Version != "1.1" {
		t.Errorf("Expected version 1.1, got %s", s.Version)
	}
	if s.Memory.Rounds != 2 {
		t.Errorf("Expected rounds backfilled to 2, got %d", s.Memory.Rounds)
	}
	if s.Memory.LastOffer == nil || !s.Memory.LastOffer.Equal(decimal.NewFromInt(120400)) {
		t.Errorf("Expected last offer backfilled to 120400, got %v", s.Memory.LastOffer)
	}

	// Verify persistence (Load again)
	s2, _, err := LoadSessionState(dir, "legacy")
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if s2.Version != "1.1" {
		t.Errorf("Persisted version mismatch: got %s", s2.Version)
	}
}

func TestLoadSessionState_RejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(StatePath(dir, "future"), []byte(`{"version": "9.0", "session_id": "future"}`), 0644)

	if _, _, err := LoadSessionState(dir, "future"); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.10", "1.9", 1},
		{"1.9", "1.10", -1},
		{"2.0", "1.10", 1},
		{"", "1.1", -1},
		{"1", "1.0", 0},
		{"1.1", "1.1", 0},
	}
	for _, tt := range tests {
		got, err := compareVersions(tt.a, tt.b)
		if err != nil {
			t.Errorf("compareVersions(%q, %q) error: %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}

	if _, err := compareVersions("v1.x", "1.1"); err == nil {
		t.Error("Expected error for malformed version")
	}
}

func TestLoadSessionState_RejectsMalformedVersion(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(StatePath(dir, "odd"), []byte(`{"version": "one.two", "session_id": "odd"}`), 0644)

	if _, _, err := LoadSessionState(dir, "odd"); err == nil {
		t.Error("Expected error for malformed version")
	}
}

func TestSaveSessionState_RemovesTempFileOnFailure(t *testing.T) {
	dir := t.TempDir()

	// A non-empty directory where the state file should go makes the rename fail.
	blocker := StatePath(dir, "blocked")
	if err := os.MkdirAll(filepath.Join(blocker, "inner"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := SaveSessionState(dir, SessionState{SessionID: "blocked"}); err == nil {
		t.Fatal("Expected rename failure")
	}
	if _, err := os.Stat(blocker + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temp file left behind after failure: %v", err)
	}
}
