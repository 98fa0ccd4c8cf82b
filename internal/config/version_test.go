package config

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func testConfig(listen string) *Config {
	cfg := Default()
	cfg.Server.Listen = listen
	return cfg
}

func TestVersionManager_SaveAndCurrent(t *testing.T) {
	vm := NewVersionManager(10)
	if vm.Current() != nil {
		t.Fatal("expected no current version")
	}

	raw := []byte(`{"server":{"listen":":8080"}}`)
	vm.Save(testConfig(":8080"), raw)

	cur := vm.Current()
	if cur == nil {
		t.Fatal("expected current version, got nil")
	}
	if cur.Version != 1 {
		t.Errorf("expected version 1, got %d", cur.Version)
	}
	if cur.Config.Server.Listen != ":8080" {
		t.Errorf("expected listen :8080, got %s", cur.Config.Server.Listen)
	}
	sum := sha256.Sum256(raw)
	if cur.Hash != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected hash %s", cur.Hash)
	}
}

func TestVersionManager_SkipsUnchanged(t *testing.T) {
	vm := NewVersionManager(10)
	vm.Save(testConfig(":8080"), []byte("a"))
	vm.Save(testConfig(":8080"), []byte("a"))
	if vm.Len() != 1 {
		t.Fatalf("expected identical load to be folded, got %d versions", vm.Len())
	}
	vm.Save(testConfig(":8081"), []byte("b"))
	if vm.Len() != 2 || vm.Current().Version != 2 {
		t.Fatalf("expected version 2, got len=%d current=%d", vm.Len(), vm.Current().Version)
	}
}

func TestVersionManager_MaxHistory(t *testing.T) {
	vm := NewVersionManager(3)
	for i, raw := range []string{"a", "b", "c", "d", "e"} {
		vm.Save(testConfig(":80"+string(rune('0'+i))), []byte(raw))
	}

	list := vm.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(list))
	}
	if list[0].Version != 3 || list[2].Version != 5 {
		t.Errorf("expected versions 3..5, got %d..%d", list[0].Version, list[2].Version)
	}
}

func TestVersionManager_DefaultHistory(t *testing.T) {
	vm := NewVersionManager(0)
	for i := 0; i < 15; i++ {
		vm.Save(testConfig(":8080"), []byte{byte(i)})
	}
	if vm.Len() != 10 {
		t.Errorf("expected default history of 10, got %d", vm.Len())
	}
}
