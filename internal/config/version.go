package config

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Version is one successfully loaded configuration.
type Version struct {
	Version  int       `json:"version" yaml:"version"`
	Hash     string    `json:"hash" yaml:"hash"`
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
	Config   *Config   `json:"-" yaml:"-"`
}

// VersionManager keeps a bounded history of loaded configurations.
type VersionManager struct {
	mu         sync.Mutex
	versions   []Version
	maxHistory int
	nextVer    int
	now        func() time.Time
}

// NewVersionManager creates a new VersionManager. If maxHistory <= 0, defaults to 10.
func NewVersionManager(maxHistory int) *VersionManager {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &VersionManager{maxHistory: maxHistory, now: time.Now}
}

// Save records cfg with the SHA-256 of its encoded form. A load whose hash
// matches the current version is not recorded again.
func (vm *VersionManager) Save(cfg *Config, raw []byte) Version {
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if n := len(vm.versions); n > 0 && vm.versions[n-1].Hash == hash {
		vm.versions[n-1].Config = cfg
		return vm.versions[n-1]
	}

	vm.nextVer++
	v := Version{Version: vm.nextVer, Hash: hash, LoadedAt: vm.now(), Config: cfg}
	vm.versions = append(vm.versions, v)
	if len(vm.versions) > vm.maxHistory {
		vm.versions = vm.versions[len(vm.versions)-vm.maxHistory:]
	}
	return v
}

// Current returns the latest version, or nil if none exist.
func (vm *VersionManager) Current() *Version {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if len(vm.versions) == 0 {
		return nil
	}
	v := vm.versions[len(vm.versions)-1]
	return &v
}

// List returns the history, newest last.
func (vm *VersionManager) List() []Version {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	out := make([]Version, len(vm.versions))
	copy(out, vm.versions)
	return out
}

// Len returns the number of stored versions.
func (vm *VersionManager) Len() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.versions)
}
