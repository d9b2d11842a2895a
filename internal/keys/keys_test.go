package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewStore(t *testing.T) {
	t.Setenv("STAGECRAFT_CONFIG_DIR", t.TempDir())

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.Path() == "" {
		t.Error("Store.Path() should not be empty")
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	tmpDir := t.TempDir()
	store := &Store{configDir: tmpDir}

	if err := store.Set(ProviderGemini, "AIza-test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// The key file must not be world-readable.
	info, err := os.Stat(filepath.Join(tmpDir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get(ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "AIza-test-key-12345" {
		t.Errorf("Get() = %v, want AIza-test-key-12345", key)
	}

	// A provider with no stored key is not an error.
	key, err = store.Get("other")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "" {
		t.Errorf("Get(non-existent) = %v, want empty string", key)
	}

	exists, err := store.Exists(ProviderGemini)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists(gemini) = false, want true")
	}

	if err := store.Delete(ProviderGemini); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if key, _ := store.Get(ProviderGemini); key != "" {
		t.Errorf("Get() after Delete() = %v, want empty string", key)
	}

	if err := store.Delete("other"); err == nil {
		t.Error("Delete(non-existent) should return error")
	}
}

func TestStore_EmptyDir(t *testing.T) {
	store := &Store{configDir: t.TempDir()}

	key, err := store.Get(ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "" {
		t.Errorf("Get() from non-existent file = %v, want empty string", key)
	}

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 0 {
		t.Errorf("List() from non-existent file = %v, want empty slice", providers)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"AIza567890abcdefgh", "AIza**********efgh"},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKey_Priority(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("STAGECRAFT_CONFIG_DIR", tmpDir)
	t.Setenv(EnvAPIKey, "")

	// Explicit key wins over everything.
	key, source, err := GetAPIKey("explicit-key", ProviderGemini, EnvAPIKey)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "explicit-key" || source != "command-line flag" {
		t.Errorf("GetAPIKey() = %q from %q, want explicit key", key, source)
	}

	// Stored key beats the environment.
	store := &Store{configDir: tmpDir}
	if err := store.Set(ProviderGemini, "stored-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Setenv(EnvAPIKey, "env-key")
	key, _, err = GetAPIKey("", ProviderGemini, EnvAPIKey)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "stored-key" {
		t.Errorf("GetAPIKey() = %q, want stored key", key)
	}

	// Environment is the last fallback.
	if err := store.Delete(ProviderGemini); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	key, source, err = GetAPIKey("", ProviderGemini, EnvAPIKey)
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "env-key" {
		t.Errorf("GetAPIKey() = %q from %q, want env key", key, source)
	}

	// Nothing anywhere is an error.
	t.Setenv(EnvAPIKey, "")
	if _, _, err := GetAPIKey("", ProviderGemini, EnvAPIKey); err == nil {
		t.Error("GetAPIKey() with no key anywhere should fail")
	}
}
