package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manash/cyberedit/pkg/models"
)

func TestNewStore_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CYBEREDIT_CONFIG_DIR", dir)

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.Path() != filepath.Join(dir, "keys.json") {
		t.Errorf("Path() = %q, want %q", store.Path(), filepath.Join(dir, "keys.json"))
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	dir := t.TempDir()
	store := NewStoreAt(dir)

	if err := store.Set(models.ProviderGemini, "  AIza-test-key-12345 "); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get(models.ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "AIza-test-key-12345" {
		t.Errorf("Get() = %q, want trimmed key", key)
	}

	key, err = store.Get(models.ProviderOpenAI)
	if err != nil || key != "" {
		t.Errorf("Get(absent) = %q, %v, want empty, nil", key, err)
	}

	if err := store.Delete(models.ProviderGemini); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(models.ProviderGemini); err == nil {
		t.Error("Delete(absent) error = nil, want error")
	}
}

func TestStore_SetEmpty(t *testing.T) {
	if err := NewStoreAt(t.TempDir()).Set(models.ProviderGemini, "   "); err == nil {
		t.Error("Set(blank) error = nil, want error")
	}
}

func TestStore_List(t *testing.T) {
	store := NewStoreAt(t.TempDir())

	providers, err := store.List()
	if err != nil || len(providers) != 0 {
		t.Fatalf("List() on empty dir = %v, %v", providers, err)
	}

	store.Set(models.ProviderOpenAI, "sk-1")
	store.Set(models.ProviderGemini, "g-1")

	providers, err = store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 2 || providers[0] != models.ProviderGemini || providers[1] != models.ProviderOpenAI {
		t.Errorf("List() = %v, want [gemini openai]", providers)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "keys.json"), []byte("{"), 0600)

	if _, err := NewStoreAt(dir).Get(models.ProviderGemini); err == nil {
		t.Error("Get() on corrupt keys.json error = nil, want error")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"AIzaSyExample1234", "AIza*********1234"},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestResolver_Priority(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	env := map[string]string{"GOOGLE_API_KEY": "env-google", "API_KEY": "env-generic"}
	r := &Resolver{Store: store, Getenv: func(k string) string { return env[k] }}

	key, source, err := r.Resolve("flag-key", models.ProviderGemini)
	if err != nil || key != "flag-key" || source != "command-line flag" {
		t.Errorf("Resolve(flag) = %q, %q, %v", key, source, err)
	}

	key, source, err = r.Resolve("", models.ProviderGemini)
	if err != nil || key != "env-google" || !strings.Contains(source, "GOOGLE_API_KEY") {
		t.Errorf("Resolve(env) = %q, %q, %v", key, source, err)
	}

	store.Set(models.ProviderGemini, "stored-key")
	key, source, err = r.Resolve("", models.ProviderGemini)
	if err != nil || key != "stored-key" || !strings.Contains(source, "keys.json") {
		t.Errorf("Resolve(stored) = %q, %q, %v", key, source, err)
	}
}

func TestResolver_Missing(t *testing.T) {
	r := &Resolver{Store: NewStoreAt(t.TempDir()), Getenv: func(string) string { return "" }}

	_, _, err := r.Resolve("", models.ProviderOpenAI)
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("Resolve() error = %v, want hint about OPENAI_API_KEY", err)
	}

	if _, _, err := r.Resolve("", "stability"); err == nil {
		t.Error("Resolve(unknown provider) error = nil, want error")
	}
}
