// Package keys stores provider API keys in keys.json and resolves the key
// a command should use.
package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/manash/cyberedit/pkg/models"
)

var ErrKeyNotFound = errors.New("no key stored")

// Store reads and writes keys.json in the user's config directory.
type Store struct {
	configDir string
}

type entry struct {
	Key string `json:"key"`
}

func NewStore() (*Store, error) {
	configDir, err := configDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: configDir}, nil
}

// NewStoreAt keeps keys.json in dir.
func NewStoreAt(dir string) *Store {
	return &Store{configDir: dir}
}

func configDir() (string, error) {
	if dir := os.Getenv("CYBEREDIT_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "cyberedit"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "cyberedit"), nil
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "cyberedit"), nil
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (map[models.ProviderType]entry, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[models.ProviderType]entry), nil
		}
		return nil, err
	}

	keys := make(map[models.ProviderType]entry)
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	return keys, nil
}

func (s *Store) save(keys map[models.ProviderType]entry) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// owner read/write only
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

func (s *Store) Set(provider models.ProviderType, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("key cannot be empty")
	}

	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[provider] = entry{Key: key}
	return s.save(keys)
}

// Get returns the stored key, or "" when none is stored.
func (s *Store) Get(provider models.ProviderType) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[provider].Key, nil
}

func (s *Store) Delete(provider models.ProviderType) error {
	keys, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := keys[provider]; !ok {
		return fmt.Errorf("%w for %s", ErrKeyNotFound, provider)
	}
	delete(keys, provider)
	return s.save(keys)
}

// List returns the providers with a stored key, sorted.
func (s *Store) List() ([]models.ProviderType, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}
	providers := make([]models.ProviderType, 0, len(keys))
	for p := range keys {
		providers = append(providers, p)
	}
	slices.Sort(providers)
	return providers, nil
}

// MaskKey hides all but the first and last four characters.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// EnvVars lists the environment variables checked for a provider's key,
// in priority order.
func EnvVars(provider models.ProviderType) []string {
	switch provider {
	case models.ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY"}
	case models.ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	}
	return nil
}

// Resolver finds the API key for a provider: an explicit flag first, then
// keys.json, then the environment.
type Resolver struct {
	Store  *Store
	Getenv func(string) string
}

// Resolve returns the key and a description of where it came from.
func (r *Resolver) Resolve(explicit string, provider models.ProviderType) (key, source string, err error) {
	if explicit != "" {
		return explicit, "command-line flag", nil
	}

	if r.Store != nil {
		if stored, err := r.Store.Get(provider); err == nil && stored != "" {
			return stored, "stored key (" + r.Store.Path() + ")", nil
		}
	}

	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	vars := EnvVars(provider)
	for _, name := range vars {
		if v := getenv(name); v != "" {
			return v, "environment variable (" + name + ")", nil
		}
	}

	if len(vars) == 0 {
		return "", "", fmt.Errorf("unknown provider %q", provider)
	}
	return "", "", fmt.Errorf("API key required: run 'cyberedit keys set %s' or set %s", provider, vars[0])
}
