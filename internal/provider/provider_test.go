package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/manash/cyberedit/pkg/models"
)

type mockEditor struct {
	name            models.ProviderType
	supportedModels []string
}

func (m *mockEditor) Name() models.ProviderType {
	return m.name
}

func (m *mockEditor) Edit(_ context.Context, _ *models.EditRequest) (*models.Response, error) {
	return &models.Response{}, nil
}

func (m *mockEditor) SupportsModel(model string) bool {
	for _, s := range m.supportedModels {
		if s == model {
			return true
		}
	}
	return false
}

func TestNewFactory(t *testing.T) {
	registry := models.NewModelRegistry()
	factory := NewFactory(registry)

	if factory == nil {
		t.Fatal("NewFactory() returned nil")
	}
	if factory.registry != registry {
		t.Error("NewFactory() registry not set correctly")
	}
	if factory.configs == nil || factory.providers == nil {
		t.Error("NewFactory() maps not initialized")
	}
}

func TestFactory_Configure(t *testing.T) {
	factory := NewFactory(models.NewModelRegistry())
	cfg := &Config{APIKey: "test-key", TimeoutSec: 30}

	factory.Configure(models.ProviderGemini, cfg)

	got, ok := factory.GetConfig(models.ProviderGemini)
	if !ok {
		t.Fatal("GetConfig() returned false after Configure()")
	}
	if got != cfg {
		t.Error("GetConfig() returned different config")
	}

	if _, ok := factory.GetConfig(models.ProviderOpenAI); ok {
		t.Error("GetConfig() returned true for unconfigured provider")
	}
}

func TestFactory_RegisterAndGet(t *testing.T) {
	factory := NewFactory(models.DefaultRegistry())
	gemini := &mockEditor{name: models.ProviderGemini}
	factory.Register(gemini)

	got, err := factory.Get(models.ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != gemini {
		t.Error("Get() returned different editor")
	}

	_, err = factory.Get(models.ProviderOpenAI)
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get(openai) error = %v, want ErrProviderNotFound", err)
	}

	if n := len(factory.ListProviders()); n != 1 {
		t.Errorf("ListProviders() returned %d, want 1", n)
	}
}

func TestFactory_GetForModel(t *testing.T) {
	registry := models.DefaultRegistry()
	registry.Register(&models.ModelCapabilities{Name: "view-only", Provider: models.ProviderGemini})

	factory := NewFactory(registry)
	factory.Register(&mockEditor{name: models.ProviderGemini})

	if _, err := factory.GetForModel("gemini-2.5-flash-image-preview"); err != nil {
		t.Errorf("GetForModel(gemini) error = %v", err)
	}

	_, err := factory.GetForModel("gpt-image-1")
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("GetForModel(gpt-image-1) error = %v, want ErrProviderNotFound", err)
	}

	_, err = factory.GetForModel("unknown")
	if !errors.Is(err, ErrModelNotSupported) {
		t.Errorf("GetForModel(unknown) error = %v, want ErrModelNotSupported", err)
	}

	_, err = factory.GetForModel("view-only")
	if !errors.Is(err, models.ErrEditNotSupported) {
		t.Errorf("GetForModel(view-only) error = %v, want ErrEditNotSupported", err)
	}
}

func TestNoImage(t *testing.T) {
	err := NoImage("")
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, ErrNoImage) {
		t.Errorf("NoImage() = %v, want both sentinels", err)
	}

	err = NoImage("finish reason SAFETY")
	if !strings.Contains(err.Error(), "SAFETY") {
		t.Errorf("NoImage(detail) = %q, want detail", err.Error())
	}
}

func TestConfig_Log(t *testing.T) {
	var cfg *Config
	if cfg.Log() == nil {
		t.Error("nil Config.Log() returned nil")
	}
	if (&Config{}).Log() == nil {
		t.Error("empty Config.Log() returned nil")
	}
}
