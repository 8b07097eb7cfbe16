package provider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/manash/cyberedit/pkg/models"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrAPIKeyRequired    = errors.New("API key is required")
	ErrGenerationFailed  = errors.New("image generation failed")
	ErrNoImage           = errors.New("AI did not return an image. Please try a different prompt")
)

// Editor is the external generation service: one (image, instruction)
// pair in, one image out. A response without an image is reported as an
// error wrapping both ErrGenerationFailed and ErrNoImage.
type Editor interface {
	Name() models.ProviderType
	Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error)
	SupportsModel(model string) bool
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	TimeoutSec int
	Logger     *zap.Logger
}

// Log returns the configured logger or a no-op one.
func (c *Config) Log() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// NoImage is the error editors return when the service answered without
// image data.
func NoImage(detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, ErrNoImage)
	}
	return fmt.Errorf("%w: %w (%s)", ErrGenerationFailed, ErrNoImage, detail)
}

type Factory struct {
	registry  *models.ModelRegistry
	configs   map[models.ProviderType]*Config
	providers map[models.ProviderType]Editor
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{
		registry:  registry,
		configs:   make(map[models.ProviderType]*Config),
		providers: make(map[models.ProviderType]Editor),
	}
}

func (f *Factory) Configure(providerType models.ProviderType, cfg *Config) {
	f.configs[providerType] = cfg
}

func (f *Factory) GetConfig(providerType models.ProviderType) (*Config, bool) {
	cfg, ok := f.configs[providerType]
	return cfg, ok
}

func (f *Factory) Register(editor Editor) {
	f.providers[editor.Name()] = editor
}

func (f *Factory) Get(providerType models.ProviderType) (Editor, error) {
	editor, ok := f.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}
	return editor, nil
}

func (f *Factory) GetForModel(model string) (Editor, error) {
	cap, ok := f.registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}
	if !cap.SupportsEdit {
		return nil, fmt.Errorf("%w: %s", models.ErrEditNotSupported, model)
	}

	editor, ok := f.providers[cap.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (required by model %s)", ErrProviderNotFound, cap.Provider, model)
	}

	return editor, nil
}

func (f *Factory) ListProviders() []models.ProviderType {
	types := make([]models.ProviderType, 0, len(f.providers))
	for t := range f.providers {
		types = append(types, t)
	}
	return types
}
