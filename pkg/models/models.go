package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrNoImageData         = errors.New("image data is required for editing")
	ErrEditNotSupported    = errors.New("image editing not supported by model")
	ErrInvalidQuality      = errors.New("invalid quality tier")
	ErrInvalidPromptMode   = errors.New("invalid prompt mode")
	ErrUnsupportedLocale   = errors.New("unsupported locale")
	ErrUnknownOutputFormat = errors.New("unknown output format")
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

// QualityTier is a label embedded in the edit instruction. It does not
// control the pixel dimensions of the output.
type QualityTier string

const (
	QualityStandard QualityTier = "1080p"
	QualityHD       QualityTier = "2K"
	QualityFourK    QualityTier = "4K"
	QualityEightK   QualityTier = "8K"
)

const DefaultQuality = QualityFourK

func QualityTiers() []QualityTier {
	return []QualityTier{QualityStandard, QualityHD, QualityFourK, QualityEightK}
}

func (q QualityTier) IsValid() bool {
	return slices.Contains(QualityTiers(), q)
}

func (q QualityTier) String() string {
	return string(q)
}

func (q QualityTier) Label() string {
	switch q {
	case QualityStandard:
		return "Standard (1080p)"
	case QualityHD:
		return "HD (2K)"
	case QualityEightK:
		return "8K (Ultra)"
	default:
		return string(q)
	}
}

// ParseQualityTier accepts the tier value ("4K") or a case-insensitive
// alias ("standard", "hd", "4k", "8k").
func ParseQualityTier(s string) (QualityTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1080p", "standard":
		return QualityStandard, nil
	case "2k", "hd":
		return QualityHD, nil
	case "4k", "fourk":
		return QualityFourK, nil
	case "8k", "eightk", "ultra":
		return QualityEightK, nil
	}
	return "", fmt.Errorf("%w: %q not in %v", ErrInvalidQuality, s, QualityTiers())
}

type PromptMode string

const (
	PromptSingle PromptMode = "single"
	PromptBatch  PromptMode = "batch"
)

func ParsePromptMode(s string) (PromptMode, error) {
	switch PromptMode(strings.ToLower(strings.TrimSpace(s))) {
	case PromptSingle:
		return PromptSingle, nil
	case PromptBatch:
		return PromptBatch, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPromptMode, s)
}

type Locale string

const (
	LocaleEN Locale = "EN"
	LocaleVI Locale = "VI"
)

const DefaultLocale = LocaleEN

func Locales() []Locale {
	return []Locale{LocaleEN, LocaleVI}
}

func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Locales(), l) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLocale, s)
	}
	return l, nil
}

type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
	FormatWebP OutputFormat = "webp"
)

func ValidFormats() []OutputFormat {
	return []OutputFormat{FormatPNG, FormatJPEG, FormatWebP}
}

func (f OutputFormat) IsValid() bool {
	return slices.Contains(ValidFormats(), f)
}

func (f OutputFormat) String() string {
	return string(f)
}

func (f OutputFormat) MIMEType() string {
	return "image/" + string(f)
}

// FormatFromMIME maps an image content type to an output format.
func FormatFromMIME(mimeType string) (OutputFormat, error) {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return FormatPNG, nil
	case "image/jpeg", "image/jpg":
		return FormatJPEG, nil
	case "image/webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOutputFormat, mimeType)
}

// EditRequest is one (image, instruction) pair sent to an editing backend.
type EditRequest struct {
	Image       Image
	Instruction string
	Model       string
}

func NewEditRequest(img Image, instruction string) *EditRequest {
	return &EditRequest{
		Image:       img,
		Instruction: instruction,
	}
}

func (r *EditRequest) Validate() error {
	if r.Image.IsEmpty() {
		return ErrNoImageData
	}
	if strings.TrimSpace(r.Instruction) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

type Response struct {
	Image Image
	Text  string
}

// ResultPair is one before/after pair shown by the comparison control.
type ResultPair struct {
	Original  Image
	Generated Image
}

type ModelCapabilities struct {
	Name         string
	Provider     ProviderType
	SupportsEdit bool
	Description  string
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
	}
}

func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.Register(&ModelCapabilities{
		Name:         "gemini-2.5-flash-image-preview",
		Provider:     ProviderGemini,
		SupportsEdit: true,
		Description:  "Gemini 2.5 Flash Image (preview)",
	})

	r.Register(&ModelCapabilities{
		Name:         "gemini-2.5-flash-image",
		Provider:     ProviderGemini,
		SupportsEdit: true,
		Description:  "Gemini 2.5 Flash Image",
	})

	r.Register(&ModelCapabilities{
		Name:         "gpt-image-1",
		Provider:     ProviderOpenAI,
		SupportsEdit: true,
		Description:  "OpenAI GPT Image 1",
	})

	return r
}
