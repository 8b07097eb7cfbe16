// Package openai edits images through the OpenAI /images/edits endpoint.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/internal/security"
	"github.com/manash/cyberedit/pkg/models"
)

const (
	DefaultModel   = "gpt-image-1"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second

	maxDownloadBytes = 64 << 20
)

type apiResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	registry   *models.ModelRegistry
	urlPolicy  *security.URLPolicy
	logger     *zap.Logger
}

func New(cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		registry:   registry,
		urlPolicy:  security.DefaultURLPolicy(),
		logger:     cfg.Log().Named("openai"),
	}, nil
}

// SetURLPolicy replaces the policy applied to result URLs before download.
func (p *Provider) SetURLPolicy(policy *security.URLPolicy) {
	p.urlPolicy = policy
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderOpenAI && cap.SupportsEdit
}

// buildResponse turns the first data entry into an image, downloading it
// when the API answered with a URL instead of inline base64.
func (p *Provider) buildResponse(ctx context.Context, apiResp apiResponse) (*models.Response, error) {
	if len(apiResp.Data) == 0 {
		return nil, provider.NoImage("empty data array")
	}

	data := apiResp.Data[0]
	var (
		img models.Image
		err error
	)
	switch {
	case data.B64JSON != "":
		img.Data, err = base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode image: %w", provider.ErrGenerationFailed, err)
		}
	case data.URL != "":
		img.Data, err = p.download(ctx, data.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", provider.ErrGenerationFailed, err)
		}
	default:
		return nil, provider.NoImage("")
	}

	if len(img.Data) == 0 {
		return nil, provider.NoImage("")
	}
	img.MIMEType = http.DetectContentType(img.Data)

	return &models.Response{Image: img, Text: data.RevisedPrompt}, nil
}

func (p *Provider) download(ctx context.Context, url string) ([]byte, error) {
	if err := p.urlPolicy.Validate(url); err != nil {
		return nil, fmt.Errorf("refusing to download result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

func (p *Provider) logResponse(statusCode int, body []byte) {
	if ce := p.logger.Check(zap.DebugLevel, "edit response"); ce != nil {
		ce.Write(
			zap.Int("status", statusCode),
			zap.ByteString("body", truncateBase64InJSON(body)),
		)
	}
}

func truncateBase64InJSON(body []byte) []byte {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateBase64Fields(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateBase64Fields(data map[string]interface{}) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "b64_json" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]interface{}:
			truncateBase64Fields(v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					truncateBase64Fields(m)
				}
			}
		}
	}
}
