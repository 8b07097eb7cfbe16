// Package gemini edits images through the Gemini API using the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/pkg/models"
)

const DefaultModel = "gemini-2.5-flash-image-preview"

// contentGenerator is the subset of *genai.Models the editor calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Provider struct {
	generator contentGenerator
	model     string
	registry  *models.ModelRegistry
	logger    *zap.Logger
}

func New(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.TimeoutSec > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newWithGenerator(client.Models, cfg, registry), nil
}

func newWithGenerator(gen contentGenerator, cfg *provider.Config, registry *models.ModelRegistry) *Provider {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		generator: gen,
		model:     model,
		registry:  registry,
		logger:    cfg.Log().Named("gemini"),
	}
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderGemini && cap.SupportsEdit
}

func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	if !p.SupportsModel(model) {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, model)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image.Data, req.Image.ContentType()),
			genai.NewPartFromText(req.Instruction),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage), string(genai.ModalityText)},
	}

	p.logger.Debug("sending edit request",
		zap.String("model", model),
		zap.String("mime_type", req.Image.ContentType()),
		zap.Int("image_bytes", len(req.Image.Data)))

	resp, err := p.generator.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrGenerationFailed, err)
	}

	return buildResponse(resp)
}

// buildResponse returns the first inline image of the first candidate.
func buildResponse(resp *genai.GenerateContentResponse) (*models.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		detail := ""
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			detail = "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
		}
		return nil, provider.NoImage(detail)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, provider.NoImage(finishDetail(candidate))
	}

	var text []string
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &models.Response{
				Image: models.Image{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				},
				Text: strings.Join(text, "\n"),
			}, nil
		}
		if part.Text != "" {
			text = append(text, part.Text)
		}
	}

	return nil, provider.NoImage(finishDetail(candidate))
}

func finishDetail(c *genai.Candidate) string {
	if c.FinishReason == "" || c.FinishReason == genai.FinishReasonStop {
		return ""
	}
	return "finish reason " + string(c.FinishReason)
}
