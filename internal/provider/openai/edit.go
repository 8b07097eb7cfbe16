package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"

	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/pkg/models"
)

func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	if !p.SupportsModel(model) {
		return nil, fmt.Errorf("%w: %s", models.ErrEditNotSupported, model)
	}

	body, contentType, err := encodeEditForm(req, model)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + "/images/edits"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logger.Debug("sending edit request",
		zap.String("url", url),
		zap.String("model", model),
		zap.String("mime_type", req.Image.ContentType()),
		zap.Int("image_bytes", len(req.Image.Data)))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %w", provider.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", provider.ErrGenerationFailed, err)
	}
	p.logResponse(resp.StatusCode, bodyBytes)

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", provider.ErrGenerationFailed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: failed to parse response: %w", provider.ErrGenerationFailed, err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrGenerationFailed, apiResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", provider.ErrGenerationFailed, resp.StatusCode)
	}

	return p.buildResponse(ctx, apiResp)
}

func encodeEditForm(req *models.EditRequest, model string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	mimeType := req.Image.ContentType()
	ext := "jpg"
	if format, err := models.FormatFromMIME(mimeType); err == nil {
		ext = format.String()
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="image.%s"`, ext))
	header.Set("Content-Type", mimeType)
	imagePart, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := imagePart.Write(req.Image.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}

	if err := writer.WriteField("prompt", req.Instruction); err != nil {
		return nil, "", fmt.Errorf("failed to write prompt: %w", err)
	}
	if err := writer.WriteField("model", model); err != nil {
		return nil, "", fmt.Errorf("failed to write model: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}
