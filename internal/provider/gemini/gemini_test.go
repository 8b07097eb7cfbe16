package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/pkg/models"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func imageResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
		}},
	}
}

func testRequest() *models.EditRequest {
	return models.NewEditRequest(models.Image{Data: []byte("jpeg-bytes"), MIMEType: "image/jpeg"}, "Edit this photo.")
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), &provider.Config{}, models.DefaultRegistry())
	assert.ErrorIs(t, err, provider.ErrAPIKeyRequired)
}

func TestProvider_Edit_Success(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(
		&genai.Part{Text: "Here is your edited photo."},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("png-bytes")}},
	)}
	p := newWithGenerator(gen, &provider.Config{}, models.DefaultRegistry())

	resp, err := p.Edit(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "png-bytes", string(resp.Image.Data))
	assert.Equal(t, "image/png", resp.Image.MIMEType)
	assert.Equal(t, "Here is your edited photo.", resp.Text)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, DefaultModel, gen.model)
	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType)
	assert.Equal(t, "jpeg-bytes", string(parts[0].InlineData.Data))
	assert.Equal(t, "Edit this photo.", parts[1].Text)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, gen.config.ResponseModalities)
}

func TestProvider_Edit_DefaultsMIMEType(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("x")}})}
	p := newWithGenerator(gen, &provider.Config{}, models.DefaultRegistry())

	req := models.NewEditRequest(models.Image{Data: []byte("raw")}, "prompt")
	_, err := p.Edit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", gen.contents[0].Parts[0].InlineData.MIMEType)
}

func TestProvider_Edit_NoImage(t *testing.T) {
	tests := []struct {
		name   string
		resp   *genai.GenerateContentResponse
		detail string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{
			"blocked prompt",
			&genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety}},
			"prompt blocked",
		},
		{"text only", imageResponse(&genai.Part{Text: "I can't do that."}), ""},
		{
			"empty content with finish reason",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			"finish reason SAFETY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newWithGenerator(&fakeGenerator{resp: tt.resp}, &provider.Config{}, models.DefaultRegistry())
			_, err := p.Edit(context.Background(), testRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, provider.ErrGenerationFailed)
			assert.ErrorIs(t, err, provider.ErrNoImage)
			if tt.detail != "" {
				assert.True(t, strings.Contains(err.Error(), tt.detail), "error %q missing %q", err, tt.detail)
			}
		})
	}
}

func TestProvider_Edit_TransportError(t *testing.T) {
	boom := errors.New("429 resource exhausted")
	p := newWithGenerator(&fakeGenerator{err: boom}, &provider.Config{}, models.DefaultRegistry())

	_, err := p.Edit(context.Background(), testRequest())
	assert.ErrorIs(t, err, provider.ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "429 resource exhausted")
}

func TestProvider_Edit_Validation(t *testing.T) {
	gen := &fakeGenerator{}
	p := newWithGenerator(gen, &provider.Config{}, models.DefaultRegistry())

	_, err := p.Edit(context.Background(), models.NewEditRequest(models.Image{}, "prompt"))
	assert.ErrorIs(t, err, models.ErrNoImageData)

	req := testRequest()
	req.Model = "gpt-image-1"
	_, err = p.Edit(context.Background(), req)
	assert.ErrorIs(t, err, provider.ErrModelNotSupported)

	assert.Equal(t, 0, gen.calls)
}

func TestProvider_ConfiguredModel(t *testing.T) {
	gen := &fakeGenerator{resp: imageResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("x")}})}
	p := newWithGenerator(gen, &provider.Config{Model: "gemini-2.5-flash-image"}, models.DefaultRegistry())

	_, err := p.Edit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash-image", gen.model)
	assert.Equal(t, models.ProviderGemini, p.Name())
	assert.True(t, p.SupportsModel("gemini-2.5-flash-image"))
	assert.False(t, p.SupportsModel("gpt-image-1"))
}
