package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/pkg/logger"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-1.5-flash-latest"
	geminiAPIVersion     = "v1beta"
)

// GeminiOptions configures the Google adapter.
type GeminiOptions struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// Gemini calls generateContent through the genai SDK in JSON mode with the
// image sent inline.
type Gemini struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ Adapter = (*Gemini)(nil)

func NewGemini(opts GeminiOptions) *Gemini {
	g := &Gemini{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   opts.Model,
		client:  opts.HTTPClient,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultGeminiBaseURL
	}
	if g.model == "" {
		g.model = DefaultGeminiModel
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	return g
}

func (g *Gemini) Name() Name { return Google }

// Analyze downloads the image, sends it with the extraction prompt and
// decodes the answer.
func (g *Gemini) Analyze(ctx context.Context, imageURL string, creds Credentials) (*models.BlueprintAnalysis, error) {
	if !creds.Configured() {
		return nil, ErrNotConfigured
	}
	img, err := fetchImage(ctx, g.client, imageURL)
	if err != nil {
		return nil, transportError(Google, err)
	}
	text, err := g.generate(ctx, creds, []*genai.Part{
		genai.NewPartFromText(AnalysisPrompt + " " + rawJSONInstruction),
		genai.NewPartFromBytes(img.Data, img.MimeType),
	})
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(Google, text)
}

// GenerateJSON sends a text-only prompt in JSON mode.
func (g *Gemini) GenerateJSON(ctx context.Context, prompt string, creds Credentials) ([]byte, error) {
	if !creds.Configured() {
		return nil, ErrNotConfigured
	}
	text, err := g.generate(ctx, creds, []*genai.Part{genai.NewPartFromText(prompt)})
	if err != nil {
		return nil, err
	}
	return decodeJSON(Google, text)
}

// generate builds a client for the call's key; keys differ per request.
func (g *Gemini) generate(ctx context.Context, creds Credentials, parts []*genai.Part) (string, error) {
	model := strings.TrimSpace(creds.Model)
	if model == "" {
		model = g.model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     creds.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.client,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    g.baseURL + "/",
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return "", transportError(Google, err)
	}

	logger.L().Debug("provider request", zap.String("provider", string(Google)), zap.String("model", model))

	resp, err := client.Models.GenerateContent(ctx,
		model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", geminiError(ctx, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", emptyError(Google, "No data returned from Gemini")
	}
	return text, nil
}

// geminiError classifies an SDK error. API errors carry the HTTP status;
// everything else, including an expired context, is a transport failure.
func geminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &ProviderError{Provider: Google, Kind: KindTransport, Message: err.Error(), Err: ctx.Err()}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return geminiHTTPError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return geminiHTTPError(*apiErrPtr)
	}
	return transportError(Google, err)
}

func geminiHTTPError(e genai.APIError) *ProviderError {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "Gemini API Error"
	}
	return httpError(Google, e.Code, msg)
}
