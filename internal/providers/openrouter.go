package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/pkg/logger"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai"
	DefaultOpenRouterModel   = "qwen/qwen2.5-vl-32b-instruct:free"
	DefaultOpenRouterReferer = "http://localhost"
	DefaultOpenRouterTitle   = "BlueprintBuilderPro"
)

// OpenRouterOptions configures the OpenRouter adapter.
type OpenRouterOptions struct {
	BaseURL    string
	Model      string
	Referer    string
	Title      string
	HTTPClient *http.Client
}

// OpenRouterAdapter talks to OpenRouter's OpenAI-compatible chat endpoint,
// passing the image by URL.
type OpenRouterAdapter struct {
	baseURL string
	model   string
	referer string
	title   string
	client  *http.Client
}

var _ Adapter = (*OpenRouterAdapter)(nil)

func NewOpenRouter(opts OpenRouterOptions) *OpenRouterAdapter {
	o := &OpenRouterAdapter{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		model:   strings.TrimSpace(opts.Model),
		referer: opts.Referer,
		title:   opts.Title,
		client:  opts.HTTPClient,
	}
	if o.baseURL == "" {
		o.baseURL = DefaultOpenRouterBaseURL
	}
	if o.model == "" {
		o.model = DefaultOpenRouterModel
	}
	if o.referer == "" {
		o.referer = DefaultOpenRouterReferer
	}
	if o.title == "" {
		o.title = DefaultOpenRouterTitle
	}
	if o.client == nil {
		o.client = http.DefaultClient
	}
	return o
}

func (o *OpenRouterAdapter) Name() Name { return OpenRouter }

// Analyze sends the system and user messages with the image as an image_url part.
func (o *OpenRouterAdapter) Analyze(ctx context.Context, imageURL string, creds Credentials) (*models.BlueprintAnalysis, error) {
	if !creds.Configured() {
		return nil, ErrNotConfigured
	}
	text, err := o.complete(ctx, creds, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(analysisSystemPrompt),
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(AnalysisPrompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
		}),
	})
	if err != nil {
		return nil, err
	}
	return decodeAnalysis(OpenRouter, text)
}

func (o *OpenRouterAdapter) GenerateJSON(ctx context.Context, prompt string, creds Credentials) ([]byte, error) {
	if !creds.Configured() {
		return nil, ErrNotConfigured
	}
	text, err := o.complete(ctx, creds, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(generationSystemPrompt),
		openai.UserMessage(prompt),
	})
	if err != nil {
		return nil, err
	}
	return decodeJSON(OpenRouter, text)
}

// complete issues one chat completion. SDK retries stay off; the
// orchestrator decides about fallback.
func (o *OpenRouterAdapter) complete(ctx context.Context, creds Credentials, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	model := strings.TrimSpace(creds.Model)
	if model == "" {
		model = o.model
	}

	client := openai.NewClient(
		option.WithAPIKey(creds.APIKey),
		option.WithBaseURL(o.baseURL+"/api/v1/"),
		option.WithHTTPClient(o.client),
		option.WithHeader("HTTP-Referer", o.referer),
		option.WithHeader("X-Title", o.title),
		option.WithMaxRetries(0),
	)

	logger.L().Debug("provider request", zap.String("provider", string(OpenRouter)), zap.String("model", model))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", openRouterError(ctx, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", emptyError(OpenRouter, "No content returned from OpenRouter")
	}
	return resp.Choices[0].Message.Content, nil
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func openRouterError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &ProviderError{Provider: OpenRouter, Kind: KindTransport, Message: err.Error(), Err: ctx.Err()}
	}
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return transportError(OpenRouter, err)
	}
	msg := strings.TrimSpace(apiErr.Message)
	if msg == "" {
		var body apiErrorBody
		if json.Unmarshal([]byte(apiErr.RawJSON()), &body) == nil {
			msg = strings.TrimSpace(body.Error.Message)
		}
	}
	if msg == "" {
		msg = "OpenRouter API Error"
	}
	return httpError(OpenRouter, apiErr.StatusCode, msg)
}
