package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/dental-xray-ai/internal/config"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/ai"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/ai/prompt"
	"github.com/bryanwahyu/dental-xray-ai/internal/platform/logger"
)

const (
	probeMaxTokens   = 50
	probeTemperature = 0.3
)

// Client talks to Azure OpenAI or the OpenAI API with vision-capable chat models.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	debug       bool
}

var _ ai.Client = (*Client)(nil)

func NewClient(cfg config.AIConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai api key is not configured")
	}

	var oc openai.ClientConfig
	switch strings.ToLower(cfg.Provider) {
	case "", "azure":
		if cfg.Endpoint == "" {
			return nil, errors.New("azure endpoint is not configured")
		}
		oc = openai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
		oc.APIVersion = cfg.APIVersion
		deployment := cfg.Deployment
		oc.AzureModelMapperFunc = func(string) string { return deployment }
	case "openai":
		oc = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
		}
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		debug:       cfg.Debug,
	}, nil
}

func (c *Client) AnalyzeXRay(ctx context.Context, req ai.XRayRequest) (ai.Completion, error) {
	if req.Image == nil {
		return ai.Completion{}, fmt.Errorf("%w: no image supplied", ai.ErrProviderFailure)
	}
	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt.XRayPrompt(req.Patient)},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: req.Image.DataURL()}},
		},
	}
	content, err := c.complete(ctx, msg, c.maxTokens, c.temperature)
	if err != nil {
		return ai.Completion{}, err
	}
	if c.debug {
		logger.FromContext(ctx).Debug().
			Str("model", c.model).
			Int64("patient_id", req.Patient.PatientID).
			Int("response_len", len(content)).
			Msg("ai analysis reply received")
	}
	return ai.Completion{Content: content, Model: c.model}, nil
}

func (c *Client) Ping(ctx context.Context) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.ProbeMessage}
	return c.complete(ctx, msg, probeMaxTokens, probeTemperature)
}

func (c *Client) complete(ctx context.Context, msg openai.ChatCompletionMessage, maxTokens int, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: temperature,
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.model) {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ai.ErrInvalidResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps provider errors onto the domain errors, keeping the cause.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	if status != 0 {
		return fmt.Errorf("%w: HTTP %d: %v", ai.ErrProviderFailure, status, err)
	}
	return fmt.Errorf("%w: %v", ai.ErrProviderFailure, err)
}
