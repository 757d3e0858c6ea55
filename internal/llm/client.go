package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/knowledgerelay/relay/internal/domain"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536

	defaultTimeout = 60 * time.Second

	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

var (
	// ErrEmptyPrompt is returned when a prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrNoTexts is returned when an embedding batch is empty
	ErrNoTexts = errors.New("texts cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Provider identifies which OpenAI-compatible backend the client talks to.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderOllama     Provider = "ollama"
)

// Config configures a Client. No ambient globals: the active provider and
// model names are fixed at construction time.
type Config struct {
	Provider            Provider
	APIKey              string
	BaseURL             string // required for ollama, ignored for openai
	Model               string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	Timeout             time.Duration
}

// ChatAPI is the slice of the go-openai client the Client depends on.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client provides text generation, schema-constrained generation and batched
// embeddings over any OpenAI-compatible backend.
type Client struct {
	api        ChatAPI
	model      string
	embedModel openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
}

// NewClient creates a Client for the configured provider.
func NewClient(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	switch cfg.Provider {
	case ProviderOpenRouter:
		clientCfg.BaseURL = openRouterBaseURL
	case ProviderOllama:
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1"
	}

	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	embedModel := cfg.EmbeddingModel
	if embedModel == "" {
		embedModel = DefaultEmbeddingModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		embedModel: embedModel,
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// NewClientWithAPI creates a Client backed by a custom API implementation (for testing).
func NewClientWithAPI(api ChatAPI, model string) *Client {
	return &Client{
		api:        api,
		model:      model,
		embedModel: DefaultEmbeddingModel,
		dimensions: DefaultEmbeddingDimensions,
		timeout:    defaultTimeout,
	}
}

// GenerateText runs a single chat completion and returns the raw text.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyPrompt
	}
	return c.complete(ctx, system, nil, user, nil)
}

// GenerateChat runs a chat completion with prior conversation turns between
// the system prompt and the final user message.
func (c *Client) GenerateChat(ctx context.Context, system string, history []domain.ChatMessage, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyPrompt
	}
	return c.complete(ctx, system, history, user, nil)
}

// GenerateStructured runs a chat completion constrained to the JSON schema of
// out and unmarshals the response into it. A response that does not parse to
// the schema is a hard failure, not a partial success.
func (c *Client) GenerateStructured(ctx context.Context, system string, history []domain.ChatMessage, user string, out any) error {
	if strings.TrimSpace(user) == "" {
		return ErrEmptyPrompt
	}

	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return fmt.Errorf("failed to generate response schema: %w", err)
	}

	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   "response",
			Schema: schema,
			Strict: true,
		},
	}

	raw, err := c.complete(ctx, system, history, user, format)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError,
			"model response did not match the requested schema", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, system string, history []domain.ChatMessage, user string, format *openai.ChatCompletionResponseFormat) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == domain.ChatRoleAI {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: format,
	})
	if err != nil {
		return "", classifyProviderError(err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.NewDomainError(domain.ErrCodeUnavailable, "model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed generates embeddings for texts in one batched call. Output order
// matches input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embedModel,
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, domain.NewDomainError(domain.ErrCodeUnavailable,
			fmt.Sprintf("embedding response count mismatch: got %d, want %d", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "embedding response index out of range")
		}
		if c.dimensions > 0 && len(item.Embedding) != c.dimensions {
			return nil, ErrWrongDimensions
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}

// classifyProviderError separates transient provider failures (retryable)
// from caller mistakes (not retryable).
func classifyProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "provider call timed out", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusBadRequest,
			apiErr.HTTPStatusCode == http.StatusUnprocessableEntity:
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "provider rejected the request", err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized,
			apiErr.HTTPStatusCode == http.StatusForbidden:
			return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "provider credentials rejected", err)
		}
	}

	return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "provider call failed", err)
}
