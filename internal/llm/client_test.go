package llm

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledgerelay/relay/internal/domain"
)

// fakeChatAPI is a scriptable ChatAPI implementation.
type fakeChatAPI struct {
	chatResponse  string
	chatErr       error
	lastRequest   openai.ChatCompletionRequest
	embeddings    [][]float32
	embeddingsErr error
}

func (f *fakeChatAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastRequest = req
	if f.chatErr != nil {
		return openai.ChatCompletionResponse{}, f.chatErr
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.chatResponse}},
		},
	}, nil
}

func (f *fakeChatAPI) CreateEmbeddings(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if f.embeddingsErr != nil {
		return openai.EmbeddingResponse{}, f.embeddingsErr
	}
	data := make([]openai.Embedding, len(f.embeddings))
	for i, e := range f.embeddings {
		data[i] = openai.Embedding{Index: i, Embedding: e}
	}
	return openai.EmbeddingResponse{Data: data}, nil
}

func TestClient_GenerateText(t *testing.T) {
	api := &fakeChatAPI{chatResponse: "hello"}
	client := NewClientWithAPI(api, "test-model")

	out, err := client.GenerateText(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, api.lastRequest.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, api.lastRequest.Messages[0].Role)
	assert.Equal(t, "test-model", api.lastRequest.Model)
}

func TestClient_GenerateText_EmptyPrompt(t *testing.T) {
	client := NewClientWithAPI(&fakeChatAPI{}, "test-model")

	_, err := client.GenerateText(context.Background(), "", "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestClient_GenerateChat_HistoryRoles(t *testing.T) {
	api := &fakeChatAPI{chatResponse: "ok"}
	client := NewClientWithAPI(api, "test-model")

	history := []domain.ChatMessage{
		{Role: domain.ChatRoleHuman, Content: "what db?"},
		{Role: domain.ChatRoleAI, Content: "Postgres"},
	}
	_, err := client.GenerateChat(context.Background(), "sys", history, "which version?")
	require.NoError(t, err)

	require.Len(t, api.lastRequest.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleUser, api.lastRequest.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, api.lastRequest.Messages[2].Role)
	assert.Equal(t, "which version?", api.lastRequest.Messages[3].Content)
}

func TestClient_GenerateStructured(t *testing.T) {
	api := &fakeChatAPI{chatResponse: `{"answer":"Postgres","sources":[]}`}
	client := NewClientWithAPI(api, "test-model")

	var out struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
	}
	err := client.GenerateStructured(context.Background(), "sys", nil, "what db?", &out)
	require.NoError(t, err)
	assert.Equal(t, "Postgres", out.Answer)
	require.NotNil(t, api.lastRequest.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, api.lastRequest.ResponseFormat.Type)
}

func TestClient_GenerateStructured_MalformedResponse(t *testing.T) {
	api := &fakeChatAPI{chatResponse: "not json at all"}
	client := NewClientWithAPI(api, "test-model")

	var out struct {
		Answer string `json:"answer"`
	}
	err := client.GenerateStructured(context.Background(), "sys", nil, "what db?", &out)
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeInternalError, domainErr.Code)
}

func TestClient_Embed_OrderPreserved(t *testing.T) {
	first := make([]float32, DefaultEmbeddingDimensions)
	second := make([]float32, DefaultEmbeddingDimensions)
	first[0] = 1
	second[0] = 2

	api := &fakeChatAPI{embeddings: [][]float32{first, second}}
	client := NewClientWithAPI(api, "test-model")

	out, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, float32(1), out[0][0])
	assert.Equal(t, float32(2), out[1][0])
}

func TestClient_Embed_WrongDimensions(t *testing.T) {
	api := &fakeChatAPI{embeddings: [][]float32{{1, 2, 3}}}
	client := NewClientWithAPI(api, "test-model")

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClassifyProviderError(t *testing.T) {
	timeout := classifyProviderError(context.DeadlineExceeded)
	var domainErr *domain.DomainError
	require.ErrorAs(t, timeout, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)

	badRequest := classifyProviderError(&openai.APIError{HTTPStatusCode: 400})
	require.ErrorAs(t, badRequest, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)

	serverError := classifyProviderError(&openai.APIError{HTTPStatusCode: 503})
	require.ErrorAs(t, serverError, &domainErr)
	assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
}
