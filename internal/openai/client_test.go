package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	embeddings   openai.EmbeddingResponse
	embeddingErr error
	chat         openai.ChatCompletionResponse
	chatErr      error
	lastChatReq  openai.ChatCompletionRequest
}

func (f *fakeAPI) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	return f.embeddings, f.embeddingErr
}

func (f *fakeAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastChatReq = req
	return f.chat, f.chatErr
}

func newTestClient(f *fakeAPI) *Client {
	return &Client{
		api:            f,
		embeddingModel: DefaultEmbeddingModel,
		chatModel:      DefaultChatModel,
		visionModel:    DefaultVisionModel,
	}
}

func TestCreateEmbedding(t *testing.T) {
	f := &fakeAPI{
		embeddings: openai.EmbeddingResponse{
			Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}},
		},
	}
	client := newTestClient(f)

	vec, err := client.CreateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestCreateEmbedding_EmptyText(t *testing.T) {
	client := newTestClient(&fakeAPI{})
	_, err := client.CreateEmbedding(context.Background(), "")
	assert.Equal(t, ErrEmptyText, err)
}

func TestCreateEmbedding_NoData(t *testing.T) {
	client := newTestClient(&fakeAPI{})
	_, err := client.CreateEmbedding(context.Background(), "hello")
	assert.Error(t, err)
}

func TestCreateEmbedding_APIError(t *testing.T) {
	client := newTestClient(&fakeAPI{embeddingErr: errors.New("rate limited")})
	_, err := client.CreateEmbedding(context.Background(), "hello")
	assert.ErrorContains(t, err, "rate limited")
}

func TestGenerate(t *testing.T) {
	f := &fakeAPI{
		chat: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "an answer"}},
			},
		},
	}
	client := newTestClient(f)

	out, err := client.Generate(context.Background(), "a question")
	require.NoError(t, err)
	assert.Equal(t, "an answer", out)
	require.Len(t, f.lastChatReq.Messages, 1)
	assert.Equal(t, "a question", f.lastChatReq.Messages[0].Content)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	client := newTestClient(&fakeAPI{})
	_, err := client.Generate(context.Background(), "")
	assert.Equal(t, ErrEmptyPrompt, err)
}

func TestGenerate_NoChoices(t *testing.T) {
	client := newTestClient(&fakeAPI{})
	_, err := client.Generate(context.Background(), "a question")
	assert.Error(t, err)
}

func TestCaption(t *testing.T) {
	f := &fakeAPI{
		chat: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "a diagram of the heart"}},
			},
		},
	}
	client := newTestClient(f)

	// Minimal PNG header so content-type sniffing resolves to image/png.
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	caption, err := client.Caption(context.Background(), png)
	require.NoError(t, err)
	assert.Equal(t, "a diagram of the heart", caption)

	require.Len(t, f.lastChatReq.Messages, 1)
	parts := f.lastChatReq.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Contains(t, parts[1].ImageURL.URL, "data:image/png;base64,")
}

func TestCaption_EmptyImage(t *testing.T) {
	client := newTestClient(&fakeAPI{})
	_, err := client.Caption(context.Background(), nil)
	assert.Equal(t, ErrEmptyImage, err)
}
