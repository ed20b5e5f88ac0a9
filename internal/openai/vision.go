package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// captionInstruction matches the prompt used for embedded figures: the caption
// becomes retrievable chunk text, so it asks for content, not aesthetics.
const captionInstruction = "Analyze this image and provide a detailed description of its content, " +
	"focusing on any diagrams, charts, or relevant visual information."

// ErrEmptyImage is returned when image bytes are empty
var ErrEmptyImage = errors.New("image cannot be empty")

// Caption describes an image so its content can be chunked and retrieved like
// text. The image is sent inline as a data URL.
func (c *Client) Caption(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}

	mime := http.DetectContentType(image)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: captionInstruction},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to caption image: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no caption choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
