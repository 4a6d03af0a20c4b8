package chatbot

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/saram098/navi-backend-2/pkg/logging"
)

const responderPrompt = `You are a helpful assistant for a medical clinic in Dubai.
Answer the patient's question briefly and politely. If the question is about
booking, cancelling, or rescheduling appointments, checking availability,
physician information, pricing, or insurance, tell them you can help with that
directly and ask them to describe what they need. Do not invent clinic details
you do not have. Keep replies under 100 words.`

// OpenAIResponder answers messages that match no intent with a short
// free-form reply.
type OpenAIResponder struct {
	client chatClient
	model  string
	logger *logging.Logger
}

// NewOpenAIResponder creates a responder backed by the OpenAI chat API.
func NewOpenAIResponder(client chatClient, model string, logger *logging.Logger) *OpenAIResponder {
	if client == nil {
		panic("chatbot: openai client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIResponder{client: client, model: model, logger: logger}
}

// Reply generates a conversational answer for the message.
func (r *OpenAIResponder) Reply(ctx context.Context, message string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		MaxTokens: 200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: responderPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chatbot: general reply failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chatbot: general reply returned no content")
	}
	return resp.Choices[0].Message.Content, nil
}
