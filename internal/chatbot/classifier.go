package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/saram098/navi-backend-2/pkg/logging"
)

// Classifier turns free text into an intent plus extracted entities.
type Classifier interface {
	Classify(ctx context.Context, message string) Classification
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const classifierSystemPrompt = "You are a medical clinic AI assistant."

const classifierPrompt = `Classify the following message into one of these intents:
1. book_appointment - User wants to book a doctor appointment
2. check_availability - User wants to check physician availability
3. cancel_appointment - User wants to cancel an existing appointment
4. reschedule_appointment - User wants to reschedule an appointment
5. physician_info - User wants information about physicians
6. insurance_check - User wants to check insurance coverage
7. clinic_info - User wants information about the clinic
8. pricing - User wants information about pricing or costs
9. greeting - User is just saying hello or starting a conversation
10. other - Message doesn't fit any of the above categories

The user message is: %q

Respond in JSON with:
{"intent": "<intent>", "confidence": <0..1>, "entities": {"specialty": "", "date": "YYYY-MM-DD", "time": "HH:MM", "physician_name": "", "emirates_id": ""}}
Omit entity values that are not present in the message. Dates must be normalized to YYYY-MM-DD and times to 24-hour HH:MM.`

// OpenAIClassifier classifies messages with a chat completion constrained
// to JSON output. Any failure degrades to IntentOther with empty entities
// so a broken classifier never breaks the conversation loop.
type OpenAIClassifier struct {
	client chatClient
	model  string
	logger *logging.Logger
}

// NewOpenAIClassifier builds a classifier around an OpenAI-compatible client.
func NewOpenAIClassifier(client chatClient, model string, logger *logging.Logger) *OpenAIClassifier {
	if client == nil {
		panic("chatbot: chat client cannot be nil")
	}
	if model == "" {
		model = "gpt-4o"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpenAIClassifier{client: client, model: model, logger: logger}
}

var _ Classifier = (*OpenAIClassifier)(nil)

type classifierResult struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
}

// Classify runs the intent prompt over the message.
func (c *OpenAIClassifier) Classify(ctx context.Context, message string) Classification {
	message = strings.TrimSpace(message)
	if message == "" {
		return Classification{Intent: IntentOther}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(classifierPrompt, message)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to other", "error", err)
		return Classification{Intent: IntentOther}
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("intent classification returned no choices")
		return Classification{Intent: IntentOther}
	}

	var result classifierResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		c.logger.Warn("intent classification returned invalid JSON", "error", err)
		return Classification{Intent: IntentOther}
	}

	return Classification{
		Intent:     ParseIntent(result.Intent),
		Confidence: result.Confidence,
		Entities:   result.Entities,
	}
}
