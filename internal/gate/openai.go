package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"checkin-concierge-go/internal/models"
)

// OpenAIGate implements all four gate ports against a chat-completion model.
// Each call sends a system prompt that demands a single JSON object and
// decodes the response into the corresponding structured type.
type OpenAIGate struct {
	client *openai.Client
	model  string
}

func NewOpenAIGate(apiKey, model string) *OpenAIGate {
	return &OpenAIGate{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

const classifySystemPrompt = `You classify guest messages for a short-term rental.
The only actionable requests are an early check-in or a late checkout.
Respond with a single JSON object, no prose, no markdown:
{"intent": "early_checkin"|"late_checkout"|"other",
 "confidence": 0.0-1.0,
 "extracted_time": "HH:MM" or "",
 "needs_followup": true|false,
 "followup_question": "" or a short question in the guest's language}
Set needs_followup to true only when the intent is actionable but the guest
named no time. Messages about anything else are "other".`

const parseSystemPrompt = `You read a cleaning-staff reply about a schedule-change request.
Respond with a single JSON object, no prose, no markdown:
{"answer": "yes"|"no"|"conditional"|"unclear",
 "conditions": "" or the cleaner's condition,
 "proposed_time": "HH:MM" or "",
 "confidence": 0.0-1.0}
The reply may be in French or English.`

const composeSystemPrompt = `You write a warm, concise reply to a rental guest, in the guest's
language (default French), about their early check-in or late checkout request.
Use only the facts given. Never invent times, fees, or promises.
Respond with a single JSON object, no prose, no markdown:
{"body": "the message", "confidence": 0.0-1.0}`

const acknowledgeSystemPrompt = `You write a short acknowledgment to a rental guest, in the guest's
language (default French): their early check-in or late checkout request was
received and the cleaning team is being consulted. Make no commitment.
Respond with a single JSON object, no prose, no markdown:
{"body": "the message", "confidence": 0.0-1.0}`

func (g *OpenAIGate) complete(ctx context.Context, system, user string, out interface{}) error {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: 512,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}

	raw := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode model output: %w", err)
	}
	return nil
}

// stripCodeFences removes a markdown code fence if the model wraps the JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func contextHeader(convCtx models.ConversationContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Property: %s\n", convCtx.PropertyName)
	fmt.Fprintf(&b, "Guest: %s\n", convCtx.GuestName)
	fmt.Fprintf(&b, "Arrival: %s  Departure: %s\n", convCtx.ArrivalDate, convCtx.DepartureDate)
	fmt.Fprintf(&b, "Default check-in: %s  Default check-out: %s\n",
		convCtx.DefaultCheckinTime, convCtx.DefaultCheckoutTime)
	if len(convCtx.PreviousMessages) > 0 {
		b.WriteString("\nPrevious messages (for context):\n")
		prev := convCtx.PreviousMessages
		if len(prev) > 3 {
			prev = prev[len(prev)-3:]
		}
		for _, m := range prev {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}
	return b.String()
}

func (g *OpenAIGate) Classify(ctx context.Context, message string, convCtx models.ConversationContext) (models.ClassificationResult, error) {
	user := contextHeader(convCtx) + fmt.Sprintf("\nLatest guest message:\n%s", message)

	var result models.ClassificationResult
	if err := g.complete(ctx, classifySystemPrompt, user, &result); err != nil {
		return models.ClassificationResult{}, err
	}
	switch result.Intent {
	case models.IntentEarlyCheckin, models.IntentLateCheckout, models.IntentOther:
	default:
		return models.ClassificationResult{}, fmt.Errorf("model returned unknown intent %q", result.Intent)
	}
	return result, nil
}

func (g *OpenAIGate) ComposeAcknowledgment(ctx context.Context, classification models.ClassificationResult, convCtx models.ConversationContext) (models.ComposedReply, error) {
	user := contextHeader(convCtx) + fmt.Sprintf(
		"\nRequest type: %s\nRequested time: %s\n",
		classification.Intent, classification.ExtractedTime)

	var reply models.ComposedReply
	if err := g.complete(ctx, acknowledgeSystemPrompt, user, &reply); err != nil {
		return models.ComposedReply{}, err
	}
	return reply, nil
}

func requestHeader(original models.ProcessedRequest) string {
	return fmt.Sprintf(
		"Guest: %s\nProperty: %s\nRequest type: %s\nStanding time: %s\nRequested time: %s\nDate: %s\nOriginal guest message: %s\n",
		original.GuestName, original.PropertyName, original.Intent,
		original.OriginalTime, original.RequestedTime, original.RelevantDate,
		original.GuestMessage)
}

func (g *OpenAIGate) Parse(ctx context.Context, rawText string, original models.ProcessedRequest) (models.ParsedResponse, error) {
	user := requestHeader(original) + fmt.Sprintf("\nCleaner's reply:\n%s", rawText)

	var parsed models.ParsedResponse
	if err := g.complete(ctx, parseSystemPrompt, user, &parsed); err != nil {
		return models.ParsedResponse{}, err
	}
	switch parsed.Answer {
	case models.AnswerYes, models.AnswerNo, models.AnswerConditional, models.AnswerUnclear:
	default:
		return models.ParsedResponse{}, fmt.Errorf("model returned unknown answer %q", parsed.Answer)
	}
	return parsed, nil
}

func (g *OpenAIGate) Compose(ctx context.Context, parsed models.ParsedResponse, original models.ProcessedRequest) (models.ComposedReply, error) {
	user := requestHeader(original) + fmt.Sprintf(
		"\nCleaner's decision: %s\nConditions: %s\nProposed time: %s\n",
		parsed.Answer, parsed.Conditions, parsed.ProposedTime)

	var reply models.ComposedReply
	if err := g.complete(ctx, composeSystemPrompt, user, &reply); err != nil {
		return models.ComposedReply{}, err
	}
	return reply, nil
}
