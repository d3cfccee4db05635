package gate

import (
	"context"

	"checkin-concierge-go/internal/models"
)

// The gates are the only place language understanding happens. The pipeline
// treats them as black boxes returning structured data; the live adapter and
// the deterministic simulator are interchangeable and share one contract
// test suite.

// IntentClassifier turns a raw guest message plus conversation context into
// a structured classification.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, convCtx models.ConversationContext) (models.ClassificationResult, error)
}

// Acknowledger composes the "we received your request" message drafted for
// the guest right after classification.
type Acknowledger interface {
	ComposeAcknowledgment(ctx context.Context, classification models.ClassificationResult, convCtx models.ConversationContext) (models.ComposedReply, error)
}

// ResponseParser reads the cleaner's free-text reply into structured data.
type ResponseParser interface {
	Parse(ctx context.Context, rawText string, original models.ProcessedRequest) (models.ParsedResponse, error)
}

// ReplyComposer formulates the guest-facing reply from a parsed cleaner
// decision and the stored request fields.
type ReplyComposer interface {
	Compose(ctx context.Context, parsed models.ParsedResponse, original models.ProcessedRequest) (models.ComposedReply, error)
}
