package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/cleaner"
	"checkin-concierge-go/internal/gate"
	"checkin-concierge-go/internal/ledger"
	"checkin-concierge-go/internal/models"
)

// Actions reported by the pipeline for one processed unit.
const (
	ActionAlreadyProcessed = "already_processed"
	ActionIgnored          = "ignored"
	ActionFollowupDrafted  = "followup_drafted"
	ActionDraftsCreated    = "drafts_created"
	ActionReplyDrafted     = "reply_drafted"
)

// Result describes what one pipeline pass did.
type Result struct {
	Action    string
	RequestID string
	DraftIDs  []uint
}

// Pipeline drives a guest request from classified message to reviewed-ready
// drafts. It never sends anything to a guest itself; every outbound message
// it produces is a Draft waiting for the owner's verdict. The one exception
// is the cleaner query, which goes out on the cleaner channel directly so
// the cleaner's answer can come back on a later cycle.
type Pipeline struct {
	ledger       *ledger.Ledger
	classifier   gate.IntentClassifier
	acknowledger gate.Acknowledger
	parser       gate.ResponseParser
	composer     gate.ReplyComposer
	notifier     cleaner.Notifier
	cleanerName  string
}

// New creates a Pipeline wired to its ports.
func New(
	l *ledger.Ledger,
	classifier gate.IntentClassifier,
	acknowledger gate.Acknowledger,
	parser gate.ResponseParser,
	composer gate.ReplyComposer,
	notifier cleaner.Notifier,
	cleanerName string,
) *Pipeline {
	return &Pipeline{
		ledger:       l,
		classifier:   classifier,
		acknowledger: acknowledger,
		parser:       parser,
		composer:     composer,
		notifier:     notifier,
		cleanerName:  cleanerName,
	}
}

// ProcessMessage runs one guest message through the request state machine.
//
// The seen-messages guard runs before classification so a message already
// handled in a previous cycle costs nothing. The message is marked seen
// only after classification succeeds: a crash mid-classification leaves
// the message unmarked and the next cycle retries it.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg models.GuestMessage, convCtx models.ConversationContext) (Result, error) {
	seen, err := p.ledger.HasMessageBeenSeen(msg.MessageID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check seen messages: %w", err)
	}
	if seen {
		logrus.Debugf("Message %d already seen, skipping", msg.MessageID)
		return Result{Action: ActionAlreadyProcessed}, nil
	}

	classification, err := p.classifier.Classify(ctx, msg.Body, convCtx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to classify message %d: %w", msg.MessageID, err)
	}

	if err := p.ledger.MarkMessageSeen(msg.MessageID, convCtx.ReservationID); err != nil {
		return Result{}, fmt.Errorf("failed to mark message %d seen: %w", msg.MessageID, err)
	}

	if classification.Intent == models.IntentOther {
		logrus.Debugf("Message %d on reservation %d classified as other, ignoring",
			msg.MessageID, convCtx.ReservationID)
		return Result{Action: ActionIgnored}, nil
	}

	processed, err := p.ledger.HasBeenProcessed(convCtx.ReservationID, classification.Intent)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check processed requests: %w", err)
	}
	if processed {
		logrus.Infof("Reservation %d already has a %s request, skipping",
			convCtx.ReservationID, classification.Intent)
		return Result{Action: ActionAlreadyProcessed}, nil
	}

	req := &models.ProcessedRequest{
		ReservationID: convCtx.ReservationID,
		Intent:        classification.Intent,
		RequestID:     uuid.New().String(),
		GuestMessage:  msg.Body,
		GuestName:     convCtx.GuestName,
		PropertyName:  convCtx.PropertyName,
		RequestedTime: classification.ExtractedTime,
	}
	if classification.Intent == models.IntentEarlyCheckin {
		req.OriginalTime = convCtx.DefaultCheckinTime
		req.RelevantDate = convCtx.ArrivalDate
	} else {
		req.OriginalTime = convCtx.DefaultCheckoutTime
		req.RelevantDate = convCtx.DepartureDate
	}

	if classification.NeedsFollowup {
		return p.draftFollowup(req, classification)
	}
	return p.draftAcknowledgmentAndQuery(ctx, req, classification, convCtx)
}

// draftFollowup records the request as awaiting the guest's answer and
// queues the follow-up question. Nothing else happens until the guest
// replies with a usable time on a later cycle.
func (p *Pipeline) draftFollowup(req *models.ProcessedRequest, classification models.ClassificationResult) (Result, error) {
	req.Status = models.StatusAwaitingFollowup
	if err := p.ledger.SaveRequest(req); err != nil {
		return Result{}, fmt.Errorf("failed to save request: %w", err)
	}

	draftID, err := p.ledger.SaveDraft(req.RequestID, req.ReservationID, req.Intent,
		models.StepFollowup, classification.FollowupQuestion)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save followup draft: %w", err)
	}

	logrus.Infof("Request %s (reservation %d, %s) needs followup, drafted question",
		req.RequestID, req.ReservationID, req.Intent)
	return Result{Action: ActionFollowupDrafted, RequestID: req.RequestID, DraftIDs: []uint{draftID}}, nil
}

// draftAcknowledgmentAndQuery saves the request, drafts the guest
// acknowledgment, drafts and dispatches the cleaner query.
func (p *Pipeline) draftAcknowledgmentAndQuery(ctx context.Context, req *models.ProcessedRequest, classification models.ClassificationResult, convCtx models.ConversationContext) (Result, error) {
	req.Status = models.StatusPendingAcknowledgment
	if err := p.ledger.SaveRequest(req); err != nil {
		return Result{}, fmt.Errorf("failed to save request: %w", err)
	}

	ack, err := p.acknowledger.ComposeAcknowledgment(ctx, classification, convCtx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compose acknowledgment for request %s: %w", req.RequestID, err)
	}
	ackID, err := p.ledger.SaveDraft(req.RequestID, req.ReservationID, req.Intent,
		models.StepAcknowledgment, ack.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save acknowledgment draft: %w", err)
	}

	query := models.CleanerQuery{
		RequestID:     req.RequestID,
		CleanerName:   p.cleanerName,
		GuestName:     req.GuestName,
		PropertyName:  req.PropertyName,
		RequestType:   req.Intent,
		OriginalTime:  req.OriginalTime,
		RequestedTime: req.RequestedTime,
		Date:          req.RelevantDate,
		Message:       req.GuestMessage,
	}
	queryBody := cleaner.RenderQuery(query)
	queryID, err := p.ledger.SaveDraft(req.RequestID, req.ReservationID, req.Intent,
		models.StepCleanerQuery, queryBody)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save cleaner query draft: %w", err)
	}

	if _, err := p.notifier.SendQuery(ctx, query); err != nil {
		// The drafts are already on record. The cleaner just did not get
		// the question, which the owner will notice from the absent reply.
		logrus.Errorf("Failed to send cleaner query for request %s: %v", req.RequestID, err)
	}

	logrus.Infof("Request %s (reservation %d, %s %s->%s) drafted acknowledgment and cleaner query",
		req.RequestID, req.ReservationID, req.Intent, req.OriginalTime, req.RequestedTime)
	return Result{Action: ActionDraftsCreated, RequestID: req.RequestID, DraftIDs: []uint{ackID, queryID}}, nil
}

// ProcessCleanerResponse turns a cleaner's reply into a guest-facing draft.
// An unknown request id degrades to an empty request rather than failing
// the poll, so a stale or mistyped correlation id costs one odd draft, not
// the cycle.
func (p *Pipeline) ProcessCleanerResponse(ctx context.Context, resp models.CleanerResponse) (Result, error) {
	req, err := p.ledger.GetRequest(resp.RequestID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load request %s: %w", resp.RequestID, err)
	}
	if req == nil {
		logrus.Warnf("Cleaner response references unknown request %s, proceeding without context", resp.RequestID)
		req = &models.ProcessedRequest{RequestID: resp.RequestID}
	}

	parsed, err := p.parser.Parse(ctx, resp.RawText, *req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse cleaner response for request %s: %w", resp.RequestID, err)
	}

	reply, err := p.composer.Compose(ctx, parsed, *req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to compose guest reply for request %s: %w", resp.RequestID, err)
	}

	draftID, err := p.ledger.SaveDraft(req.RequestID, req.ReservationID, req.Intent,
		models.StepGuestReply, reply.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to save guest reply draft: %w", err)
	}

	if req.ID != 0 {
		if err := p.ledger.UpdateStatus(req.RequestID, models.StatusPendingReply); err != nil {
			return Result{}, fmt.Errorf("failed to update request %s status: %w", req.RequestID, err)
		}
	}

	logrus.Infof("Request %s: cleaner answered %q, drafted guest reply",
		req.RequestID, parsed.Answer)
	return Result{Action: ActionReplyDrafted, RequestID: req.RequestID, DraftIDs: []uint{draftID}}, nil
}
