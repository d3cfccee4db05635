package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkin-concierge-go/internal/models"
)

// Review outcomes callers may want to tell apart.
var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrAlreadyReviewed = errors.New("draft already reviewed")
)

// Ledger is the durable store behind the pipeline: which messages have been
// seen, one request per (reservation, intent) pair, and the queue of drafts
// awaiting owner review.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// -- seen messages -----------------------------------------------------------

// HasMessageBeenSeen reports whether a message id was already classified.
func (l *Ledger) HasMessageBeenSeen(messageID int64) (bool, error) {
	var seen models.SeenMessage
	result := l.db.Where("message_id = ?", messageID).First(&seen)
	if result.Error == nil {
		return true, nil
	}
	if result.Error == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, fmt.Errorf("database error checking seen message: %w", result.Error)
}

// MarkMessageSeen records a message id as classified. Idempotent: re-marking
// the same id neither errors nor creates duplicate rows.
func (l *Ledger) MarkMessageSeen(messageID, reservationID int64) error {
	seen := models.SeenMessage{
		MessageID:     messageID,
		ReservationID: reservationID,
		SeenAt:        time.Now().UTC(),
	}
	result := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seen)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message as seen: %w", result.Error)
	}
	return nil
}

// -- request tracking --------------------------------------------------------

// HasBeenProcessed reports whether a request already exists for this
// (reservation, intent) pair.
func (l *Ledger) HasBeenProcessed(reservationID int64, intent string) (bool, error) {
	var req models.ProcessedRequest
	result := l.db.Where("reservation_id = ? AND intent = ?", reservationID, intent).First(&req)
	if result.Error == nil {
		return true, nil
	}
	if result.Error == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, fmt.Errorf("database error checking processed request: %w", result.Error)
}

// SaveRequest creates a new request record. The unique index on
// (reservation_id, intent) makes a duplicate save fail; callers are expected
// to check HasBeenProcessed first and treat an existing pair as already
// processed, never as an error.
func (l *Ledger) SaveRequest(req *models.ProcessedRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if result := l.db.Create(req); result.Error != nil {
		return fmt.Errorf("failed to save request: %w", result.Error)
	}
	return nil
}

// UpdateStatus overwrites the status of a request. Legal transition order is
// the pipeline's responsibility, not the ledger's.
func (l *Ledger) UpdateStatus(requestID, status string) error {
	result := l.db.Model(&models.ProcessedRequest{}).
		Where("request_id = ?", requestID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update request status: %w", result.Error)
	}
	return nil
}

// GetRequest looks up a request by its correlation id. Returns nil when absent.
func (l *Ledger) GetRequest(requestID string) (*models.ProcessedRequest, error) {
	var req models.ProcessedRequest
	result := l.db.Where("request_id = ?", requestID).First(&req)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get request: %w", result.Error)
	}
	return &req, nil
}

// GetHistory returns all requests for a reservation, oldest first.
func (l *Ledger) GetHistory(reservationID int64) ([]models.ProcessedRequest, error) {
	var reqs []models.ProcessedRequest
	result := l.db.Where("reservation_id = ?", reservationID).
		Order("created_at ASC, id ASC").
		Find(&reqs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get request history: %w", result.Error)
	}
	return reqs, nil
}

// -- draft management --------------------------------------------------------

// SaveDraft stores a draft for owner review and returns its id.
func (l *Ledger) SaveDraft(requestID string, reservationID int64, intent, step, body string) (uint, error) {
	draft := models.Draft{
		RequestID:     requestID,
		ReservationID: reservationID,
		Intent:        intent,
		Step:          step,
		Body:          body,
		Verdict:       models.VerdictPending,
		CreatedAt:     time.Now().UTC(),
	}
	if result := l.db.Create(&draft); result.Error != nil {
		return 0, fmt.Errorf("failed to save draft: %w", result.Error)
	}
	return draft.ID, nil
}

// GetPendingDrafts returns all drafts awaiting review, oldest first.
func (l *Ledger) GetPendingDrafts() ([]models.Draft, error) {
	var drafts []models.Draft
	result := l.db.Where("verdict = ?", models.VerdictPending).
		Order("created_at ASC, id ASC").
		Find(&drafts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get pending drafts: %w", result.Error)
	}
	return drafts, nil
}

// GetDraft looks up a draft by id. Returns nil when absent.
func (l *Ledger) GetDraft(draftID uint) (*models.Draft, error) {
	var draft models.Draft
	result := l.db.First(&draft, draftID)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get draft: %w", result.Error)
	}
	return &draft, nil
}

// ReviewDraft records the owner's verdict on a pending draft. A draft can be
// reviewed exactly once; the verdict never goes back to pending. The update
// is conditional on the draft still being pending, so two racing reviews
// cannot both win.
func (l *Ledger) ReviewDraft(draftID uint, verdict string, actualMessageSent, ownerComment *string) error {
	if verdict != models.VerdictOK && verdict != models.VerdictNOK {
		return fmt.Errorf("invalid verdict: %q", verdict)
	}

	now := time.Now().UTC()
	result := l.db.Model(&models.Draft{}).
		Where("id = ? AND verdict = ?", draftID, models.VerdictPending).
		Updates(map[string]interface{}{
			"verdict":             verdict,
			"actual_message_sent": actualMessageSent,
			"owner_comment":       ownerComment,
			"reviewed_at":         &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to review draft: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// The conditional update already settled any race; the read only
		// tells us which way it went.
		draft, err := l.GetDraft(draftID)
		if err != nil {
			return err
		}
		if draft == nil {
			return fmt.Errorf("draft %d: %w", draftID, ErrDraftNotFound)
		}
		return fmt.Errorf("draft %d (%s): %w", draftID, draft.Verdict, ErrAlreadyReviewed)
	}
	return nil
}
