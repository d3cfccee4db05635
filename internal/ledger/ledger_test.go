package ledger

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"checkin-concierge-go/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	// A pooled second connection would see a different :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.ProcessedRequest{},
		&models.Draft{},
		&models.SeenMessage{},
	))
	return db
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(openTestDB(t))
}

func saveRequest(t *testing.T, l *Ledger, reservationID int64, intent, requestID string) {
	t.Helper()
	require.NoError(t, l.SaveRequest(&models.ProcessedRequest{
		ReservationID: reservationID,
		Intent:        intent,
		RequestID:     requestID,
		Status:        models.StatusPendingAcknowledgment,
		GuestMessage:  "Bonjour, puis-je arriver vers 12h ?",
	}))
}

func TestMarkMessageSeenIsIdempotent(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.MarkMessageSeen(101, 1))
	require.NoError(t, l.MarkMessageSeen(101, 1))

	seen, err := l.HasMessageBeenSeen(101)
	require.NoError(t, err)
	assert.True(t, seen)

	var count int64
	require.NoError(t, l.db.Model(&models.SeenMessage{}).Where("message_id = ?", 101).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestHasMessageBeenSeenUnknownID(t *testing.T) {
	l := newTestLedger(t)

	seen, err := l.HasMessageBeenSeen(999)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestHasBeenProcessedIsIndependentPerPair(t *testing.T) {
	l := newTestLedger(t)

	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	processed, err := l.HasBeenProcessed(1, models.IntentEarlyCheckin)
	require.NoError(t, err)
	assert.True(t, processed)

	// Same reservation, other intent — independent.
	processed, err = l.HasBeenProcessed(1, models.IntentLateCheckout)
	require.NoError(t, err)
	assert.False(t, processed)

	// Other reservation, same intent — independent.
	processed, err = l.HasBeenProcessed(2, models.IntentEarlyCheckin)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestSaveRequestRejectsDuplicatePair(t *testing.T) {
	l := newTestLedger(t)

	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	err := l.SaveRequest(&models.ProcessedRequest{
		ReservationID: 1,
		Intent:        models.IntentEarlyCheckin,
		RequestID:     "req-2",
		Status:        models.StatusPendingAcknowledgment,
		GuestMessage:  "encore ?",
	})
	assert.Error(t, err)

	// The first record is untouched.
	req, err := l.GetRequest("req-1")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "Bonjour, puis-je arriver vers 12h ?", req.GuestMessage)
}

func TestUpdateStatusOverwrites(t *testing.T) {
	l := newTestLedger(t)

	saveRequest(t, l, 1, models.IntentLateCheckout, "req-1")
	require.NoError(t, l.UpdateStatus("req-1", models.StatusPendingReply))

	req, err := l.GetRequest("req-1")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, models.StatusPendingReply, req.Status)
}

func TestGetRequestUnknownIDReturnsNil(t *testing.T) {
	l := newTestLedger(t)

	req, err := l.GetRequest("no-such-request")
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestGetHistoryOrderedOldestFirst(t *testing.T) {
	l := newTestLedger(t)

	saveRequest(t, l, 7, models.IntentEarlyCheckin, "req-a")
	saveRequest(t, l, 7, models.IntentLateCheckout, "req-b")
	saveRequest(t, l, 8, models.IntentEarlyCheckin, "req-c")

	history, err := l.GetHistory(7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "req-a", history[0].RequestID)
	assert.Equal(t, "req-b", history[1].RequestID)
}

func TestSaveDraftAssignsMonotonicIDs(t *testing.T) {
	l := newTestLedger(t)
	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	first, err := l.SaveDraft("req-1", 1, models.IntentEarlyCheckin, models.StepAcknowledgment, "ack body")
	require.NoError(t, err)
	second, err := l.SaveDraft("req-1", 1, models.IntentEarlyCheckin, models.StepCleanerQuery, "query body")
	require.NoError(t, err)

	assert.Greater(t, second, first)
}

func TestReviewDraftRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	id, err := l.SaveDraft("req-1", 1, models.IntentEarlyCheckin, models.StepGuestReply, "Bonne nouvelle !")
	require.NoError(t, err)

	pending, err := l.GetPendingDrafts()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, l.ReviewDraft(id, models.VerdictOK, nil, nil))

	pending, err = l.GetPendingDrafts()
	require.NoError(t, err)
	assert.Empty(t, pending)

	draft, err := l.GetDraft(id)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.VerdictOK, draft.Verdict)
	assert.Equal(t, "Bonne nouvelle !", draft.Body)
	require.NotNil(t, draft.ReviewedAt)
}

func TestReviewDraftRecordsOwnerFeedback(t *testing.T) {
	l := newTestLedger(t)
	saveRequest(t, l, 1, models.IntentLateCheckout, "req-1")

	id, err := l.SaveDraft("req-1", 1, models.IntentLateCheckout, models.StepGuestReply, "draft text")
	require.NoError(t, err)

	actual := "what I really sent"
	comment := "tone was off"
	require.NoError(t, l.ReviewDraft(id, models.VerdictNOK, &actual, &comment))

	draft, err := l.GetDraft(id)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, models.VerdictNOK, draft.Verdict)
	require.NotNil(t, draft.ActualMessageSent)
	assert.Equal(t, actual, *draft.ActualMessageSent)
	require.NotNil(t, draft.OwnerComment)
	assert.Equal(t, comment, *draft.OwnerComment)
}

func TestReviewDraftRefusesSecondReview(t *testing.T) {
	l := newTestLedger(t)
	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	id, err := l.SaveDraft("req-1", 1, models.IntentEarlyCheckin, models.StepFollowup, "quelle heure ?")
	require.NoError(t, err)

	require.NoError(t, l.ReviewDraft(id, models.VerdictOK, nil, nil))
	err = l.ReviewDraft(id, models.VerdictNOK, nil, nil)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	draft, err := l.GetDraft(id)
	require.NoError(t, err)
	assert.Equal(t, models.VerdictOK, draft.Verdict)
}

func TestReviewDraftUnknownID(t *testing.T) {
	l := newTestLedger(t)

	err := l.ReviewDraft(4242, models.VerdictOK, nil, nil)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestConcurrentReviewsOnlyOneWins(t *testing.T) {
	l := newTestLedger(t)
	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	id, err := l.SaveDraft("req-1", 1, models.IntentEarlyCheckin, models.StepFollowup, "quelle heure ?")
	require.NoError(t, err)

	// Two racing reviews: the pending-only condition on the update means
	// exactly one of them lands, whichever order the database runs them in.
	errs := make(chan error, 2)
	go func() { errs <- l.ReviewDraft(id, models.VerdictOK, nil, nil) }()
	go func() { errs <- l.ReviewDraft(id, models.VerdictNOK, nil, nil) }()

	var won, lost int
	for i := 0; i < 2; i++ {
		if err := <-errs; err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyReviewed)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)

	draft, err := l.GetDraft(id)
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.NotEqual(t, models.VerdictPending, draft.Verdict)
	require.NotNil(t, draft.ReviewedAt)
}

func TestReviewDraftRejectsInvalidVerdict(t *testing.T) {
	l := newTestLedger(t)
	saveRequest(t, l, 1, models.IntentEarlyCheckin, "req-1")

	id, err := l.SaveDraft("req-1", 1, models.IntentEarlyCheckin, models.StepFollowup, "body")
	require.NoError(t, err)

	assert.Error(t, l.ReviewDraft(id, "maybe", nil, nil))
	assert.Error(t, l.ReviewDraft(id, models.VerdictPending, nil, nil))
}

func TestGetDraftUnknownIDReturnsNil(t *testing.T) {
	l := newTestLedger(t)

	draft, err := l.GetDraft(4242)
	require.NoError(t, err)
	assert.Nil(t, draft)
}
