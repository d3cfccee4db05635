package pipeline

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"checkin-concierge-go/internal/cleaner"
	"checkin-concierge-go/internal/gate"
	"checkin-concierge-go/internal/ledger"
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

type testRig struct {
	pipeline *Pipeline
	ledger   *ledger.Ledger
	notifier *cleaner.ConsoleNotifier
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	l := ledger.New(openTestDB(t))
	notifier := cleaner.NewConsoleNotifier()
	p := New(
		l,
		gate.NewSimulatorClassifier(),
		gate.NewSimulatorAcknowledger(),
		gate.NewSimulatorParser(),
		gate.NewSimulatorComposer(),
		notifier,
		"Marie",
	)
	return &testRig{pipeline: p, ledger: l, notifier: notifier}
}

func testContext(reservationID int64) models.ConversationContext {
	return models.ConversationContext{
		ReservationID:       reservationID,
		GuestName:           "Alice Martin",
		PropertyName:        "Appartement Centre",
		ArrivalDate:         "2026-09-10",
		DepartureDate:       "2026-09-14",
		DefaultCheckinTime:  "15:00",
		DefaultCheckoutTime: "11:00",
	}
}

func TestProcessMessageEarlyCheckinCreatesTwoDrafts(t *testing.T) {
	rig := newTestRig(t)
	msg := models.GuestMessage{
		MessageID: 101,
		Body:      "Can I check in earlier, around 12:00?",
		Direction: models.DirectionGuest,
	}

	result, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5001))
	require.NoError(t, err)
	assert.Equal(t, ActionDraftsCreated, result.Action)
	assert.NotEmpty(t, result.RequestID)
	assert.Len(t, result.DraftIDs, 2)

	req, err := rig.ledger.GetRequest(result.RequestID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, models.IntentEarlyCheckin, req.Intent)
	assert.Equal(t, models.StatusPendingAcknowledgment, req.Status)
	assert.Equal(t, "12:00", req.RequestedTime)
	assert.Equal(t, "15:00", req.OriginalTime)
	assert.Equal(t, "2026-09-10", req.RelevantDate)

	drafts, err := rig.ledger.GetPendingDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	steps := []string{drafts[0].Step, drafts[1].Step}
	assert.Contains(t, steps, models.StepAcknowledgment)
	assert.Contains(t, steps, models.StepCleanerQuery)

	// The cleaner query went out on the channel.
	require.Len(t, rig.notifier.Queries, 1)
	assert.Equal(t, result.RequestID, rig.notifier.Queries[0].RequestID)
}

func TestProcessMessageLateCheckoutUsesDepartureSide(t *testing.T) {
	rig := newTestRig(t)
	msg := models.GuestMessage{
		MessageID: 102,
		Body:      "Serait-il possible de partir plus tard, vers 13h ?",
		Direction: models.DirectionGuest,
	}

	result, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5002))
	require.NoError(t, err)
	assert.Equal(t, ActionDraftsCreated, result.Action)

	req, err := rig.ledger.GetRequest(result.RequestID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, models.IntentLateCheckout, req.Intent)
	assert.Equal(t, "13:00", req.RequestedTime)
	assert.Equal(t, "11:00", req.OriginalTime)
	assert.Equal(t, "2026-09-14", req.RelevantDate)
}

func TestProcessMessageSameMessageTwiceCreatesNoExtraDrafts(t *testing.T) {
	rig := newTestRig(t)
	msg := models.GuestMessage{
		MessageID: 103,
		Body:      "Can I check in earlier, around 12:00?",
		Direction: models.DirectionGuest,
	}

	first, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5003))
	require.NoError(t, err)
	assert.Equal(t, ActionDraftsCreated, first.Action)

	second, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5003))
	require.NoError(t, err)
	assert.Equal(t, ActionAlreadyProcessed, second.Action)
	assert.Empty(t, second.DraftIDs)

	drafts, err := rig.ledger.GetPendingDrafts()
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
}

func TestProcessMessageSameIntentNewMessageIsDeduplicated(t *testing.T) {
	rig := newTestRig(t)
	ctx := testContext(5004)

	first, err := rig.pipeline.ProcessMessage(context.Background(), models.GuestMessage{
		MessageID: 104,
		Body:      "Can I check in earlier, around 12:00?",
	}, ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionDraftsCreated, first.Action)

	// Different message id, same reservation and intent.
	second, err := rig.pipeline.ProcessMessage(context.Background(), models.GuestMessage{
		MessageID: 105,
		Body:      "Just checking you saw my early check-in request, 12:30 would work too",
	}, ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAlreadyProcessed, second.Action)

	history, err := rig.ledger.GetHistory(5004)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestProcessMessageOtherIntentIsIgnored(t *testing.T) {
	rig := newTestRig(t)
	msg := models.GuestMessage{
		MessageID: 106,
		Body:      "What is the wifi password?",
	}

	result, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5005))
	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, result.Action)

	// Ignored messages are still marked seen so they are never re-classified.
	seen, err := rig.ledger.HasMessageBeenSeen(106)
	require.NoError(t, err)
	assert.True(t, seen)

	drafts, err := rig.ledger.GetPendingDrafts()
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestProcessMessageNoTimeNeedsFollowup(t *testing.T) {
	rig := newTestRig(t)
	msg := models.GuestMessage{
		MessageID: 107,
		Body:      "Would it be possible to check in earlier?",
	}

	result, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5006))
	require.NoError(t, err)
	assert.Equal(t, ActionFollowupDrafted, result.Action)
	require.Len(t, result.DraftIDs, 1)

	req, err := rig.ledger.GetRequest(result.RequestID)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, models.StatusAwaitingFollowup, req.Status)

	drafts, err := rig.ledger.GetPendingDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, models.StepFollowup, drafts[0].Step)
	assert.NotEmpty(t, drafts[0].Body)

	// No cleaner query until the guest names a time.
	assert.Empty(t, rig.notifier.Queries)
}

func TestProcessCleanerResponseDraftsGuestReply(t *testing.T) {
	rig := newTestRig(t)
	msg := models.GuestMessage{
		MessageID: 108,
		Body:      "Can I check in earlier, around 12:00?",
	}

	created, err := rig.pipeline.ProcessMessage(context.Background(), msg, testContext(5007))
	require.NoError(t, err)
	require.Equal(t, ActionDraftsCreated, created.Action)

	rig.notifier.SimulateResponse(created.RequestID, "Oui, pas de problème !")
	responses, err := rig.notifier.PollResponses(context.Background())
	require.NoError(t, err)
	require.Len(t, responses, 1)

	result, err := rig.pipeline.ProcessCleanerResponse(context.Background(), responses[0])
	require.NoError(t, err)
	assert.Equal(t, ActionReplyDrafted, result.Action)

	req, err := rig.ledger.GetRequest(created.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReply, req.Status)

	drafts, err := rig.ledger.GetPendingDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	var reply *models.Draft
	for i := range drafts {
		if drafts[i].Step == models.StepGuestReply {
			reply = &drafts[i]
		}
	}
	require.NotNil(t, reply)
	assert.Contains(t, reply.Body, "12:00")
	assert.Contains(t, reply.Body, "Alice Martin")
}

func TestProcessCleanerResponseUnknownRequestStillDrafts(t *testing.T) {
	rig := newTestRig(t)

	result, err := rig.pipeline.ProcessCleanerResponse(context.Background(), models.CleanerResponse{
		RequestID: "no-such-request",
		RawText:   "Non désolée, pas possible",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionReplyDrafted, result.Action)

	drafts, err := rig.ledger.GetPendingDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, models.StepGuestReply, drafts[0].Step)
	assert.Equal(t, "no-such-request", drafts[0].RequestID)
}
