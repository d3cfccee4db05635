package cleaner

import (
	"context"
	"fmt"

	"checkin-concierge-go/internal/models"
)

// Notifier is how the system talks to the cleaning staff. The pipeline
// depends only on this interface; whether queries travel by email or stay
// on the console is a wiring decision made once at startup.
type Notifier interface {
	// SendQuery delivers a question to the cleaner and returns a tracking id.
	SendQuery(ctx context.Context, query models.CleanerQuery) (string, error)
	// PollResponses returns all replies received since the last poll.
	PollResponses(ctx context.Context) ([]models.CleanerResponse, error)
	Close() error
}

// RenderQuery builds the human-readable question sent to the cleaner.
func RenderQuery(q models.CleanerQuery) string {
	var action string
	if q.RequestType == models.IntentEarlyCheckin {
		action = fmt.Sprintf("arriver à %s au lieu de %s", q.RequestedTime, q.OriginalTime)
	} else {
		action = fmt.Sprintf("partir à %s au lieu de %s", q.RequestedTime, q.OriginalTime)
	}
	return fmt.Sprintf(
		"Bonjour %s,\n\n"+
			"%s (%s) demande à %s le %s.\n\n"+
			"Est-ce que c'est possible pour toi ?\n\n"+
			"Message du voyageur : %s\n",
		q.CleanerName, q.GuestName, q.PropertyName, action, q.Date, q.Message,
	)
}
