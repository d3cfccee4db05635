package cleaner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"checkin-concierge-go/internal/models"
)

// ConsoleNotifier prints queries to stdout and buffers simulated responses
// in memory. Used for development and tests.
type ConsoleNotifier struct {
	mu      sync.Mutex
	pending []models.CleanerResponse

	// Queries records everything sent, for test assertions.
	Queries []models.CleanerQuery
}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) SendQuery(_ context.Context, query models.CleanerQuery) (string, error) {
	n.mu.Lock()
	n.Queries = append(n.Queries, query)
	n.mu.Unlock()

	sep := strings.Repeat("=", 60)
	fmt.Printf("\n%s\n", sep)
	fmt.Printf("  TO CLEANER: %s\n", query.CleanerName)
	fmt.Printf("  RE: %s — %s\n", query.PropertyName, query.Date)
	fmt.Printf("  REQUEST ID: %s\n", query.RequestID)
	fmt.Printf("%s\n%s\n%s\n\n", sep, RenderQuery(query), sep)

	return "console-" + query.RequestID, nil
}

func (n *ConsoleNotifier) PollResponses(_ context.Context) ([]models.CleanerResponse, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	responses := n.pending
	n.pending = nil
	return responses, nil
}

// SimulateResponse queues a cleaner reply, from tests or a dev console.
func (n *ConsoleNotifier) SimulateResponse(requestID, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, models.CleanerResponse{
		RequestID:  requestID,
		RawText:    text,
		ReceivedAt: time.Now().UTC(),
	})
}

func (n *ConsoleNotifier) Close() error {
	return nil
}
