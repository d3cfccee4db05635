package smoobu

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"checkin-concierge-go/internal/models"
)

// SentMessage records a guest-facing send for test assertions.
type SentMessage struct {
	ReservationID int64
	Subject       string
	Body          string
}

// Simulator is an in-memory Gateway for tests and dry runs. No mocking
// framework needed: inject reservations and messages, then inspect Sent.
type Simulator struct {
	mu           sync.Mutex
	reservations map[int64]models.ReservationInfo
	messages     map[int64][]models.GuestMessage
	activity     map[int64]time.Time
	nextID       int64
	pageSize     int

	// Sent holds everything recorded by SendMessage.
	Sent []SentMessage

	// FailMessagesFor makes ListMessages fail for one reservation,
	// for error-isolation tests.
	FailMessagesFor int64
	// FailThreadsFrom makes ListRecentThreads fail from that page on.
	FailThreadsFrom int
}

func NewSimulator() *Simulator {
	return &Simulator{
		reservations: make(map[int64]models.ReservationInfo),
		messages:     make(map[int64][]models.GuestMessage),
		activity:     make(map[int64]time.Time),
		nextID:       1,
		pageSize:     threadPageSize,
	}
}

// SetPageSize shrinks the thread page size so pagination is exercised
// with a handful of fixtures.
func (s *Simulator) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// InjectReservation registers booking metadata.
func (s *Simulator) InjectReservation(info models.ReservationInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations[info.ReservationID] = info
}

// InjectGuestMessage simulates a guest sending a message and returns its id.
func (s *Simulator) InjectGuestMessage(reservationID int64, subject, body string) int64 {
	return s.injectMessage(reservationID, subject, body, models.DirectionGuest)
}

// InjectHostMessage simulates the host side of the conversation.
func (s *Simulator) InjectHostMessage(reservationID int64, subject, body string) int64 {
	return s.injectMessage(reservationID, subject, body, models.DirectionHost)
}

func (s *Simulator) injectMessage(reservationID int64, subject, body, direction string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.messages[reservationID] = append(s.messages[reservationID], models.GuestMessage{
		MessageID: id,
		Subject:   subject,
		Body:      body,
		Direction: direction,
	})
	s.activity[reservationID] = time.Now().UTC()
	return id
}

// SetActivity overrides a reservation's latest activity timestamp.
func (s *Simulator) SetActivity(reservationID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[reservationID] = at
}

func (s *Simulator) ListRecentThreads(_ context.Context, page int) (models.ThreadPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailThreadsFrom > 0 && page >= s.FailThreadsFrom {
		return models.ThreadPage{}, fmt.Errorf("simulated thread listing failure on page %d", page)
	}

	all := make([]models.ThreadSummary, 0, len(s.activity))
	for id, at := range s.activity {
		all = append(all, models.ThreadSummary{ReservationID: id, LatestActivityAt: at})
	}
	// Most recent first, the order the live feed guarantees.
	sort.Slice(all, func(i, j int) bool {
		return all[i].LatestActivityAt.After(all[j].LatestActivityAt)
	})

	start := (page - 1) * s.pageSize
	if start >= len(all) {
		return models.ThreadPage{Threads: nil, HasMore: false}, nil
	}
	end := start + s.pageSize
	if end > len(all) {
		end = len(all)
	}
	return models.ThreadPage{
		Threads: all[start:end],
		HasMore: end < len(all),
	}, nil
}

func (s *Simulator) GetReservation(_ context.Context, reservationID int64) (*models.ReservationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.reservations[reservationID]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (s *Simulator) ListMessages(_ context.Context, reservationID int64) ([]models.GuestMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMessagesFor != 0 && reservationID == s.FailMessagesFor {
		return nil, fmt.Errorf("simulated message fetch failure for reservation %d", reservationID)
	}
	msgs := s.messages[reservationID]
	out := make([]models.GuestMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *Simulator) SendMessage(_ context.Context, reservationID int64, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentMessage{ReservationID: reservationID, Subject: subject, Body: body})
	// The sent message also appears in the conversation, host side.
	id := s.nextID
	s.nextID++
	s.messages[reservationID] = append(s.messages[reservationID], models.GuestMessage{
		MessageID: id,
		Subject:   subject,
		Body:      body,
		Direction: models.DirectionHost,
	})
	return nil
}
