package scanner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"checkin-concierge-go/internal/smoobu"
)

// Scanner walks the platform's recent-activity feed and collects the
// reservations with activity inside the cutoff window. The feed is sorted
// most-recent-first, so the first page whose threads are all older than the
// cutoff proves every later page is stale too and the walk stops there.
// That bounds API calls by the number of active reservations, not the
// number of reservations ever booked.
type Scanner struct {
	gateway smoobu.Gateway
}

func New(gateway smoobu.Gateway) *Scanner {
	return &Scanner{gateway: gateway}
}

// Scan returns the ids of reservations with activity at or after the
// cutoff, first occurrence first, deduplicated. A page-fetch failure stops
// the walk but keeps everything collected so far: a truncated scan still
// lets the cycle process the reservations it found.
func (s *Scanner) Scan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)

	for page := 1; ; page++ {
		threadPage, err := s.gateway.ListRecentThreads(ctx, page)
		if err != nil {
			logrus.Errorf("Thread scan stopped on page %d: %v", page, err)
			return ids, err
		}

		if len(threadPage.Threads) == 0 {
			break
		}

		anyFresh := false
		for _, thread := range threadPage.Threads {
			if thread.LatestActivityAt.Before(cutoff) {
				continue
			}
			anyFresh = true
			if thread.ReservationID == 0 || seen[thread.ReservationID] {
				continue
			}
			seen[thread.ReservationID] = true
			ids = append(ids, thread.ReservationID)
		}

		// A fully stale page means every later page is stale as well.
		if !anyFresh {
			break
		}
		if !threadPage.HasMore {
			break
		}
	}

	logrus.Debugf("Thread scan found %d active reservation(s)", len(ids))
	return ids, nil
}
