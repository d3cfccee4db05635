package scanner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-concierge-go/internal/models"
)

// pagedFeed is a scripted Gateway feed: fixed pages, a fetch counter, and
// an optional page that fails.
type pagedFeed struct {
	pages    [][]models.ThreadSummary
	fetched  int
	failPage int
}

func (f *pagedFeed) ListRecentThreads(_ context.Context, page int) (models.ThreadPage, error) {
	f.fetched++
	if f.failPage != 0 && page == f.failPage {
		return models.ThreadPage{}, fmt.Errorf("boom on page %d", page)
	}
	if page > len(f.pages) {
		return models.ThreadPage{}, nil
	}
	return models.ThreadPage{
		Threads: f.pages[page-1],
		HasMore: page < len(f.pages),
	}, nil
}

func (f *pagedFeed) GetReservation(context.Context, int64) (*models.ReservationInfo, error) {
	return nil, nil
}
func (f *pagedFeed) ListMessages(context.Context, int64) ([]models.GuestMessage, error) {
	return nil, nil
}
func (f *pagedFeed) SendMessage(context.Context, int64, string, string) error { return nil }

func thread(id int64, age time.Duration) models.ThreadSummary {
	return models.ThreadSummary{
		ReservationID:    id,
		LatestActivityAt: time.Now().UTC().Add(-age),
	}
}

func TestScanCollectsFreshThreads(t *testing.T) {
	feed := &pagedFeed{pages: [][]models.ThreadSummary{
		{thread(1, time.Hour), thread(2, 2*time.Hour)},
	}}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	ids, err := New(feed).Scan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestScanStopsAtFirstFullyStalePage(t *testing.T) {
	// Page 3 is the first fully stale page; pages 4+ must never be fetched.
	feed := &pagedFeed{pages: [][]models.ThreadSummary{
		{thread(1, time.Hour), thread(2, 2*time.Hour)},
		{thread(3, 20*time.Hour), thread(4, 30*time.Hour)},
		{thread(5, 40*time.Hour), thread(6, 50*time.Hour)},
		{thread(7, 60*time.Hour)},
		{thread(8, 70*time.Hour)},
	}}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	ids, err := New(feed).Scan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, 3, feed.fetched, "exactly the first fully stale page is fetched, nothing after it")
}

func TestScanEmptyPageTerminates(t *testing.T) {
	feed := &pagedFeed{pages: [][]models.ThreadSummary{}}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	ids, err := New(feed).Scan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 1, feed.fetched)
}

func TestScanDeduplicatesFirstOccurrenceWins(t *testing.T) {
	feed := &pagedFeed{pages: [][]models.ThreadSummary{
		{thread(1, time.Hour), thread(2, 2*time.Hour)},
		{thread(1, 3*time.Hour), thread(3, 4*time.Hour)},
	}}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	ids, err := New(feed).Scan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestScanFailureKeepsCollectedIDs(t *testing.T) {
	feed := &pagedFeed{
		pages: [][]models.ThreadSummary{
			{thread(1, time.Hour), thread(2, 2*time.Hour)},
			{thread(3, 3*time.Hour)},
		},
		failPage: 2,
	}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	ids, err := New(feed).Scan(context.Background(), cutoff)
	assert.Error(t, err)
	assert.Equal(t, []int64{1, 2}, ids, "page 1's ids survive the page 2 failure")
}

func TestScanRespectsHasMoreFalse(t *testing.T) {
	feed := &pagedFeed{pages: [][]models.ThreadSummary{
		{thread(1, time.Hour)},
	}}
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	_, err := New(feed).Scan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.fetched)
}
