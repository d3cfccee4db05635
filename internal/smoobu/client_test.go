package smoobu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-concierge-go/internal/models"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key")
}

func TestListRecentThreadsParsesPage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		assert.Equal(t, "2", r.URL.Query().Get("page_number"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [
				{"booking": {"id": 11}, "latest_message": {"created_at": "2026-02-20T10:00:00Z"}},
				{"booking": {"id": 12}, "latest_message": {"created_at": "2026-02-19T08:30:00Z"}}
			],
			"page_count": 3
		}`))
	})

	page, err := client.ListRecentThreads(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, page.Threads, 2)
	assert.Equal(t, int64(11), page.Threads[0].ReservationID)
	assert.True(t, page.HasMore)
}

func TestListRecentThreadsLastPage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [], "page_count": 3}`))
	})

	page, err := client.ListRecentThreads(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, page.Threads)
	assert.False(t, page.HasMore)
}

func TestGetReservationMapsFields(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reservations/42", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 42,
			"guest-name": "Claire Dupont",
			"arrival": "2026-03-05",
			"departure": "2026-03-07",
			"apartment": {"name": "Le Matisse"}
		}`))
	})

	info, err := client.GetReservation(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Claire Dupont", info.GuestName)
	assert.Equal(t, "Le Matisse", info.PropertyName)
	assert.Equal(t, "2026-03-05", info.ArrivalDate)
}

func TestGetReservationNotFoundReturnsNil(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	info, err := client.GetReservation(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestListMessagesMapsDirection(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reservations/42/messages", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"messages": [
				{"id": 1, "subject": "", "message": "Bonjour !", "type": 1},
				{"id": 2, "subject": "Re", "message": "Bienvenue", "type": 2}
			]
		}`))
	})

	messages, err := client.ListMessages(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, models.DirectionGuest, messages[0].Direction)
	assert.Equal(t, models.DirectionHost, messages[1].Direction)
}

func TestSendMessagePostsPayload(t *testing.T) {
	var gotPath string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	err := client.SendMessage(context.Background(), 42, "Re: check-in", "Bonne nouvelle !")
	require.NoError(t, err)
	assert.Equal(t, "/reservations/42/messages/send-message-to-guest", gotPath)
}

func TestServerErrorIsSurfaced(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ListMessages(context.Background(), 42)
	assert.Error(t, err)
}
