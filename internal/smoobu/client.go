package smoobu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"checkin-concierge-go/internal/models"
)

// Gateway is how the daemon talks to the booking platform. The pipeline and
// scanner depend only on this interface; whether messages go through the
// real Smoobu API or the in-memory simulator is a wiring decision.
type Gateway interface {
	ListRecentThreads(ctx context.Context, page int) (models.ThreadPage, error)
	GetReservation(ctx context.Context, reservationID int64) (*models.ReservationInfo, error)
	ListMessages(ctx context.Context, reservationID int64) ([]models.GuestMessage, error)
	// SendMessage is invoked only by the human-approved send path,
	// never by the pipeline itself.
	SendMessage(ctx context.Context, reservationID int64, subject, body string) error
}

const threadPageSize = 25

// Client is the live Smoobu HTTP adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doGet(ctx context.Context, path string, query map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
}

var errNotFound = fmt.Errorf("not found")

type threadListResponse struct {
	Data []struct {
		Booking struct {
			ID int64 `json:"id"`
		} `json:"booking"`
		LatestMessage struct {
			CreatedAt string `json:"created_at"`
		} `json:"latest_message"`
	} `json:"data"`
	PageCount int `json:"page_count"`
}

// ListRecentThreads returns one page of the activity feed, most recent first.
func (c *Client) ListRecentThreads(ctx context.Context, page int) (models.ThreadPage, error) {
	var raw threadListResponse
	err := c.doGet(ctx, "/threads", map[string]string{
		"page_number": strconv.Itoa(page),
		"page_size":   strconv.Itoa(threadPageSize),
	}, &raw)
	if err != nil {
		return models.ThreadPage{}, err
	}

	threads := make([]models.ThreadSummary, 0, len(raw.Data))
	for _, item := range raw.Data {
		latest, err := time.Parse(time.RFC3339, item.LatestMessage.CreatedAt)
		if err != nil {
			// A thread with an unparseable timestamp is treated as fresh
			// rather than dropped, so it still gets scanned.
			latest = time.Now().UTC()
		}
		threads = append(threads, models.ThreadSummary{
			ReservationID:    item.Booking.ID,
			LatestActivityAt: latest,
		})
	}

	return models.ThreadPage{
		Threads: threads,
		HasMore: page < raw.PageCount,
	}, nil
}

type reservationResponse struct {
	ID        int64  `json:"id"`
	GuestName string `json:"guest-name"`
	Arrival   string `json:"arrival"`
	Departure string `json:"departure"`
	Apartment struct {
		Name string `json:"name"`
	} `json:"apartment"`
}

// GetReservation fetches booking metadata. Returns nil for unknown ids.
func (c *Client) GetReservation(ctx context.Context, reservationID int64) (*models.ReservationInfo, error) {
	var raw reservationResponse
	err := c.doGet(ctx, fmt.Sprintf("/reservations/%d", reservationID), nil, &raw)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.ReservationInfo{
		ReservationID: raw.ID,
		GuestName:     raw.GuestName,
		PropertyName:  raw.Apartment.Name,
		ArrivalDate:   raw.Arrival,
		DepartureDate: raw.Departure,
	}, nil
}

type messageListResponse struct {
	Messages []struct {
		ID      int64  `json:"id"`
		Subject string `json:"subject"`
		Message string `json:"message"`
		Type    int    `json:"type"`
	} `json:"messages"`
}

// ListMessages returns the conversation for a reservation in platform order.
// Smoobu marks incoming guest messages with type 1; everything else is the
// host side of the conversation.
func (c *Client) ListMessages(ctx context.Context, reservationID int64) ([]models.GuestMessage, error) {
	var raw messageListResponse
	err := c.doGet(ctx, fmt.Sprintf("/reservations/%d/messages", reservationID), nil, &raw)
	if err != nil {
		return nil, err
	}

	messages := make([]models.GuestMessage, 0, len(raw.Messages))
	for _, m := range raw.Messages {
		direction := models.DirectionHost
		if m.Type == 1 {
			direction = models.DirectionGuest
		}
		messages = append(messages, models.GuestMessage{
			MessageID: m.ID,
			Subject:   m.Subject,
			Body:      m.Message,
			Direction: direction,
		})
	}
	return messages, nil
}

// SendMessage sends a message to the guest on a reservation.
func (c *Client) SendMessage(ctx context.Context, reservationID int64, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"subject":     subject,
		"messageBody": body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/reservations/%d/messages/send-message-to-guest", c.baseURL, reservationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d sending message: %s", resp.StatusCode, respBody)
	}
	return nil
}
