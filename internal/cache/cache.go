package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"checkin-concierge-go/internal/models"
)

// ReservationCache stores booking metadata keyed by reservation id so the
// daemon fetches it at most once. No TTL and no eviction: the entity count
// for one property is small and the cached fields are immutable after
// booking confirmation.
type ReservationCache interface {
	Get(ctx context.Context, reservationID int64) (*models.ReservationInfo, error)
	Store(ctx context.Context, info models.ReservationInfo) error
}

// DBCache persists reservation metadata in the same database as the ledger.
type DBCache struct {
	db *gorm.DB
}

func NewDBCache(db *gorm.DB) *DBCache {
	return &DBCache{db: db}
}

func (c *DBCache) Get(ctx context.Context, reservationID int64) (*models.ReservationInfo, error) {
	var row models.CachedReservation
	result := c.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&row)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to read reservation cache: %w", result.Error)
	}
	return &models.ReservationInfo{
		ReservationID: row.ReservationID,
		GuestName:     row.GuestName,
		PropertyName:  row.PropertyName,
		ArrivalDate:   row.ArrivalDate,
		DepartureDate: row.DepartureDate,
	}, nil
}

func (c *DBCache) Store(ctx context.Context, info models.ReservationInfo) error {
	row := models.CachedReservation{
		ReservationID: info.ReservationID,
		GuestName:     info.GuestName,
		PropertyName:  info.PropertyName,
		ArrivalDate:   info.ArrivalDate,
		DepartureDate: info.DepartureDate,
		CachedAt:      time.Now().UTC(),
	}
	if result := c.db.WithContext(ctx).Save(&row); result.Error != nil {
		return fmt.Errorf("failed to store reservation cache entry: %w", result.Error)
	}
	return nil
}

// MemoryCache is a map-backed cache for tests and single-run tools.
type MemoryCache struct {
	mu    sync.RWMutex
	store map[int64]models.ReservationInfo
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: make(map[int64]models.ReservationInfo)}
}

func (c *MemoryCache) Get(_ context.Context, reservationID int64) (*models.ReservationInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.store[reservationID]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (c *MemoryCache) Store(_ context.Context, info models.ReservationInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[info.ReservationID] = info
	return nil
}
