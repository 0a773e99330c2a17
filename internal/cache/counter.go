package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pitchey/ndagate/internal/models"
)

// CounterStore keeps fixed-window counters in the primary database so that every
// instance behind a load balancer enforces the same limits.
type CounterStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCounterStore constructs a database-backed counter store.
func NewCounterStore(db *gorm.DB) *CounterStore {
	if db == nil {
		return nil
	}
	return &CounterStore{db: db, now: time.Now}
}

// IncrementWithTTL atomically increments the counter for key and reports the time left in
// its window. A lapsed window restarts at one.
func (s *CounterStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: counter store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now().UTC()
	var counter models.RateCounter

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.RateCounter{Key: key, WindowEnd: now.Add(window)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		// Acquire row-level lock
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&counter, "counter_key = ?", key).Error; err != nil {
			return err
		}

		if !counter.WindowEnd.After(now) {
			counter.Count = 0
			counter.WindowEnd = now.Add(window)
		}
		counter.Count++

		return tx.Model(&models.RateCounter{}).
			Where("counter_key = ?", key).
			Updates(map[string]any{"count": counter.Count, "window_end": counter.WindowEnd, "updated_at": now}).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return counter.Count, counter.WindowEnd.Sub(now), nil
}

// PurgeExpired removes counters whose window closed before now.
func (s *CounterStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: counter store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).Where("window_end < ?", now.UTC()).Delete(&models.RateCounter{})
	return result.RowsAffected, result.Error
}
