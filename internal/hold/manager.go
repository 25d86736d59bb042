// Package hold manages slot holds: short leases on the resources behind a
// selected slot that keep other callers from allocating them while a
// booking is being written.
package hold

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booking-engine/internal/apperr"
	"github.com/iliyamo/booking-engine/internal/logging"
	"github.com/iliyamo/booking-engine/internal/metrics"
	"github.com/iliyamo/booking-engine/internal/model"
	"github.com/iliyamo/booking-engine/internal/store"
)

// DefaultTTL is the lease length of a hold.
const DefaultTTL = 5 * time.Minute

// Manager writes and releases holds.
type Manager struct {
	holds store.Holds
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

// NewManager returns a manager leasing holds for ttl.  A non-positive ttl
// means DefaultTTL.
func NewManager(holds store.Holds, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{holds: holds, ttl: ttl, now: time.Now, log: logging.WithComponent("hold")}
}

// WithClock replaces the manager's clock.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// TTL returns the lease length.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Create holds every resource for [start, end) on date and returns the hold
// ids.  The holds are written in one call; if it fails none of them exist.
func (m *Manager) Create(ctx context.Context, businessID, date, start, end string, resources []model.ResourceRef) ([]string, error) {
	if len(resources) == 0 {
		return nil, apperr.Validation("no resources to hold")
	}
	now := m.now().UTC()
	expires := now.Add(m.ttl)
	holds := make([]model.SlotHold, 0, len(resources))
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		h := model.SlotHold{
			ID:           uuid.NewString(),
			BusinessID:   businessID,
			Date:         date,
			StartTime:    start,
			EndTime:      end,
			ResourceType: r.Type,
			ResourceID:   r.ID,
			ExpiresAt:    expires,
			CreatedAt:    now,
		}
		holds = append(holds, h)
		ids = append(ids, h.ID)
	}
	if err := m.holds.InsertHolds(ctx, holds); err != nil {
		return nil, apperr.Store("create holds", err)
	}
	metrics.HoldsCreated.Add(float64(len(holds)))
	return ids, nil
}

// Release deletes the given holds.  Releasing a hold that already expired
// or was deleted is not an error.
func (m *Manager) Release(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := m.holds.DeleteHolds(ctx, ids); err != nil {
		return apperr.Store("release holds", err)
	}
	return nil
}

// Sweep deletes holds whose lease has run out.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.holds.DeleteExpiredHolds(ctx, m.now().UTC())
	if err != nil {
		return 0, apperr.Store("sweep holds", err)
	}
	if n > 0 {
		metrics.HoldsSwept.Add(float64(n))
		m.log.Debug().Int64("deleted", n).Msg("expired holds swept")
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.log.Warn().Err(err).Msg("hold sweep failed")
			}
		}
	}
}
