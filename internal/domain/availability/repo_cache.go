package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/cache"
	"github.com/clinic/clinic/internal/platform/metrics"
)

// cachedWeekly is the cache payload. Absent records that the practitioner
// does not work that day, so repeated misses do not reach the database.
type cachedWeekly struct {
	Absent bool                `json:"absent,omitempty"`
	Entry  *WeeklyAvailability `json:"entry,omitempty"`
}

// CachedWeeklyRepository is a read-through cache in front of a
// WeeklyRepository. Writes go to the underlying repository first and then
// invalidate the affected key. Cache failures degrade to direct reads.
//
// Each key carries a generation bumped by every write. A read fills the
// cache only if no write landed while it was loading, so a slow reader
// cannot put back a row that was replaced under it. The guard is per
// process; booking decisions read the repository directly.
type CachedWeeklyRepository struct {
	WeeklyRepository
	store   cache.Store
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	generations map[string]uint64
}

func NewCachedWeeklyRepository(next WeeklyRepository, store cache.Store, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *CachedWeeklyRepository {
	return &CachedWeeklyRepository{
		WeeklyRepository: next,
		store:            store,
		ttl:              ttl,
		logger:           logger,
		metrics:          m,
		generations:      make(map[string]uint64),
	}
}

func (r *CachedWeeklyRepository) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[key]
}

func weeklyKey(practitionerID uuid.UUID, day time.Weekday) string {
	return fmt.Sprintf("weekly:%s:%d", practitionerID, int(day))
}

func (r *CachedWeeklyRepository) GetWeeklyAvailability(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) (*WeeklyAvailability, error) {
	key := weeklyKey(practitionerID, day)

	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("weekly availability cache read failed")
	}
	if ok {
		var cw cachedWeekly
		if err := json.Unmarshal(raw, &cw); err == nil {
			r.metrics.ObserveCacheLookup(true)
			if cw.Absent || cw.Entry == nil {
				return nil, ErrNotFound
			}
			return cw.Entry, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable weekly availability cache entry")
	}
	r.metrics.ObserveCacheLookup(false)

	gen := r.generation(key)
	w, err := r.WeeklyRepository.GetWeeklyAvailability(ctx, practitionerID, day)
	switch {
	case errors.Is(err, ErrNotFound):
		r.put(ctx, key, gen, cachedWeekly{Absent: true})
		return nil, err
	case err != nil:
		return nil, err
	}
	r.put(ctx, key, gen, cachedWeekly{Entry: w})
	return w, nil
}

// put stores cw unless a write has bumped the key past gen.
func (r *CachedWeeklyRepository) put(ctx context.Context, key string, gen uint64, cw cachedWeekly) {
	raw, err := json.Marshal(cw)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations[key] != gen {
		r.logger.Debug().Str("key", key).Msg("skipping cache fill superseded by a write")
		return
	}
	if err := r.store.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("weekly availability cache write failed")
	}
}

func (r *CachedWeeklyRepository) invalidate(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) {
	key := weeklyKey(practitionerID, day)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[key]++
	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("weekly availability cache invalidation failed")
	}
}

func (r *CachedWeeklyRepository) Upsert(ctx context.Context, w *WeeklyAvailability) error {
	if err := r.WeeklyRepository.Upsert(ctx, w); err != nil {
		return err
	}
	r.invalidate(ctx, w.PractitionerID, w.DayOfWeek)
	return nil
}

func (r *CachedWeeklyRepository) Deactivate(ctx context.Context, practitionerID uuid.UUID, day time.Weekday) error {
	if err := r.WeeklyRepository.Deactivate(ctx, practitionerID, day); err != nil {
		return err
	}
	r.invalidate(ctx, practitionerID, day)
	return nil
}
