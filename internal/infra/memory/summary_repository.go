package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizclash-service/internal/domain"
)

// SummaryLoader fetches archived game summaries from a backing store.
type SummaryLoader interface {
	LoadSummary(ctx context.Context, code string) (domain.GameSummary, error)
}

// SummaryRepository caches summaries with TTL so repeated lookups for the
// same finished game do not hit the archive.
type SummaryRepository struct {
	loader SummaryLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSummary
}

type cachedSummary struct {
	summary   domain.GameSummary
	expiresAt time.Time
}

func NewSummaryRepository(loader SummaryLoader, ttl time.Duration) *SummaryRepository {
	return &SummaryRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSummary),
	}
}

func (r *SummaryRepository) GetSummary(ctx context.Context, code string) (domain.GameSummary, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[code]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.summary, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[code]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.summary, nil
		}
		r.mu.RUnlock()

		summary, err := r.loader.LoadSummary(ctx, code)
		if err != nil {
			return domain.GameSummary{}, err
		}

		r.mu.Lock()
		r.cache[code] = cachedSummary{
			summary:   summary,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return summary, nil
	})
	if err != nil {
		return domain.GameSummary{}, err
	}
	return result.(domain.GameSummary), nil
}

func (r *SummaryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticSummaryLoader serves summaries from a map (useful for tests/demos).
type StaticSummaryLoader struct {
	summaries map[string]domain.GameSummary
}

func NewStaticSummaryLoader(summaries map[string]domain.GameSummary) *StaticSummaryLoader {
	return &StaticSummaryLoader{summaries: summaries}
}

func (l *StaticSummaryLoader) LoadSummary(_ context.Context, code string) (domain.GameSummary, error) {
	if summary, ok := l.summaries[code]; ok {
		return summary, nil
	}
	return domain.GameSummary{}, domain.ErrSummaryNotFound
}
