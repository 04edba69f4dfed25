package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizclash-service/internal/domain"
)

// SummaryLoader fetches archived game summaries from a backing store.
type SummaryLoader interface {
	LoadSummary(ctx context.Context, code string) (domain.GameSummary, error)
}

// SummaryRepository caches finished-game summaries in Redis as JSON
// (SET game:{code}:summary) and falls back to a loader on cache miss.
type SummaryRepository struct {
	client *redis.Client
	loader SummaryLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSummaryRepository(client *redis.Client, loader SummaryLoader, ttl time.Duration) *SummaryRepository {
	return &SummaryRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SummaryRepository) GetSummary(ctx context.Context, code string) (domain.GameSummary, error) {
	key := r.key(code)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var summary domain.GameSummary
		if err := json.Unmarshal(raw, &summary); err == nil {
			return summary, nil
		}
	}

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var summary domain.GameSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return summary, nil
			}
		}

		summary, err := r.loader.LoadSummary(ctx, code)
		if err != nil {
			return domain.GameSummary{}, err
		}

		if raw, err := json.Marshal(summary); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return summary, nil
	})
	if err != nil {
		return domain.GameSummary{}, err
	}
	return result.(domain.GameSummary), nil
}

func (r *SummaryRepository) key(code string) string {
	return "game:" + code + ":summary"
}

func (r *SummaryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
