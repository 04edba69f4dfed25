package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizclash-service/internal/domain"
	"quizclash-service/internal/infra/memory"
)

func TestSummaryRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		SummaryLoader: memory.NewStaticSummaryLoader(map[string]domain.GameSummary{
			"1234": sampleSummary(),
		}),
	}
	repo := NewSummaryRepository(client, loader, time.Minute)

	summary, err := repo.GetSummary(context.Background(), "1234")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(summary.Leaderboard) != 2 || summary.Leaderboard[0].ID != "p1" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !mr.Exists("game:1234:summary") {
		t.Fatalf("expected summary cached in redis")
	}

	// Second call should hit redis, loader not incremented.
	if _, err := repo.GetSummary(context.Background(), "1234"); err != nil {
		t.Fatalf("get summary 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.SummaryLoader
	calls int
}

func (l *countingLoader) LoadSummary(ctx context.Context, code string) (domain.GameSummary, error) {
	l.calls++
	return l.SummaryLoader.LoadSummary(ctx, code)
}

func sampleSummary() domain.GameSummary {
	return domain.GameSummary{
		Code:          "1234",
		QuestionCount: 2,
		Leaderboard: []domain.RankedPlayer{
			{ID: "p1", Name: "Alice", Score: 2100},
			{ID: "p2", Name: "Bob", Score: 950},
		},
	}
}
