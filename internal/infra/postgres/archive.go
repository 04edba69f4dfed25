package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizclash-service/internal/domain"
)

// Archive stores finished-game summaries as JSONB rows. Room codes recycle
// between games, so rows key on (code, finished_at) and lookups return the
// most recent game for a code.
type Archive struct {
	pool *pgxpool.Pool
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

func (a *Archive) SaveSummary(ctx context.Context, summary domain.GameSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO game_archives (code, finished_at, data) VALUES ($1, $2, $3)`,
		summary.Code, summary.FinishedAt, raw)
	if err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	return nil
}

func (a *Archive) LoadSummary(ctx context.Context, code string) (domain.GameSummary, error) {
	var raw []byte
	err := a.pool.QueryRow(ctx,
		`SELECT data FROM game_archives WHERE code=$1 ORDER BY finished_at DESC LIMIT 1`,
		code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameSummary{}, domain.ErrSummaryNotFound
	}
	if err != nil {
		return domain.GameSummary{}, fmt.Errorf("load summary: %w", err)
	}
	var summary domain.GameSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return domain.GameSummary{}, fmt.Errorf("unmarshal summary: %w", err)
	}
	return summary, nil
}
