package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GameResult is the durable record of one finished game.
type GameResult struct {
	GameID     string
	WinnerID   string
	WinnerName string
	Players    int
	Turns      int
	FinishedAt time.Time
}

// PlayerResult is one player's final standing.
type PlayerResult struct {
	GameID   string
	PlayerID string
	Name     string
	Money    int
	Bankrupt bool
}

// ResultsRepository stores finished games. All methods are no-ops on a nil
// receiver so the server runs unchanged without a database.
type ResultsRepository struct {
	db *DB
}

// NewResultsRepository returns nil when db is nil.
func NewResultsRepository(db *DB) *ResultsRepository {
	if db == nil {
		return nil
	}
	return &ResultsRepository{db: db}
}

// SaveResult records a finished game and its standings in one transaction.
func (r *ResultsRepository) SaveResult(ctx context.Context, result GameResult, standings []PlayerResult) error {
	if r == nil {
		return nil
	}

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin result tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO game_results (game_id, winner_id, winner_name, players, turns, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (game_id) DO NOTHING`,
		result.GameID, result.WinnerID, result.WinnerName,
		result.Players, result.Turns, result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}

	for _, p := range standings {
		_, err = tx.Exec(ctx,
			`INSERT INTO player_results (game_id, player_id, name, money, bankrupt)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (game_id, player_id) DO NOTHING`,
			result.GameID, p.PlayerID, p.Name, p.Money, p.Bankrupt,
		)
		if err != nil {
			return fmt.Errorf("insert player result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit result tx: %w", err)
	}
	r.db.log.Info("game result saved",
		zap.String("game_id", result.GameID),
		zap.String("winner", result.WinnerName),
	)
	return nil
}

// RecentResults lists the latest finished games.
func (r *ResultsRepository) RecentResults(ctx context.Context, limit int) ([]GameResult, error) {
	if r == nil {
		return nil, nil
	}
	rows, err := r.db.pool.Query(ctx,
		`SELECT game_id, winner_id, winner_name, players, turns, finished_at
		 FROM game_results ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		var gr GameResult
		if err := rows.Scan(&gr.GameID, &gr.WinnerID, &gr.WinnerName,
			&gr.Players, &gr.Turns, &gr.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}
