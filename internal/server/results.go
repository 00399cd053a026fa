package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openmonopoly/monopoly-server-go/internal/game"
	"github.com/openmonopoly/monopoly-server-go/internal/game/rules"
	"github.com/openmonopoly/monopoly-server-go/internal/repository"
)

// ResultsSink persists finished games off the table goroutine. A nil
// repository makes every method a no-op.
type ResultsSink struct {
	repo    *repository.ResultsRepository
	log     *zap.Logger
	timeout time.Duration
}

func NewResultsSink(repo *repository.ResultsRepository, timeout time.Duration, logger *zap.Logger) *ResultsSink {
	return &ResultsSink{repo: repo, log: logger, timeout: timeout}
}

// Watch subscribes to the table's game-end event. The save happens on its
// own goroutine so the table loop never waits on the database.
func (s *ResultsSink) Watch(t *game.Table) {
	if s == nil || s.repo == nil {
		return
	}
	t.Bus().SubscribeTyped(rules.EventGameEnd, func(ev rules.Event) {
		go s.save(ev)
	})
}

func (s *ResultsSink) save(ev rules.Event) {
	result := repository.GameResult{
		GameID:     ev.GameID,
		WinnerID:   ev.PlayerID,
		WinnerName: ev.Message,
		Turns:      ev.Amount,
		FinishedAt: ev.Timestamp,
	}

	var standings []repository.PlayerResult
	if raw, ok := ev.Payload["standings"].([]map[string]any); ok {
		for _, entry := range raw {
			pr := repository.PlayerResult{GameID: ev.GameID}
			if v, ok := entry["playerId"].(string); ok {
				pr.PlayerID = v
			}
			if v, ok := entry["name"].(string); ok {
				pr.Name = v
			}
			if v, ok := entry["money"].(int); ok {
				pr.Money = v
			}
			if v, ok := entry["bankrupt"].(bool); ok {
				pr.Bankrupt = v
			}
			standings = append(standings, pr)
		}
	}
	result.Players = len(standings)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.repo.SaveResult(ctx, result, standings); err != nil {
		s.log.Error("failed to save game result",
			zap.String("game_id", ev.GameID), zap.Error(err))
	}
}
