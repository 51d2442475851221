// internal/database/stats.go
package database

import (
	"context"
	"fmt"

	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsDelta is what one finished game adds to a player's profile.
type StatsDelta struct {
	UserID     uuid.UUID
	Username   string
	Won        int
	Lost       int
	PairsFound int
}

// DeltasFor converts a game result into profile increments. Anonymous seats
// are skipped.
func DeltasFor(res game.GameResult) []StatsDelta {
	out := make([]StatsDelta, 0, len(res.Seats))
	for _, s := range res.Seats {
		if s.UserID == uuid.Nil {
			continue
		}
		d := StatsDelta{UserID: s.UserID, Username: s.Name, PairsFound: s.Score}
		if s.Won {
			d.Won = 1
		}
		if s.Lost {
			d.Lost = 1
		}
		out = append(out, d)
	}
	return out
}

const upsertStats = `
INSERT INTO profiles (id, username, games_played, games_won, games_lost, total_pairs_found)
VALUES ($1, $2, 1, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	username          = EXCLUDED.username,
	games_played      = profiles.games_played + 1,
	games_won         = profiles.games_won + EXCLUDED.games_won,
	games_lost        = profiles.games_lost + EXCLUDED.games_lost,
	total_pairs_found = profiles.total_pairs_found + EXCLUDED.total_pairs_found,
	updated_at        = now()`

// StatsStore writes finished-game outcomes to player profiles.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore wraps an open pool.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// RecordResult applies every seat's delta in one transaction.
func (s *StatsStore) RecordResult(ctx context.Context, res game.GameResult) error {
	deltas := DeltasFor(res)
	if len(deltas) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, d := range deltas {
			if _, err := tx.Exec(ctx, upsertStats, d.UserID, d.Username, d.Won, d.Lost, d.PairsFound); err != nil {
				return fmt.Errorf("upsert stats for %s: %w", d.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record result for room %s: %w", res.RoomID, err)
	}
	return nil
}

// Profile is a player's stored statistics.
type Profile struct {
	ID              uuid.UUID
	Username        string
	GamesPlayed     int
	GamesWon        int
	GamesLost       int
	TotalPairsFound int
}

// GetProfile loads one profile. It returns pgx.ErrNoRows when absent.
func (s *StatsStore) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, games_played, games_won, games_lost, total_pairs_found FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Username, &p.GamesPlayed, &p.GamesWon, &p.GamesLost, &p.TotalPairsFound)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}
