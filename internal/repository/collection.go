package repository

import (
	"context"
	"fmt"
	"time"
)

// CollectionRepository reads players' long-term owned-card lists and records
// fight outcomes. It is the persistence collaborator at the engine boundary:
// the engine only ever sees a list of card ids.
type CollectionRepository struct {
	db *DB
}

// NewCollectionRepository creates a repository on the shared pool.
func NewCollectionRepository(db *DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// LoadOwnedCards returns the card ids in a player's persistent collection,
// in saved deck order.
func (r *CollectionRepository) LoadOwnedCards(ctx context.Context, playerID string) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT card_id FROM owned_cards WHERE player_id = $1 ORDER BY deck_position`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading owned cards for %s: %w", playerID, err)
	}
	defer rows.Close()

	var cardIDs []string
	for rows.Next() {
		var cardID string
		if err := rows.Scan(&cardID); err != nil {
			return nil, fmt.Errorf("scanning owned card for %s: %w", playerID, err)
		}
		cardIDs = append(cardIDs, cardID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owned cards for %s: %w", playerID, err)
	}
	return cardIDs, nil
}

// RecordResult stores the outcome of a concluded fight for post-fight
// reporting.
func (r *CollectionRepository) RecordResult(ctx context.Context, fightID, winnerID, loserID string, rounds int, failed bool) error {
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO fight_results (fight_id, winner_id, loser_id, rounds, failed, concluded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		fightID, winnerID, loserID, rounds, failed, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("recording result for fight %s: %w", fightID, err)
	}
	return nil
}
