package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/whist-live/backend/internal/engine"
	"github.com/whist-live/backend/internal/session"
)

// LiveStore adapts the repositories to the session.Store interface the
// brokers commit through.
type LiveStore struct {
	games  *GameRepository
	rounds *RoundRepository
}

func NewLiveStore(games *GameRepository, rounds *RoundRepository) *LiveStore {
	return &LiveStore{games: games, rounds: rounds}
}

func (s *LiveStore) CreateRound(ctx context.Context, gameID string, round session.CommittedRound) error {
	id, err := uuid.Parse(gameID)
	if err != nil {
		return fmt.Errorf("parse game id: %w", err)
	}
	rec := Round{
		GameID:      id,
		RoundNumber: round.RoundNumber,
		Bids:        round.Bids[:],
		Tricks:      round.Tricks[:],
		Scores:      round.Scores[:],
		RoundMode:   round.Mode,
		TrumpSuit:   round.Trump,
		CreatedBy:   round.CreatedBy,
	}
	return s.rounds.Create(ctx, &rec)
}

func (s *LiveStore) UpdateGameScores(ctx context.Context, gameID string, scores [engine.NumSeats]int, roundNumber int) error {
	id, err := uuid.Parse(gameID)
	if err != nil {
		return fmt.Errorf("parse game id: %w", err)
	}
	game, err := s.games.GetByID(ctx, id)
	if err != nil {
		return err
	}
	game.Scores = scores[:]
	game.CurrentRound = roundNumber
	return s.games.Update(ctx, game)
}

// SessionState builds the broker's initial state from the persisted record,
// deriving the phase from how many rounds are already on file.
func (s *LiveStore) SessionState(ctx context.Context, game *Game) (engine.Session, error) {
	committed, err := s.rounds.CountByGame(ctx, game.ID)
	if err != nil {
		return engine.Session{}, err
	}

	st := engine.Session{
		ID:          game.ID.String(),
		Name:        game.Name,
		RoundNumber: game.CurrentRound,
		Phase:       engine.DerivePhase(game.CurrentRound, committed),
		Status:      engine.Status(game.Status),
	}
	for i := 0; i < engine.NumSeats && i < len(game.Players); i++ {
		st.Players[i] = game.Players[i]
	}
	for i := 0; i < engine.NumSeats && i < len(game.PlayerUserIDs); i++ {
		if game.PlayerUserIDs[i] != nil {
			st.SeatIdentities[i] = *game.PlayerUserIDs[i]
		}
	}
	for i := 0; i < engine.NumSeats && i < len(game.Scores); i++ {
		st.Scores[i] = game.Scores[i]
	}
	if game.OwnerID != nil {
		st.OwnerIdentity = *game.OwnerID
	}
	return st, nil
}
