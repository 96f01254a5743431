package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whist-live/backend/internal/auth"
	"github.com/whist-live/backend/internal/engine"
	"github.com/whist-live/backend/internal/hub"
	"github.com/whist-live/backend/internal/session"
	"github.com/whist-live/backend/internal/store"
)

type api struct {
	d Deps
}

type gameResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Players       []string  `json:"players"`
	PlayerUserIDs []*string `json:"player_user_ids,omitempty"`
	OwnerID       *string   `json:"owner_id,omitempty"`
	Scores        []int     `json:"scores"`
	CurrentRound  int       `json:"current_round"`
	Status        string    `json:"status"`
	ShareCode     *string   `json:"share_code,omitempty"`
}

type roundResponse struct {
	RoundNumber int     `json:"round_number"`
	Bids        []int   `json:"bids"`
	Tricks      []int   `json:"tricks"`
	Scores      []int   `json:"scores"`
	RoundMode   string  `json:"round_mode"`
	TrumpSuit   *string `json:"trump_suit"`
}

func toGameResponse(g *store.Game) gameResponse {
	return gameResponse{
		ID:            g.ID.String(),
		Name:          g.Name,
		Players:       g.Players,
		PlayerUserIDs: g.PlayerUserIDs,
		OwnerID:       g.OwnerID,
		Scores:        g.Scores,
		CurrentRound:  g.CurrentRound,
		Status:        g.Status,
		ShareCode:     g.ShareCode,
	}
}

func (a *api) createGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string    `json:"name"`
		Players       []string  `json:"players"`
		PlayerUserIDs []*string `json:"player_user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if len(req.Players) != engine.NumSeats {
		http.Error(w, fmt.Sprintf("players must have %d entries", engine.NumSeats), http.StatusBadRequest)
		return
	}
	if req.PlayerUserIDs == nil {
		req.PlayerUserIDs = make([]*string, engine.NumSeats)
	}
	if len(req.PlayerUserIDs) != engine.NumSeats {
		http.Error(w, fmt.Sprintf("player_user_ids must have %d entries", engine.NumSeats), http.StatusBadRequest)
		return
	}

	owner := auth.IdentityFromContext(r.Context())
	game := &store.Game{
		Name:          req.Name,
		Players:       req.Players,
		PlayerUserIDs: req.PlayerUserIDs,
		OwnerID:       &owner,
		Scores:        []int{0, 0, 0, 0},
		CurrentRound:  1,
		Status:        string(engine.StatusActive),
	}
	if err := a.d.Games.Create(r.Context(), game); err != nil {
		a.d.Log.Error("create game", zap.Error(err))
		http.Error(w, "failed to create game", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toGameResponse(game))
}

func (a *api) listGames(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	games, err := a.d.Games.ListByUser(r.Context(), identity)
	if err != nil {
		a.d.Log.Error("list games", zap.Error(err))
		http.Error(w, "failed to list games", http.StatusInternalServerError)
		return
	}
	out := make([]gameResponse, 0, len(games))
	for i := range games {
		out = append(out, toGameResponse(&games[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getGame(w http.ResponseWriter, r *http.Request) {
	game, ok := a.loadGame(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toGameResponse(game))
}

func (a *api) updateGame(w http.ResponseWriter, r *http.Request) {
	game, ok := a.loadGame(w, r)
	if !ok {
		return
	}

	var req struct {
		Name          *string   `json:"name"`
		Status        *string   `json:"status"`
		Scores        []int     `json:"scores"`
		CurrentRound  *int      `json:"current_round"`
		PlayerUserIDs []*string `json:"player_user_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	if req.Name != nil {
		game.Name = *req.Name
	}
	if req.Status != nil {
		if *req.Status != string(engine.StatusActive) && *req.Status != string(engine.StatusCompleted) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}
		game.Status = *req.Status
	}
	if req.Scores != nil {
		if len(req.Scores) != engine.NumSeats {
			http.Error(w, "scores must have 4 entries", http.StatusBadRequest)
			return
		}
		game.Scores = req.Scores
	}
	if req.CurrentRound != nil {
		game.CurrentRound = *req.CurrentRound
	}
	if req.PlayerUserIDs != nil {
		if len(req.PlayerUserIDs) != engine.NumSeats {
			http.Error(w, "player_user_ids must have 4 entries", http.StatusBadRequest)
			return
		}
		game.PlayerUserIDs = req.PlayerUserIDs
	}

	if err := a.d.Games.Update(r.Context(), game); err != nil {
		a.d.Log.Error("update game", zap.Error(err))
		http.Error(w, "failed to update game", http.StatusInternalServerError)
		return
	}

	a.syncSession(game)
	writeJSON(w, http.StatusOK, toGameResponse(game))
}

// syncSession pushes persisted-field changes into a live broker, if one
// exists, so connected clients see renames, seat bindings, and completion
// without reconnecting.
func (a *api) syncSession(game *store.Game) {
	reply := make(chan *session.Broker, 1)
	a.d.Hub.Inbox() <- hub.GetSession{GameID: game.ID.String(), Reply: reply}
	broker := <-reply
	if broker == nil {
		return
	}

	sync := session.SyncGame{
		Name:   game.Name,
		Status: engine.Status(game.Status),
	}
	for i := 0; i < engine.NumSeats && i < len(game.Players); i++ {
		sync.Players[i] = game.Players[i]
	}
	for i := 0; i < engine.NumSeats && i < len(game.PlayerUserIDs); i++ {
		if game.PlayerUserIDs[i] != nil {
			sync.SeatIdentities[i] = *game.PlayerUserIDs[i]
		}
	}
	if game.OwnerID != nil {
		sync.OwnerIdentity = *game.OwnerID
	}
	select {
	case broker.Inbox() <- sync:
	case <-broker.Done():
	}
}

func (a *api) deleteGame(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	if err := a.d.Games.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		a.d.Log.Error("delete game", zap.Error(err))
		http.Error(w, "failed to delete game", http.StatusInternalServerError)
		return
	}
	a.d.Hub.Inbox() <- hub.RemoveSession{GameID: id.String()}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listRounds(w http.ResponseWriter, r *http.Request) {
	game, ok := a.loadGame(w, r)
	if !ok {
		return
	}
	rounds, err := a.d.Rounds.ListByGame(r.Context(), game.ID)
	if err != nil {
		a.d.Log.Error("list rounds", zap.Error(err))
		http.Error(w, "failed to list rounds", http.StatusInternalServerError)
		return
	}
	out := make([]roundResponse, 0, len(rounds))
	for _, rd := range rounds {
		out = append(out, roundResponse{
			RoundNumber: rd.RoundNumber,
			Bids:        rd.Bids,
			Tricks:      rd.Tricks,
			Scores:      rd.Scores,
			RoundMode:   rd.RoundMode,
			TrumpSuit:   rd.TrumpSuit,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) sendInvitation(w http.ResponseWriter, r *http.Request) {
	game, ok := a.loadGame(w, r)
	if !ok {
		return
	}

	identity := auth.IdentityFromContext(r.Context())
	if game.OwnerID == nil || !engine.IsOwner(identity, engine.Session{OwnerIdentity: *game.OwnerID}) {
		http.Error(w, "only the owner can send invitations", http.StatusForbidden)
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	if game.ShareCode == nil {
		code, err := generateCode()
		if err != nil {
			http.Error(w, "failed to generate share code", http.StatusInternalServerError)
			return
		}
		game.ShareCode = &code
		if err := a.d.Games.Update(r.Context(), game); err != nil {
			a.d.Log.Error("save share code", zap.Error(err))
			http.Error(w, "failed to save share code", http.StatusInternalServerError)
			return
		}
	}

	link := fmt.Sprintf("%s/games/%s?code=%s", a.d.BaseURL, game.ID, *game.ShareCode)
	if err := a.d.Mailer.SendInvitation(req.Email, game.Name, link); err != nil {
		a.d.Log.Error("send invitation", zap.Error(err))
		http.Error(w, "failed to send invitation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"share_code": *game.ShareCode})
}

func (a *api) loadGame(w http.ResponseWriter, r *http.Request) (*store.Game, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return nil, false
	}
	game, err := a.d.Games.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "game not found", http.StatusNotFound)
			return nil, false
		}
		a.d.Log.Error("load game", zap.Error(err))
		http.Error(w, "failed to load game", http.StatusInternalServerError)
		return nil, false
	}
	return game, true
}

func generateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[n.Int64()]
	}
	return string(code), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
