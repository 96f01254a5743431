package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/whist-live/backend/internal/auth"
	"github.com/whist-live/backend/internal/hub"
	"github.com/whist-live/backend/internal/session"
	"github.com/whist-live/backend/internal/store"
	"github.com/whist-live/backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	// Outbox must absorb a full catch-up burst (snapshot + every live
	// selection and lock + phase) without tripping the slow-client drop.
	outboxSize = 32
)

// Handler upgrades the connection, resolves the caller's identity, ensures
// the game's broker exists, and then shuttles messages between the socket
// and the broker until either side goes away.
func Handler(h *hub.Hub, games *store.GameRepository, live *store.LiveStore, verifier *auth.Verifier, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := uuid.Parse(chi.URLParam(r, "gameID"))
		if err != nil {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		game, err := games.GetByID(r.Context(), gameID)
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		state, err := live.SessionState(r.Context(), game)
		if err != nil {
			http.Error(w, "failed to load game state", http.StatusInternalServerError)
			return
		}

		// Invalid or missing credentials downgrade to spectator; the
		// connection itself is never refused over identity.
		identity := verifier.FromRequest(r)

		reply := make(chan *session.Broker, 1)
		h.Inbox() <- hub.EnsureSession{GameID: gameID.String(), State: state, Reply: reply}
		broker := <-reply
		if broker == nil {
			http.Error(w, "failed to open session", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan types.ServerMessage, outboxSize)

		// Every broker send races its shutdown: the hub can tear the session
		// down (game deleted) while this connection is still up, and a send
		// into a stopped inbox would block forever once the buffer fills.
		select {
		case broker.Inbox() <- session.Join{ConnID: connID, Identity: identity, Outbox: out}:
		case <-broker.Done():
			return
		}
		defer func() {
			select {
			case broker.Inbox() <- session.Leave{ConnID: connID}:
			case <-broker.Done():
			}
		}()

		// Writer goroutine: drains the broker outbox onto the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal server message", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeDirect(r.Context(), conn, types.Error("bad json"))
				continue
			}

			cmd, ok := toCommand(cm)
			if !ok {
				writeDirect(r.Context(), conn, types.Error("unknown message type"))
				continue
			}

			select {
			case broker.Inbox() <- session.FromClient{ConnID: connID, Cmd: cmd}:
			case <-broker.Done():
				return
			}
		}
	}
}

func writeDirect(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

// toCommand decodes the {type, data} envelope into the closed command set.
// Unknown types fail here so the broker only ever sees valid variants.
func toCommand(m types.ClientMessage) (session.Command, bool) {
	switch m.Type {
	case types.MsgBidSelection:
		var d types.BidSelectionData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdBidSelection, Seat: d.PlayerIndex, Value: d.Bid}, true

	case types.MsgTrickSelection:
		var d types.TrickSelectionData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdTrickSelection, Seat: d.PlayerIndex, Value: d.Trick}, true

	case types.MsgTrumpSelection:
		var d types.TrumpSelectionData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdTrumpSelection, Trump: d.TrumpSuit}, true

	case types.MsgBetLocked:
		var d types.LockData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdBetLocked, Seat: d.PlayerIndex}, true

	case types.MsgRoundScoreLocked:
		var d types.LockData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdRoundScoreLocked, Seat: d.PlayerIndex}, true

	case types.MsgSubmitBids:
		var d types.SubmitBidsData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdSubmitBids, Bids: d.Bids, Trump: d.TrumpSuit}, true

	case types.MsgSubmitTricks:
		var d types.SubmitTricksData
		if err := json.Unmarshal(m.Data, &d); err != nil {
			return session.Command{}, false
		}
		return session.Command{Type: session.CmdSubmitTricks, Tricks: d.Tricks, Bids: d.Bids, Trump: d.TrumpSuit}, true

	default:
		return session.Command{}, false
	}
}
