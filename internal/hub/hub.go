// Package hub routes by game id: one broker per active game, created on
// demand and removed on teardown. The hub itself is an actor, so broker
// creation never races between concurrent handshakes.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/whist-live/backend/internal/engine"
	"github.com/whist-live/backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

// EnsureSession returns the game's broker, creating it from State if none
// is live yet. State is only used when creation happens.
type EnsureSession struct {
	GameID string
	State  engine.Session
	Reply  chan *session.Broker
}

type GetSession struct {
	GameID string
	Reply  chan *session.Broker
}

type RemoveSession struct {
	GameID string
}

type ShutdownHub struct{}

func (EnsureSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Broker
	store    session.Store
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, store session.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Broker),
		store:    store,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureSession:
				if b := h.sessions[msg.GameID]; b != nil {
					msg.Reply <- b
					break
				}
				b := session.NewBroker(h.ctx, msg.State, h.store, h.log)
				h.sessions[msg.GameID] = b
				h.log.Info("session created", zap.String("game_id", msg.GameID))
				msg.Reply <- b

			case GetSession:
				msg.Reply <- h.sessions[msg.GameID] // may be nil

			case RemoveSession:
				if b := h.sessions[msg.GameID]; b != nil {
					b.Inbox() <- session.Shutdown{}
					delete(h.sessions, msg.GameID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, b := range h.sessions {
		b.Inbox() <- session.Shutdown{}
		delete(h.sessions, id)
	}
	h.cancel()
}
