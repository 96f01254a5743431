// Package session implements the per-game broker: one goroutine owns one
// game's connections and live selection state, processes inbound commands
// one at a time, and fans resulting deltas out to every connection.
// Sessions are fully independent of each other.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/whist-live/backend/internal/engine"
	"github.com/whist-live/backend/internal/scoring"
	"github.com/whist-live/backend/internal/types"
)

type client struct {
	identity string
	outbox   chan types.ServerMessage
}

type Broker struct {
	inbox   chan Msg
	state   engine.Session
	sel     *engine.Selections
	clients map[string]*client
	store   Store
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(parent context.Context, initial engine.Session, store Store, log *zap.Logger) *Broker {
	ctx, cancel := context.WithCancel(parent)

	b := &Broker{
		inbox:   make(chan Msg, 64),
		state:   initial,
		sel:     engine.NewSelections(),
		clients: make(map[string]*client),
		store:   store,
		log:     log.With(zap.String("game_id", initial.ID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go b.loop()
	return b
}

// Inbox exposes the message channel to the ws layer and tests.
func (b *Broker) Inbox() chan<- Msg { return b.inbox }

// Done is closed once the broker stops draining its inbox. Senders must
// select on it; a send to a stopped broker would otherwise block forever
// when the inbox buffer fills.
func (b *Broker) Done() <-chan struct{} { return b.ctx.Done() }

func (b *Broker) loop() {
	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case m := <-b.inbox:
			switch msg := m.(type) {
			case Join:
				b.clients[msg.ConnID] = &client{identity: msg.Identity, outbox: msg.Outbox}
				b.sendCatchUp(msg.ConnID)
				b.log.Info("connection joined",
					zap.String("conn_id", msg.ConnID),
					zap.Int("connections", len(b.clients)))

			case Leave:
				delete(b.clients, msg.ConnID)
				b.log.Info("connection left",
					zap.String("conn_id", msg.ConnID),
					zap.Int("connections", len(b.clients)))

			case FromClient:
				b.handle(msg.ConnID, msg.Cmd)

			case SyncGame:
				b.state.Name = msg.Name
				b.state.Players = msg.Players
				b.state.SeatIdentities = msg.SeatIdentities
				b.state.OwnerIdentity = msg.OwnerIdentity
				b.state.Status = msg.Status
				b.broadcast(types.GameUpdate(b.snapshot()))

			case GetState:
				msg.Reply <- b.view()

			case Shutdown:
				b.shutdown()
				return
			}
		}
	}
}

func (b *Broker) shutdown() {
	for id, c := range b.clients {
		close(c.outbox)
		delete(b.clients, id)
	}
	b.cancel()
}

// handle routes one command through the authority model and the live
// selection store. Rejections answer the sender only; accepted mutations
// broadcast to every connection, sender included, in acceptance order.
func (b *Broker) handle(connID string, cmd Command) {
	c, ok := b.clients[connID]
	if !ok {
		return
	}

	// Re-resolved on every command, so a caller bound to a seat mid-session
	// gains authority without reconnecting.
	seat := engine.ResolveSeat(c.identity, b.state)
	isOwner := engine.IsOwner(c.identity, b.state)

	switch cmd.Type {
	case CmdBidSelection:
		b.applySelection(connID, engine.KindBid, isOwner, seat, cmd.Seat, cmd.Value)

	case CmdTrickSelection:
		b.applySelection(connID, engine.KindTrick, isOwner, seat, cmd.Seat, cmd.Value)

	case CmdTrumpSelection:
		if !isOwner && seat == engine.NoSeat {
			b.sendError(connID, "not authorized to set trump")
			return
		}
		b.sel.SetTrump(cmd.Trump)
		b.broadcast(types.TrumpSelection(cmd.Trump))

	case CmdBetLocked:
		b.applyLock(connID, engine.KindBid, isOwner, seat, cmd.Seat)

	case CmdRoundScoreLocked:
		b.applyLock(connID, engine.KindTrick, isOwner, seat, cmd.Seat)

	case CmdSubmitBids:
		b.submitBids(connID, cmd)

	case CmdSubmitTricks:
		b.submitTricks(connID, c, cmd)

	default:
		b.sendError(connID, "unknown message type")
	}
}

func (b *Broker) applySelection(connID string, kind engine.SelectionKind, isOwner bool, callerSeat, targetSeat, value int) {
	if !engine.CanEdit(isOwner, callerSeat, targetSeat, b.sel.Locked(kind)) {
		b.sendError(connID, fmt.Sprintf("not authorized to edit seat %d", targetSeat))
		return
	}
	b.sel.Set(kind, targetSeat, value)
	if kind == engine.KindBid {
		b.broadcast(types.BidSelection(targetSeat, value))
	} else {
		b.broadcast(types.TrickSelection(targetSeat, value))
	}
}

func (b *Broker) applyLock(connID string, kind engine.SelectionKind, isOwner bool, callerSeat, targetSeat int) {
	// Authority is checked before idempotency so an unauthorized caller
	// gets the same error whether or not the seat is already locked.
	if !engine.CanLock(isOwner, callerSeat, targetSeat, nil) {
		b.sendError(connID, fmt.Sprintf("not authorized to lock seat %d", targetSeat))
		return
	}
	if b.sel.Locked(kind)[targetSeat] {
		// Idempotent: already locked is a no-op, not an error.
		return
	}
	b.sel.Lock(kind, targetSeat)
	if kind == engine.KindBid {
		b.broadcast(types.BetLocked(targetSeat))
	} else {
		b.broadcast(types.RoundScoreLocked(targetSeat))
	}
}

// submitBids attempts the Bidding -> Tricks transition. Nothing is
// persisted here; the committed round is created only when tricks land.
func (b *Broker) submitBids(connID string, cmd Command) {
	if b.state.Status == engine.StatusCompleted {
		b.sendError(connID, engine.ErrGameCompleted.Error())
		return
	}
	if b.state.Phase != engine.PhaseBidding {
		b.sendError(connID, engine.ErrWrongPhase.Error())
		return
	}

	bids, err := toSeats(cmd.Bids)
	if err != nil {
		b.sendError(connID, engine.ErrBadBids.Error())
		return
	}
	if err := engine.ValidateBids(bids); err != nil {
		b.sendError(connID, err.Error())
		return
	}

	b.state.Phase = engine.PhaseTricks
	b.sel.Reset()

	snap := b.snapshot()
	b.broadcast(types.GameUpdate(snap))
	b.broadcast(types.PhaseUpdate(string(engine.PhaseTricks)))
	b.sendTo(connID, types.ServerMessage{Type: types.MsgBidsSubmitted, Game: snap})

	b.log.Info("bids submitted",
		zap.Int("round", b.state.RoundNumber),
		zap.Ints("bids", cmd.Bids))
}

// submitTricks attempts the Tricks -> Bidding(round+1) transition: guard,
// score, persist, then mutate local state. A store failure leaves phase and
// round untouched and answers the sender only; nothing half-committed is
// ever broadcast.
func (b *Broker) submitTricks(connID string, c *client, cmd Command) {
	if b.state.Status == engine.StatusCompleted {
		b.sendError(connID, engine.ErrGameCompleted.Error())
		return
	}
	if b.state.Phase != engine.PhaseTricks {
		b.sendError(connID, engine.ErrWrongPhase.Error())
		return
	}

	tricks, err := toSeats(cmd.Tricks)
	if err != nil {
		b.sendError(connID, engine.ErrBadTricks.Error())
		return
	}
	if err := engine.ValidateTricks(tricks); err != nil {
		b.sendError(connID, err.Error())
		return
	}
	bids, err := toSeats(cmd.Bids)
	if err != nil {
		b.sendError(connID, engine.ErrBadBids.Error())
		return
	}
	for _, bid := range bids {
		if bid < 0 || bid > engine.TricksPerRound {
			b.sendError(connID, engine.ErrBadBids.Error())
			return
		}
	}

	total := 0
	for _, bid := range bids {
		total += bid
	}
	mode := scoring.RoundMode(total)
	roundScores := scoring.RoundScores(bids, tricks, mode)

	var newScores [engine.NumSeats]int
	for i := range newScores {
		newScores[i] = b.state.Scores[i] + roundScores[i]
	}
	newRound := b.state.RoundNumber + 1

	var createdBy *string
	if c.identity != "" {
		identity := c.identity
		createdBy = &identity
	}

	round := CommittedRound{
		RoundNumber: b.state.RoundNumber,
		Bids:        bids,
		Tricks:      tricks,
		Scores:      roundScores,
		Mode:        string(mode),
		Trump:       cmd.Trump,
		CreatedBy:   createdBy,
	}

	if err := b.store.CreateRound(b.ctx, b.state.ID, round); err != nil {
		b.log.Error("round commit failed", zap.Error(err))
		b.sendError(connID, "failed to save round")
		return
	}
	if err := b.store.UpdateGameScores(b.ctx, b.state.ID, newScores, newRound); err != nil {
		b.log.Error("score update failed", zap.Error(err))
		b.sendError(connID, "failed to update game")
		return
	}

	b.state.Scores = newScores
	b.state.RoundNumber = newRound
	b.state.Phase = engine.PhaseBidding
	b.sel.Reset()

	snap := b.snapshot()
	b.broadcast(types.GameUpdate(snap))
	b.broadcast(types.PhaseUpdate(string(engine.PhaseBidding)))
	b.sendTo(connID, types.ServerMessage{
		Type:  types.MsgTricksSubmitted,
		Game:  snap,
		Round: roundSnapshot(round),
	})

	b.log.Info("round committed",
		zap.Int("round", round.RoundNumber),
		zap.String("mode", round.Mode))
}

// sendCatchUp replays the full current state to one connection: snapshot
// first, then every live selection and lock, then the phase.
func (b *Broker) sendCatchUp(connID string) {
	b.sendTo(connID, types.GameUpdate(b.snapshot()))
	for seat := 0; seat < engine.NumSeats; seat++ {
		if v, ok := b.sel.Bids[seat]; ok {
			b.sendTo(connID, types.BidSelection(seat, v))
		}
	}
	for seat := 0; seat < engine.NumSeats; seat++ {
		if v, ok := b.sel.Tricks[seat]; ok {
			b.sendTo(connID, types.TrickSelection(seat, v))
		}
	}
	if b.sel.Trump != nil {
		b.sendTo(connID, types.TrumpSelection(b.sel.Trump))
	}
	for seat := 0; seat < engine.NumSeats; seat++ {
		if b.sel.LockedBids[seat] {
			b.sendTo(connID, types.BetLocked(seat))
		}
	}
	for seat := 0; seat < engine.NumSeats; seat++ {
		if b.sel.LockedTricks[seat] {
			b.sendTo(connID, types.RoundScoreLocked(seat))
		}
	}
	b.sendTo(connID, types.PhaseUpdate(string(b.state.Phase)))
}

func (b *Broker) sendError(connID, msg string) {
	b.sendTo(connID, types.Error(msg))
}

func (b *Broker) sendTo(connID string, msg types.ServerMessage) {
	c, ok := b.clients[connID]
	if !ok {
		return
	}
	select {
	case c.outbox <- msg:
	default:
		// Slow or dead writer - drop the connection.
		close(c.outbox)
		delete(b.clients, connID)
		b.log.Warn("dropped slow connection", zap.String("conn_id", connID))
	}
}

func (b *Broker) broadcast(msg types.ServerMessage) {
	for id, c := range b.clients {
		select {
		case c.outbox <- msg:
		default:
			close(c.outbox)
			delete(b.clients, id)
			b.log.Warn("dropped slow connection", zap.String("conn_id", id))
		}
	}
}

func (b *Broker) snapshot() *types.GameSnapshot {
	snap := &types.GameSnapshot{
		ID:           b.state.ID,
		Name:         b.state.Name,
		Players:      b.state.Players,
		Scores:       b.state.Scores,
		CurrentRound: b.state.RoundNumber,
		Status:       string(b.state.Status),
	}
	for i, identity := range b.state.SeatIdentities {
		if identity != "" {
			identity := identity
			snap.PlayerUserIDs[i] = &identity
		}
	}
	if b.state.OwnerIdentity != "" {
		owner := b.state.OwnerIdentity
		snap.OwnerID = &owner
	}
	return snap
}

func (b *Broker) view() View {
	v := View{
		NumClients:   len(b.clients),
		State:        b.state,
		Bids:         make(map[int]int, len(b.sel.Bids)),
		Tricks:       make(map[int]int, len(b.sel.Tricks)),
		Trump:        b.sel.Trump,
		LockedBids:   make(map[int]bool, len(b.sel.LockedBids)),
		LockedTricks: make(map[int]bool, len(b.sel.LockedTricks)),
	}
	for k, val := range b.sel.Bids {
		v.Bids[k] = val
	}
	for k, val := range b.sel.Tricks {
		v.Tricks[k] = val
	}
	for k, val := range b.sel.LockedBids {
		v.LockedBids[k] = val
	}
	for k, val := range b.sel.LockedTricks {
		v.LockedTricks[k] = val
	}
	return v
}

func roundSnapshot(r CommittedRound) *types.RoundSnapshot {
	return &types.RoundSnapshot{
		RoundNumber: r.RoundNumber,
		Bids:        r.Bids,
		Tricks:      r.Tricks,
		Scores:      r.Scores,
		RoundMode:   r.Mode,
		TrumpSuit:   r.Trump,
	}
}

func toSeats(values []int) ([engine.NumSeats]int, error) {
	var out [engine.NumSeats]int
	if len(values) != engine.NumSeats {
		return out, fmt.Errorf("expected %d values, got %d", engine.NumSeats, len(values))
	}
	copy(out[:], values)
	return out, nil
}
