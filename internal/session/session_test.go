package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/whist-live/backend/internal/engine"
	"github.com/whist-live/backend/internal/types"
)

type fakeStore struct {
	mu         sync.Mutex
	rounds     []CommittedRound
	scores     [engine.NumSeats]int
	roundNum   int
	failCreate bool
}

func (f *fakeStore) CreateRound(_ context.Context, _ string, round CommittedRound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("database unavailable")
	}
	f.rounds = append(f.rounds, round)
	return nil
}

func (f *fakeStore) UpdateGameScores(_ context.Context, _ string, scores [engine.NumSeats]int, roundNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = scores
	f.roundNum = roundNumber
	return nil
}

func (f *fakeStore) committed() []CommittedRound {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CommittedRound, len(f.rounds))
	copy(out, f.rounds)
	return out
}

func testState() engine.Session {
	return engine.Session{
		ID:             "game-1",
		Players:        [engine.NumSeats]string{"Alice", "Bob", "Carol", "Dana"},
		SeatIdentities: [engine.NumSeats]string{"alice", "bob", "carol", "dana"},
		OwnerIdentity:  "olivia",
		RoundNumber:    1,
		Phase:          engine.PhaseBidding,
		Status:         engine.StatusActive,
	}
}

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return types.ServerMessage{} // unreachable
	}
}

// helper: receive messages until one of the wanted type arrives
func recvType(t *testing.T, ch <-chan types.ServerMessage, msgType string) types.ServerMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("outbox closed while waiting for %q", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", msgType)
		}
	}
}

func recvNoMsg(t *testing.T, ch <-chan types.ServerMessage, within time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no message within %v, got %+v", within, msg)
	case <-time.After(within):
	}
}

// drainJoin consumes the catch-up burst, which always ends with phase_update.
func drainJoin(t *testing.T, ch <-chan types.ServerMessage) {
	t.Helper()
	recvType(t, ch, types.MsgPhaseUpdate)
}

func getView(t *testing.T, b *Broker) View {
	t.Helper()
	reply := make(chan View, 1)
	b.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func newTestBroker(t *testing.T, state engine.Session, store Store) *Broker {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewBroker(ctx, state, store, zap.NewNop())
}

func join(t *testing.T, b *Broker, connID, identity string) chan types.ServerMessage {
	t.Helper()
	out := make(chan types.ServerMessage, 32)
	b.Inbox() <- Join{ConnID: connID, Identity: identity, Outbox: out}
	return out
}

func TestBroker_JoinReceivesSnapshotThenPhase(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	out := join(t, b, "c1", "alice")

	first := recvMsg(t, out, time.Second)
	if first.Type != types.MsgGameUpdate {
		t.Fatalf("first catch-up message: want game_update, got %q", first.Type)
	}
	if first.Game == nil || first.Game.ID != "game-1" || first.Game.CurrentRound != 1 {
		t.Fatalf("bad snapshot: %+v", first.Game)
	}
	for i, want := range testState().SeatIdentities {
		got := first.Game.PlayerUserIDs[i]
		if got == nil || *got != want {
			t.Fatalf("snapshot seat %d binding: want %q, got %v", i, want, got)
		}
	}
	if first.Game.OwnerID == nil || *first.Game.OwnerID != "olivia" {
		t.Fatalf("snapshot owner: %v", first.Game.OwnerID)
	}

	phase := recvType(t, out, types.MsgPhaseUpdate)
	if phase.Phase != string(engine.PhaseBidding) {
		t.Fatalf("want bidding phase, got %q", phase.Phase)
	}
}

func TestBroker_BidSelectionBroadcastsToAllIncludingSender(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	bob := join(t, b, "c2", "bob")
	drainJoin(t, alice)
	drainJoin(t, bob)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 3}}

	for _, ch := range []chan types.ServerMessage{alice, bob} {
		msg := recvMsg(t, ch, time.Second)
		if msg.Type != types.MsgBidSelection {
			t.Fatalf("want bid_selection, got %q", msg.Type)
		}
		data, ok := msg.Data.(types.BidSelectionData)
		if !ok || data.PlayerIndex != 0 || data.Bid != 3 {
			t.Fatalf("bad delta: %+v", msg.Data)
		}
	}
}

func TestBroker_LastWriterWins(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	for _, v := range []int{3, 5, 2} {
		b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: v}}
	}

	v := getView(t, b)
	if v.Bids[0] != 2 {
		t.Fatalf("want last accepted bid 2, got %d", v.Bids[0])
	}
}

func TestBroker_UnauthorizedEditAnsweredToSenderOnly(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	bob := join(t, b, "c2", "bob")
	drainJoin(t, alice)
	drainJoin(t, bob)

	// bob (seat 1) tries to edit alice's seat
	b.Inbox() <- FromClient{ConnID: "c2", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 9}}

	errMsg := recvMsg(t, bob, time.Second)
	if errMsg.Type != types.MsgError {
		t.Fatalf("want error to sender, got %q", errMsg.Type)
	}
	recvNoMsg(t, alice, 100*time.Millisecond)

	v := getView(t, b)
	if _, ok := v.Bids[0]; ok {
		t.Fatalf("unauthorized edit mutated state: %v", v.Bids)
	}
}

func TestBroker_SpectatorCannotEditLockOrSetTrump(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	spec := join(t, b, "c1", "") // unauthenticated
	drainJoin(t, spec)

	suit := "hearts"
	cmds := []Command{
		{Type: CmdBidSelection, Seat: 0, Value: 3},
		{Type: CmdTrickSelection, Seat: 2, Value: 4},
		{Type: CmdBetLocked, Seat: 0},
		{Type: CmdTrumpSelection, Trump: &suit},
	}
	for _, cmd := range cmds {
		b.Inbox() <- FromClient{ConnID: "c1", Cmd: cmd}
		if msg := recvMsg(t, spec, time.Second); msg.Type != types.MsgError {
			t.Fatalf("cmd %q: want error, got %q", cmd.Type, msg.Type)
		}
	}

	v := getView(t, b)
	if len(v.Bids) != 0 || len(v.Tricks) != 0 || len(v.LockedBids) != 0 || v.Trump != nil {
		t.Fatalf("spectator mutated state: %+v", v)
	}
}

func TestBroker_OwnerEditsAndLocksAnySeat(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	owner := join(t, b, "c1", "olivia") // owner holds no seat
	drainJoin(t, owner)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 2, Value: 6}}
	msg := recvMsg(t, owner, time.Second)
	if msg.Type != types.MsgBidSelection {
		t.Fatalf("owner edit rejected: %+v", msg)
	}

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBetLocked, Seat: 2}}
	msg = recvMsg(t, owner, time.Second)
	if msg.Type != types.MsgBetLocked {
		t.Fatalf("owner lock rejected: %+v", msg)
	}
}

func TestBroker_LockedSeatRejectsAllFurtherMutation(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	owner := join(t, b, "c2", "olivia")
	drainJoin(t, alice)
	drainJoin(t, owner)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 4}}
	recvType(t, alice, types.MsgBidSelection)
	recvType(t, owner, types.MsgBidSelection)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBetLocked, Seat: 0}}
	recvType(t, alice, types.MsgBetLocked)
	recvType(t, owner, types.MsgBetLocked)

	// Even the owner cannot move a locked seat.
	b.Inbox() <- FromClient{ConnID: "c2", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 9}}
	if msg := recvMsg(t, owner, time.Second); msg.Type != types.MsgError {
		t.Fatalf("owner edit of locked seat: want error, got %q", msg.Type)
	}
	recvNoMsg(t, alice, 100*time.Millisecond)

	v := getView(t, b)
	if v.Bids[0] != 4 {
		t.Fatalf("locked value changed: %d", v.Bids[0])
	}

	// Re-locking is a silent no-op: no error, no broadcast.
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBetLocked, Seat: 0}}
	recvNoMsg(t, alice, 100*time.Millisecond)
	recvNoMsg(t, owner, 100*time.Millisecond)
}

func TestBroker_UnauthorizedLockErrorsRegardlessOfLockState(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	spec := join(t, b, "c2", "")
	drainJoin(t, alice)
	drainJoin(t, spec)

	// Unlocked seat: spectator lock is rejected.
	b.Inbox() <- FromClient{ConnID: "c2", Cmd: Command{Type: CmdBetLocked, Seat: 0}}
	if msg := recvMsg(t, spec, time.Second); msg.Type != types.MsgError {
		t.Fatalf("spectator lock on unlocked seat: want error, got %q", msg.Type)
	}

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBetLocked, Seat: 0}}
	recvType(t, alice, types.MsgBetLocked)
	recvType(t, spec, types.MsgBetLocked)

	// Locked seat: same rejection, not a silent no-op. The idempotent path
	// is reserved for callers who could have placed the lock themselves.
	b.Inbox() <- FromClient{ConnID: "c2", Cmd: Command{Type: CmdBetLocked, Seat: 0}}
	if msg := recvMsg(t, spec, time.Second); msg.Type != types.MsgError {
		t.Fatalf("spectator lock on locked seat: want error, got %q", msg.Type)
	}
	recvNoMsg(t, alice, 100*time.Millisecond)
}

func TestBroker_TrumpIsSharedPermissiveAndLockless(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	bob := join(t, b, "c2", "bob")
	drainJoin(t, alice)
	drainJoin(t, bob)

	hearts, spades := "hearts", "spades"
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdTrumpSelection, Trump: &hearts}}
	recvType(t, alice, types.MsgTrumpSelection)
	recvType(t, bob, types.MsgTrumpSelection)

	// No turn-order restriction: any seated caller may overwrite.
	b.Inbox() <- FromClient{ConnID: "c2", Cmd: Command{Type: CmdTrumpSelection, Trump: &spades}}
	msg := recvType(t, alice, types.MsgTrumpSelection)
	data := msg.Data.(types.TrumpSelectionData)
	if data.TrumpSuit == nil || *data.TrumpSuit != "spades" {
		t.Fatalf("want spades broadcast, got %+v", data)
	}

	v := getView(t, b)
	if v.Trump == nil || *v.Trump != "spades" {
		t.Fatalf("trump not last-writer-wins: %+v", v.Trump)
	}
}

func TestBroker_SubmitBidsSumThirteenRejected(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	bob := join(t, b, "c2", "bob")
	drainJoin(t, alice)
	drainJoin(t, bob)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdSubmitBids, Bids: []int{3, 4, 0, 6}}}

	errMsg := recvMsg(t, alice, time.Second)
	if errMsg.Type != types.MsgError {
		t.Fatalf("want error, got %q", errMsg.Type)
	}
	recvNoMsg(t, bob, 100*time.Millisecond)

	v := getView(t, b)
	if v.State.Phase != engine.PhaseBidding || v.State.RoundNumber != 1 {
		t.Fatalf("rejected submit changed state: %+v", v.State)
	}
}

func TestBroker_SubmitTricksWrongSumRejected(t *testing.T) {
	state := testState()
	state.Phase = engine.PhaseTricks
	b := newTestBroker(t, state, &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	for _, tricks := range [][]int{{3, 4, 0, 5}, {3, 4, 0, 7}} {
		b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{
			Type: CmdSubmitTricks, Tricks: tricks, Bids: []int{3, 4, 0, 7},
		}}
		if msg := recvMsg(t, alice, time.Second); msg.Type != types.MsgError {
			t.Fatalf("tricks %v: want error, got %q", tricks, msg.Type)
		}
	}

	v := getView(t, b)
	if v.State.Phase != engine.PhaseTricks || v.State.RoundNumber != 1 {
		t.Fatalf("rejected submit changed state: %+v", v.State)
	}
}

func TestBroker_WrongPhaseSubmitRejected(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	// submit_tricks during bidding
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{
		Type: CmdSubmitTricks, Tricks: []int{3, 4, 0, 6}, Bids: []int{3, 4, 0, 7},
	}}
	if msg := recvMsg(t, alice, time.Second); msg.Type != types.MsgError {
		t.Fatalf("want error, got %q", msg.Type)
	}
}

func TestBroker_EndToEndRound(t *testing.T) {
	fs := &fakeStore{}
	b := newTestBroker(t, testState(), fs)
	alice := join(t, b, "c1", "alice")
	bob := join(t, b, "c2", "bob")
	drainJoin(t, alice)
	drainJoin(t, bob)

	// Balanced total must be rejected with no phase change.
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdSubmitBids, Bids: []int{3, 4, 0, 6}}}
	if msg := recvMsg(t, alice, time.Second); msg.Type != types.MsgError {
		t.Fatalf("want error for sum 13, got %q", msg.Type)
	}

	// Over-bid total passes: phase flips to tricks.
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdSubmitBids, Bids: []int{3, 4, 0, 7}}}

	update := recvType(t, bob, types.MsgGameUpdate)
	if update.Game.CurrentRound != 1 {
		t.Fatalf("bids submit must not advance round: %d", update.Game.CurrentRound)
	}
	phase := recvType(t, bob, types.MsgPhaseUpdate)
	if phase.Phase != string(engine.PhaseTricks) {
		t.Fatalf("want tricks phase, got %q", phase.Phase)
	}
	confirmed := recvType(t, alice, types.MsgBidsSubmitted)
	if confirmed.Game == nil {
		t.Fatal("bids_submitted missing snapshot")
	}

	// Tricks summing to 13 commit the round.
	trump := "spades"
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{
		Type: CmdSubmitTricks, Tricks: []int{3, 4, 0, 6}, Bids: []int{3, 4, 0, 7}, Trump: &trump,
	}}

	update = recvType(t, bob, types.MsgGameUpdate)
	if update.Game.CurrentRound != 2 {
		t.Fatalf("want round 2 after commit, got %d", update.Game.CurrentRound)
	}
	if update.Game.Scores != [4]int{19, 26, 30, -10} {
		t.Fatalf("bad cumulative scores: %v", update.Game.Scores)
	}
	phase = recvType(t, bob, types.MsgPhaseUpdate)
	if phase.Phase != string(engine.PhaseBidding) {
		t.Fatalf("want bidding phase after commit, got %q", phase.Phase)
	}

	done := recvType(t, alice, types.MsgTricksSubmitted)
	if done.Round == nil || done.Round.RoundMode != "over" || done.Round.RoundNumber != 1 {
		t.Fatalf("bad committed round: %+v", done.Round)
	}
	if done.Round.TrumpSuit == nil || *done.Round.TrumpSuit != "spades" {
		t.Fatalf("trump not committed: %+v", done.Round.TrumpSuit)
	}

	rounds := fs.committed()
	if len(rounds) != 1 {
		t.Fatalf("want 1 persisted round, got %d", len(rounds))
	}
	if rounds[0].Scores != [4]int{19, 26, 30, -10} || rounds[0].Mode != "over" {
		t.Fatalf("bad persisted round: %+v", rounds[0])
	}

	v := getView(t, b)
	if v.State.RoundNumber != 2 || v.State.Phase != engine.PhaseBidding {
		t.Fatalf("state not rolled over: %+v", v.State)
	}
	if len(v.Bids) != 0 || len(v.Tricks) != 0 || v.Trump != nil ||
		len(v.LockedBids) != 0 || len(v.LockedTricks) != 0 {
		t.Fatalf("selections not reset after commit: %+v", v)
	}
}

func TestBroker_PersistenceFailureKeepsPhase(t *testing.T) {
	fs := &fakeStore{failCreate: true}
	state := testState()
	state.Phase = engine.PhaseTricks
	b := newTestBroker(t, state, fs)
	alice := join(t, b, "c1", "alice")
	bob := join(t, b, "c2", "bob")
	drainJoin(t, alice)
	drainJoin(t, bob)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{
		Type: CmdSubmitTricks, Tricks: []int{3, 4, 0, 6}, Bids: []int{3, 4, 0, 7},
	}}

	if msg := recvMsg(t, alice, time.Second); msg.Type != types.MsgError {
		t.Fatalf("want error on store failure, got %q", msg.Type)
	}
	// No half-committed broadcast to anyone.
	recvNoMsg(t, bob, 100*time.Millisecond)

	v := getView(t, b)
	if v.State.Phase != engine.PhaseTricks || v.State.RoundNumber != 1 {
		t.Fatalf("failed commit mutated state: %+v", v.State)
	}
}

func TestBroker_MidRoundJoinConverges(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	hearts := "hearts"
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 4}}
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdTrumpSelection, Trump: &hearts}}
	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBetLocked, Seat: 0}}
	recvType(t, alice, types.MsgBetLocked)

	late := join(t, b, "c2", "bob")

	gotBid, gotTrump, gotLock := false, false, false
	for {
		msg := recvMsg(t, late, time.Second)
		switch msg.Type {
		case types.MsgBidSelection:
			data := msg.Data.(types.BidSelectionData)
			if data.PlayerIndex == 0 && data.Bid == 4 {
				gotBid = true
			}
		case types.MsgTrumpSelection:
			data := msg.Data.(types.TrumpSelectionData)
			if data.TrumpSuit != nil && *data.TrumpSuit == "hearts" {
				gotTrump = true
			}
		case types.MsgBetLocked:
			if msg.Data.(types.LockData).PlayerIndex == 0 {
				gotLock = true
			}
		case types.MsgPhaseUpdate:
			if !gotBid || !gotTrump || !gotLock {
				t.Fatalf("catch-up incomplete: bid=%v trump=%v lock=%v", gotBid, gotTrump, gotLock)
			}
			return
		}
	}
}

func TestBroker_DisconnectPreservesLiveState(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 7}}
	recvType(t, alice, types.MsgBidSelection)

	b.Inbox() <- Leave{ConnID: "c1"}

	v := getView(t, b)
	if v.NumClients != 0 {
		t.Fatalf("want 0 clients after leave, got %d", v.NumClients)
	}
	if v.Bids[0] != 7 {
		t.Fatalf("disconnect lost live selection: %v", v.Bids)
	}

	// Reconnection receives the surviving selection in its catch-up.
	again := join(t, b, "c1", "alice")
	msg := recvType(t, again, types.MsgBidSelection)
	data := msg.Data.(types.BidSelectionData)
	if data.PlayerIndex != 0 || data.Bid != 7 {
		t.Fatalf("reconnect catch-up wrong: %+v", data)
	}
}

func TestBroker_SyncGameGrantsSeatMidSession(t *testing.T) {
	state := testState()
	state.SeatIdentities[2] = "" // seat 2 starts unbound
	b := newTestBroker(t, state, &fakeStore{})
	eve := join(t, b, "c1", "eve")
	drainJoin(t, eve)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 2, Value: 5}}
	if msg := recvMsg(t, eve, time.Second); msg.Type != types.MsgError {
		t.Fatalf("unbound caller should be rejected, got %q", msg.Type)
	}

	// Binding eve to seat 2 grants authority on her next message.
	sync := SyncGame{
		Players:        state.Players,
		SeatIdentities: [engine.NumSeats]string{"alice", "bob", "eve", "dana"},
		OwnerIdentity:  state.OwnerIdentity,
		Status:         engine.StatusActive,
	}
	b.Inbox() <- sync
	update := recvType(t, eve, types.MsgGameUpdate)
	// The broadcast snapshot must carry the new binding so clients learn
	// seat ownership without reconnecting.
	if got := update.Game.PlayerUserIDs[2]; got == nil || *got != "eve" {
		t.Fatalf("game_update missing new seat binding: %v", got)
	}
	if update.Game.OwnerID == nil || *update.Game.OwnerID != "olivia" {
		t.Fatalf("game_update missing owner: %v", update.Game.OwnerID)
	}

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 2, Value: 5}}
	if msg := recvMsg(t, eve, time.Second); msg.Type != types.MsgBidSelection {
		t.Fatalf("bound caller still rejected: %+v", msg)
	}
}

func TestBroker_CompletedGameRejectsSubmits(t *testing.T) {
	state := testState()
	state.Status = engine.StatusCompleted
	b := newTestBroker(t, state, &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdSubmitBids, Bids: []int{3, 4, 0, 7}}}
	if msg := recvMsg(t, alice, time.Second); msg.Type != types.MsgError {
		t.Fatalf("want error on completed game, got %q", msg.Type)
	}
}

func TestBroker_DoneUnblocksSendersAfterShutdown(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	b.Inbox() <- Shutdown{}

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after shutdown")
	}

	// A sender selecting on Done never blocks on the dead inbox, even once
	// the buffer would have filled.
	for i := 0; i < 128; i++ {
		select {
		case b.Inbox() <- FromClient{ConnID: "c1", Cmd: Command{Type: CmdBidSelection, Seat: 0, Value: 1}}:
		case <-b.Done():
		}
	}
}

func TestBroker_SlowClientDropped(t *testing.T) {
	b := newTestBroker(t, testState(), &fakeStore{})
	alice := join(t, b, "c1", "alice")
	drainJoin(t, alice)

	// A client whose outbox cannot absorb the catch-up burst is dropped.
	tiny := make(chan types.ServerMessage) // unbuffered, nobody reading
	b.Inbox() <- Join{ConnID: "c2", Identity: "bob", Outbox: tiny}

	v := getView(t, b)
	if v.NumClients != 1 {
		t.Fatalf("want slow client dropped, have %d clients", v.NumClients)
	}
}
