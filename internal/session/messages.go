package session

import (
	"context"

	"github.com/whist-live/backend/internal/engine"
	"github.com/whist-live/backend/internal/types"
)

type Msg interface{ isSessionMsg() }

// Join registers a connection and immediately replays the full current
// state (snapshot, live selections, locks, phase) into its outbox, so a
// fresh or reconnected client converges without waiting for a mutation.
type Join struct {
	ConnID   string
	Identity string // "" for an unauthenticated spectator
	Outbox   chan types.ServerMessage
}

func (Join) isSessionMsg() {}

// Leave drops the connection. Session state, live selections, and locks
// are untouched: one participant's disconnect never loses the table's
// in-flight values.
type Leave struct{ ConnID string }

func (Leave) isSessionMsg() {}

// FromClient carries one decoded client command. ConnID identifies the
// sender so rejections can be answered to that connection alone.
type FromClient struct {
	ConnID string
	Cmd    Command
}

func (FromClient) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// SyncGame refreshes the broker's copy of the persisted game fields after
// an out-of-band update (rename, seat binding, completion). Live selections
// and locks are untouched; connections re-resolve their seats against the
// new bindings on their next message.
type SyncGame struct {
	Name           string
	Players        [engine.NumSeats]string
	SeatIdentities [engine.NumSeats]string
	OwnerIdentity  string
	Status         engine.Status
}

func (SyncGame) isSessionMsg() {}

// GetState reflects internal state without data races. Test-only.
type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type View struct {
	NumClients   int
	State        engine.Session
	Bids         map[int]int
	Tricks       map[int]int
	Trump        *string
	LockedBids   map[int]bool
	LockedTricks map[int]bool
}

type CommandType string

const (
	CmdBidSelection     CommandType = types.MsgBidSelection
	CmdTrickSelection   CommandType = types.MsgTrickSelection
	CmdTrumpSelection   CommandType = types.MsgTrumpSelection
	CmdBetLocked        CommandType = types.MsgBetLocked
	CmdRoundScoreLocked CommandType = types.MsgRoundScoreLocked
	CmdSubmitBids       CommandType = types.MsgSubmitBids
	CmdSubmitTricks     CommandType = types.MsgSubmitTricks
)

// Command is the closed inbound command set, decoded at the websocket edge.
// Slice lengths are validated by the broker so a short payload produces a
// proper error reply rather than a silent default.
type Command struct {
	Type   CommandType
	Seat   int
	Value  int
	Trump  *string
	Bids   []int
	Tricks []int
}

// CommittedRound is what the broker hands the external store once the
// tricks-phase guard passes and scores are computed.
type CommittedRound struct {
	RoundNumber int
	Bids        [engine.NumSeats]int
	Tricks      [engine.NumSeats]int
	Scores      [engine.NumSeats]int
	Mode        string
	Trump       *string
	CreatedBy   *string
}

// Store is the external Round/Game persistence collaborator. Both calls run
// inside the broker loop during a submit; the loop's serialization is what
// prevents a double-submission racing the commit.
type Store interface {
	CreateRound(ctx context.Context, gameID string, round CommittedRound) error
	UpdateGameScores(ctx context.Context, gameID string, scores [engine.NumSeats]int, roundNumber int) error
}
