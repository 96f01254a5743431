// Package types defines the websocket wire protocol: a closed set of
// {type, data} envelopes in both directions. Inbound payloads decode into
// per-kind structs; anything outside the set is rejected at the edge.
package types

import "encoding/json"

// Inbound message types (client -> broker).
const (
	MsgBidSelection     = "bid_selection"
	MsgTrickSelection   = "trick_selection"
	MsgTrumpSelection   = "trump_selection"
	MsgBetLocked        = "bet_locked"
	MsgRoundScoreLocked = "round_score_locked"
	MsgSubmitBids       = "submit_bids"
	MsgSubmitTricks     = "submit_tricks"
)

// Outbound message types (broker -> clients).
const (
	MsgGameUpdate      = "game_update"
	MsgPhaseUpdate     = "phase_update"
	MsgBidsSubmitted   = "bids_submitted"
	MsgTricksSubmitted = "tricks_submitted"
	MsgError           = "error"
)

// ClientMessage is the inbound envelope. Data stays raw until the type is
// known.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type BidSelectionData struct {
	PlayerIndex int `json:"player_index"`
	Bid         int `json:"bid"`
}

type TrickSelectionData struct {
	PlayerIndex int `json:"player_index"`
	Trick       int `json:"trick"`
}

type TrumpSelectionData struct {
	TrumpSuit *string `json:"trump_suit"`
}

type LockData struct {
	PlayerIndex int `json:"player_index"`
}

type SubmitBidsData struct {
	Bids      []int   `json:"bids"`
	TrumpSuit *string `json:"trump_suit,omitempty"`
}

type SubmitTricksData struct {
	Tricks    []int   `json:"tricks"`
	Bids      []int   `json:"bids"`
	TrumpSuit *string `json:"trump_suit,omitempty"`
}

// ServerMessage is the outbound envelope. Exactly one of the optional
// fields is populated per type; Data carries the selection/lock deltas.
type ServerMessage struct {
	Type    string         `json:"type"`
	Phase   string         `json:"phase,omitempty"`
	Game    *GameSnapshot  `json:"game,omitempty"`
	Round   *RoundSnapshot `json:"round,omitempty"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

// GameSnapshot is the full session view sent on connect and after every
// committed submit, seat bindings and owner included so clients can derive
// who holds which seat from broadcasts alone.
type GameSnapshot struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	Players       [4]string  `json:"players"`
	PlayerUserIDs [4]*string `json:"player_user_ids"`
	OwnerID       *string    `json:"owner_id,omitempty"`
	Scores        [4]int     `json:"scores"`
	CurrentRound  int        `json:"current_round"`
	Status        string     `json:"status"`
}

// RoundSnapshot accompanies tricks_submitted: the round as committed.
type RoundSnapshot struct {
	RoundNumber int     `json:"round_number"`
	Bids        [4]int  `json:"bids"`
	Tricks      [4]int  `json:"tricks"`
	Scores      [4]int  `json:"scores"`
	RoundMode   string  `json:"round_mode"`
	TrumpSuit   *string `json:"trump_suit"`
}

func GameUpdate(g *GameSnapshot) ServerMessage {
	return ServerMessage{Type: MsgGameUpdate, Game: g}
}

func PhaseUpdate(phase string) ServerMessage {
	return ServerMessage{Type: MsgPhaseUpdate, Phase: phase}
}

func BidSelection(seat, bid int) ServerMessage {
	return ServerMessage{Type: MsgBidSelection, Data: BidSelectionData{PlayerIndex: seat, Bid: bid}}
}

func TrickSelection(seat, trick int) ServerMessage {
	return ServerMessage{Type: MsgTrickSelection, Data: TrickSelectionData{PlayerIndex: seat, Trick: trick}}
}

func TrumpSelection(suit *string) ServerMessage {
	return ServerMessage{Type: MsgTrumpSelection, Data: TrumpSelectionData{TrumpSuit: suit}}
}

func BetLocked(seat int) ServerMessage {
	return ServerMessage{Type: MsgBetLocked, Data: LockData{PlayerIndex: seat}}
}

func RoundScoreLocked(seat int) ServerMessage {
	return ServerMessage{Type: MsgRoundScoreLocked, Data: LockData{PlayerIndex: seat}}
}

func Error(msg string) ServerMessage {
	return ServerMessage{Type: MsgError, Message: msg}
}
