package engine

import "errors"

var ErrBadBids = errors.New("bids must be 4 values, each between 0 and 13")
var ErrBidSumThirteen = errors.New("total bids cannot equal 13")
var ErrBadTricks = errors.New("tricks must be 4 values, each between 0 and 13")
var ErrTrickSum = errors.New("total tricks must equal 13")
var ErrWrongPhase = errors.New("wrong phase for this action")
var ErrGameCompleted = errors.New("game already completed")

const (
	// NumSeats is fixed: whist is a four-hand game.
	NumSeats = 4
	// TricksPerRound is the number of tricks each round deals out.
	TricksPerRound = 13
)

// NoSeat marks a caller that occupies no seat (spectator).
const NoSeat = -1

type Phase string

const (
	PhaseBidding Phase = "bidding"
	PhaseTricks  Phase = "tricks"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is the authoritative per-game state a broker owns. Seat bindings
// and the owner come from the persisted game record; Phase and RoundNumber
// advance only through the broker's submit handling.
type Session struct {
	ID             string
	Name           string
	Players        [NumSeats]string
	SeatIdentities [NumSeats]string // "" = unbound seat
	OwnerIdentity  string           // "" = no owner recorded
	Scores         [NumSeats]int
	RoundNumber    int
	Phase          Phase
	Status         Status
}

func validSeat(seat int) bool {
	return seat >= 0 && seat < NumSeats
}

// ValidateBids checks the bidding-phase submit guard: four bids in [0,13]
// whose total is not exactly 13. A perfectly balanced total is rejected by
// rule, so every round is either over- or under-bid.
func ValidateBids(bids [NumSeats]int) error {
	total := 0
	for _, b := range bids {
		if b < 0 || b > TricksPerRound {
			return ErrBadBids
		}
		total += b
	}
	if total == TricksPerRound {
		return ErrBidSumThirteen
	}
	return nil
}

// ValidateTricks checks the tricks-phase submit guard: four counts in [0,13]
// summing to exactly the 13 tricks dealt.
func ValidateTricks(tricks [NumSeats]int) error {
	total := 0
	for _, t := range tricks {
		if t < 0 || t > TricksPerRound {
			return ErrBadTricks
		}
		total += t
	}
	if total != TricksPerRound {
		return ErrTrickSum
	}
	return nil
}

// DerivePhase reconstructs the phase for a session booted from the persisted
// record. Rounds are committed atomically with the round-number bump, so a
// round on file for every number below the current one means bidding for the
// current round is open; a missing latest round means its tricks are still
// being played.
func DerivePhase(currentRound, committedRounds int) Phase {
	if committedRounds < currentRound-1 {
		return PhaseTricks
	}
	return PhaseBidding
}
