// Package scoring holds the pure score arithmetic for a round. No state,
// no I/O; the session broker calls it once per committed round.
package scoring

const tricksPerRound = 13

type Mode string

const (
	ModeOver  Mode = "over"
	ModeUnder Mode = "under"
)

// RoundMode classifies a round by its total bids: over when the table bid
// more tricks than the deck holds, under otherwise. The total can never be
// exactly 13; the bidding guard rejects that upstream.
func RoundMode(totalBids int) Mode {
	if totalBids > tricksPerRound {
		return ModeOver
	}
	return ModeUnder
}

// Score computes one seat's score for a round.
//
//	bid 0, took 0:        +50 under, +30 over
//	bid 0, took n:        -10 * n
//	bid n, took n:        n*n + 10
//	bid n, took m != n:   -10 * |n - m|
func Score(bid, tricks int, mode Mode) int {
	if bid == 0 {
		if tricks == 0 {
			if mode == ModeUnder {
				return 50
			}
			return 30
		}
		return -10 * tricks
	}
	if bid == tricks {
		return bid*bid + 10
	}
	diff := bid - tricks
	if diff < 0 {
		diff = -diff
	}
	return -10 * diff
}

// RoundScores applies Score seat-by-seat.
func RoundScores(bids, tricks [4]int, mode Mode) [4]int {
	var out [4]int
	for i := range bids {
		out[i] = Score(bids[i], tricks[i], mode)
	}
	return out
}
