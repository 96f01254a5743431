package engine

// SelectionKind names the two per-seat live selection maps. Trump is a
// session-wide value, not a per-seat kind, and carries no lock.
type SelectionKind string

const (
	KindBid   SelectionKind = "bid"
	KindTrick SelectionKind = "trick"
)

// Selections is the ephemeral pre-commit state for one session: what each
// seat is currently proposing, plus which seats have confirmed. It never
// survives a phase transition and is never persisted.
type Selections struct {
	Bids         map[int]int
	Tricks       map[int]int
	Trump        *string
	LockedBids   map[int]bool
	LockedTricks map[int]bool
}

func NewSelections() *Selections {
	return &Selections{
		Bids:         make(map[int]int),
		Tricks:       make(map[int]int),
		LockedBids:   make(map[int]bool),
		LockedTricks: make(map[int]bool),
	}
}

// Set overwrites the seat's current value for the kind. Last writer wins:
// authority checks upstream guarantee at most one legitimate writer per seat,
// so there is nothing to reconcile.
func (s *Selections) Set(kind SelectionKind, seat, value int) {
	switch kind {
	case KindBid:
		s.Bids[seat] = value
	case KindTrick:
		s.Tricks[seat] = value
	}
}

// Get returns the seat's live value for the kind, if any.
func (s *Selections) Get(kind SelectionKind, seat int) (int, bool) {
	switch kind {
	case KindBid:
		v, ok := s.Bids[seat]
		return v, ok
	case KindTrick:
		v, ok := s.Tricks[seat]
		return v, ok
	}
	return 0, false
}

// Lock marks the seat's current value final for the phase. Idempotent:
// locking a locked seat changes nothing. There is no unlock; only Reset
// clears lock sets.
func (s *Selections) Lock(kind SelectionKind, seat int) {
	switch kind {
	case KindBid:
		s.LockedBids[seat] = true
	case KindTrick:
		s.LockedTricks[seat] = true
	}
}

// Locked returns the lock set for the kind.
func (s *Selections) Locked(kind SelectionKind) map[int]bool {
	if kind == KindBid {
		return s.LockedBids
	}
	return s.LockedTricks
}

// SetTrump overwrites the shared trump proposal. nil clears it. Any
// authorized caller may set it during bidding; it has no lock and no
// turn-order restriction.
func (s *Selections) SetTrump(suit *string) {
	s.Trump = suit
}

// Reset clears all selections and all locks. Invoked on every phase
// transition.
func (s *Selections) Reset() {
	s.Bids = make(map[int]int)
	s.Tricks = make(map[int]int)
	s.Trump = nil
	s.LockedBids = make(map[int]bool)
	s.LockedTricks = make(map[int]bool)
}
