package engine

import "testing"

func TestSelections_LastWriterWins(t *testing.T) {
	sel := NewSelections()
	sel.Set(KindBid, 1, 3)
	sel.Set(KindBid, 1, 5)
	sel.Set(KindBid, 1, 2)

	if v, ok := sel.Get(KindBid, 1); !ok || v != 2 {
		t.Fatalf("want last accepted value 2, got %d (ok=%v)", v, ok)
	}
}

func TestSelections_KindsAreIndependent(t *testing.T) {
	sel := NewSelections()
	sel.Set(KindBid, 0, 4)
	sel.Set(KindTrick, 0, 7)

	if v, _ := sel.Get(KindBid, 0); v != 4 {
		t.Fatalf("bid overwritten by trick: %d", v)
	}
	if v, _ := sel.Get(KindTrick, 0); v != 7 {
		t.Fatalf("trick wrong: %d", v)
	}
	sel.Lock(KindBid, 0)
	if sel.Locked(KindTrick)[0] {
		t.Fatal("bid lock leaked into trick lock set")
	}
}

func TestSelections_LockIdempotent(t *testing.T) {
	sel := NewSelections()
	sel.Lock(KindBid, 2)
	sel.Lock(KindBid, 2)
	if !sel.Locked(KindBid)[2] {
		t.Fatal("seat 2 should be locked")
	}
	if len(sel.LockedBids) != 1 {
		t.Fatalf("lock set grew on repeat lock: %v", sel.LockedBids)
	}
}

func TestSelections_Reset(t *testing.T) {
	suit := "hearts"
	sel := NewSelections()
	sel.Set(KindBid, 0, 3)
	sel.Set(KindTrick, 1, 5)
	sel.SetTrump(&suit)
	sel.Lock(KindBid, 0)
	sel.Lock(KindTrick, 1)

	sel.Reset()

	if len(sel.Bids) != 0 || len(sel.Tricks) != 0 {
		t.Fatalf("selections survived reset: bids=%v tricks=%v", sel.Bids, sel.Tricks)
	}
	if len(sel.LockedBids) != 0 || len(sel.LockedTricks) != 0 {
		t.Fatalf("locks survived reset: %v %v", sel.LockedBids, sel.LockedTricks)
	}
	if sel.Trump != nil {
		t.Fatalf("trump survived reset: %v", *sel.Trump)
	}
}

func TestSelections_TrumpClearable(t *testing.T) {
	suit := "spades"
	sel := NewSelections()
	sel.SetTrump(&suit)
	sel.SetTrump(nil)
	if sel.Trump != nil {
		t.Fatal("nil trump should clear the proposal")
	}
}
