package engine

// CanEdit decides whether a caller may change the live selection of
// targetSeat. The owner may edit any seat; a seat-holder only their own; a
// spectator nothing. A seat already in the locked set is immutable for the
// rest of the phase no matter who asks.
func CanEdit(isOwner bool, callerSeat, targetSeat int, locked map[int]bool) bool {
	if !validSeat(targetSeat) {
		return false
	}
	if locked[targetSeat] {
		return false
	}
	if isOwner {
		return true
	}
	return callerSeat == targetSeat
}

// CanLock follows the same rules as CanEdit. Locking an already-locked seat
// is handled upstream as an idempotent no-op, so from an authority
// standpoint it is simply not an edit.
func CanLock(isOwner bool, callerSeat, targetSeat int, locked map[int]bool) bool {
	return CanEdit(isOwner, callerSeat, targetSeat, locked)
}
