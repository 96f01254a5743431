package engine

import "strings"

// ResolveSeat maps an authenticated identity to the seat it occupies, or
// NoSeat if it occupies none. Unassigned is not an error: the caller is a
// spectator until the session binds them to a seat. Resolution is a pure
// function of the session value, so callers re-run it whenever the session
// changes.
//
// An exact match against the seat bindings wins; failing that, a normalized
// comparison absorbs representational drift in how the identity provider
// encodes the same principal (case, stray punctuation).
func ResolveSeat(identity string, s Session) int {
	if identity == "" {
		return NoSeat
	}
	for i, bound := range s.SeatIdentities {
		if bound != "" && bound == identity {
			return i
		}
	}
	norm := NormalizeIdentity(identity)
	if norm == "" {
		return NoSeat
	}
	for i, bound := range s.SeatIdentities {
		if bound != "" && NormalizeIdentity(bound) == norm {
			return i
		}
	}
	return NoSeat
}

// IsOwner reports whether the identity holds the session's elevated role.
// The owner need not occupy a seat.
func IsOwner(identity string, s Session) bool {
	if identity == "" || s.OwnerIdentity == "" {
		return false
	}
	if identity == s.OwnerIdentity {
		return true
	}
	return NormalizeIdentity(identity) == NormalizeIdentity(s.OwnerIdentity)
}

// NormalizeIdentity lowercases and strips everything but letters and digits,
// so "User-1234" and "user1234" compare equal.
func NormalizeIdentity(identity string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(identity)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
