package consent

// RosterEntry is the engine's view of one player's membership in a game.
// SharedFormID is nil when the player has not shared a form with the game.
type RosterEntry struct {
	PlayerID     uint
	Status       MembershipStatus
	SharedFormID *uint
}

// HasShared reports whether the entry points at a form.
func (e RosterEntry) HasShared() bool {
	return e.SharedFormID != nil
}

// Progress counts joined players and how many of them have shared a form.
// These counts are safe to show before the gate opens; they reveal no ratings.
type Progress struct {
	Joined         int `json:"joined"`
	Shared         int `json:"shared"`
	MinimumPlayers int `json:"minimum_players"`
}

// ShareProgress summarizes the roster against the game's minimum player count.
func ShareProgress(roster []RosterEntry, minimumPlayers int) Progress {
	p := Progress{MinimumPlayers: minimumPlayers}
	for _, entry := range roster {
		if entry.Status != MembershipJoined {
			continue
		}
		p.Joined++
		if entry.HasShared() {
			p.Shared++
		}
	}
	return p
}

// CanDisclose is the disclosure gate. It opens only when at least one player has joined,
// every joined player has shared a form, and the number of shared forms reaches
// minimumPlayers. It must be evaluated fresh for every request.
func CanDisclose(roster []RosterEntry, minimumPlayers int) bool {
	p := ShareProgress(roster, minimumPlayers)
	return p.Joined > 0 &&
		p.Shared == p.Joined &&
		p.Shared >= minimumPlayers
}

// MeetsMinimumThreshold checks only the shared-form count against minimumPlayers.
// It ignores whether everyone has shared and must never authorize disclosure by itself.
func MeetsMinimumThreshold(roster []RosterEntry, minimumPlayers int) bool {
	return ShareProgress(roster, minimumPlayers).Shared >= minimumPlayers
}

// SharedFormIDs returns the distinct form ids referenced by joined roster entries,
// in roster order.
func SharedFormIDs(roster []RosterEntry) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, entry := range roster {
		if entry.Status != MembershipJoined || !entry.HasShared() {
			continue
		}
		id := *entry.SharedFormID
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
