// Package consent holds the comfort-rating model and the aggregation engine that turns a
// game's shared consent forms into an anonymous per-topic verdict.
//
// Nothing in this package performs I/O or reads the current user. Callers load a Snapshot
// (roster plus responses) and hand it over; authorization happens before that.
package consent

// Rating is a player's comfort level with a single topic.
type Rating string

const (
	// RatingGreen means enthusiastic consent; bring it on.
	RatingGreen Rating = "green"
	// RatingYellow means okay if veiled or offstage; needs discussion ahead of time.
	RatingYellow Rating = "yellow"
	// RatingRed is a hard line; do not include.
	RatingRed Rating = "red"
)

// Valid reports whether r is one of the three known ratings.
func (r Rating) Valid() bool {
	switch r {
	case RatingGreen, RatingYellow, RatingRed:
		return true
	}
	return false
}

// Severity orders ratings for aggregation: red > yellow > green. Unknown ratings sort below green.
func (r Rating) Severity() int {
	switch r {
	case RatingRed:
		return 3
	case RatingYellow:
		return 2
	case RatingGreen:
		return 1
	}
	return 0
}

// Status is the aggregate verdict for one topic across a game.
type Status string

const (
	StatusSafe      Status = "safe"
	StatusDiscuss   Status = "discuss"
	StatusForbidden Status = "forbidden"
)

// MembershipStatus is a roster entry's standing in a game.
type MembershipStatus string

const (
	MembershipInvited MembershipStatus = "invited"
	MembershipJoined  MembershipStatus = "joined"
	MembershipLeft    MembershipStatus = "left"
)

// Valid reports whether s is a known membership status.
func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipInvited, MembershipJoined, MembershipLeft:
		return true
	}
	return false
}
