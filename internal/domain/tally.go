package domain

// BoothKey identifies a polling booth. Polling-place IDs have been known to
// be inconsistent across AEC files; the (Division, Booth) name pair is the
// only reliable identifier.
type BoothKey struct {
	Division string
	Booth    string
}

// SpecialCategory is the normalized name of a special-vote collection
// channel. Booth tallies whose booth name carries one of the special-vote
// markers are pulled out of the per-booth map after the main distribution
// pass and merged additively into a per-division tally for their category.
type SpecialCategory string

// The special-vote categories, plus Other for unrecognized markers.
const (
	Absent      SpecialCategory = "Absent"
	Postal      SpecialCategory = "Postal"
	PrePoll     SpecialCategory = "Pre-Poll"
	Provisional SpecialCategory = "Provisional"
	OtherVote   SpecialCategory = "Other"
)

// SpecialMarkers are the raw substrings that flag a special-vote booth in
// the ballot file, e.g. "POSTAL_3". Order is fixed for reproducible output.
var SpecialMarkers = [4]string{"ABSENT", "POSTAL", "PRE_POLL", "PROVISIONAL"}

// SpecialCategoryFor normalizes a special-vote marker into its category.
func SpecialCategoryFor(marker string) SpecialCategory {
	switch marker {
	case "ABSENT":
		return Absent
	case "POSTAL":
		return Postal
	case "PRE_POLL":
		return PrePoll
	case "PROVISIONAL":
		return Provisional
	default:
		return OtherVote
	}
}

// DivisionSpecialKey identifies one (division, special category) aggregate
// in the distribution output.
type DivisionSpecialKey struct {
	Division string
	Category SpecialCategory
}
