// Package domain holds the core value types of the n-party-preferred
// pipeline: party group sets, ballot orderings and their dense ranks,
// tally vectors, and the jurisdictions ballots are filtered by.
// Everything here is immutable after construction and safe to share
// across phases.
package domain

import (
	"fmt"
	"sort"
)

// Jurisdiction identifies the state or territory a scenario operates on.
// Ballot and correspondence files are nation-wide; rows for other
// jurisdictions are skipped during processing.
type Jurisdiction string

// The Australian states and territories.
const (
	ACT Jurisdiction = "ACT"
	NSW Jurisdiction = "NSW"
	NT  Jurisdiction = "NT"
	QLD Jurisdiction = "QLD"
	SA  Jurisdiction = "SA"
	TAS Jurisdiction = "TAS"
	VIC Jurisdiction = "VIC"
	WA  Jurisdiction = "WA"
)

var jurisdictions = map[string]Jurisdiction{
	"ACT": ACT, "NSW": NSW, "NT": NT, "QLD": QLD,
	"SA": SA, "TAS": TAS, "VIC": VIC, "WA": WA,
}

// ParseJurisdiction converts a case-insensitive abbreviation like "qld"
// into a Jurisdiction. It returns ErrInvalidJurisdiction for anything that
// is not one of the eight states and territories.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	j, ok := jurisdictions[upper(s)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidJurisdiction, s)
	}
	return j, nil
}

func (j Jurisdiction) String() string { return string(j) }

// upper is an ASCII-only ToUpper; jurisdiction abbreviations are ASCII.
func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// GroupSet is the configured mapping from party/group names to the
// (pseudo)candidates that represent them on the ballot. Group names are
// sorted once at construction; a group's position in that sorted order is
// its stable index, used by every Ordering for the duration of a run.
type GroupSet struct {
	names      []string
	indices    map[string]int
	candidates map[string][]string
}

// NewGroupSet builds a GroupSet from the configured group → candidate-ID
// mapping. Candidate IDs are of the form "TICKET:LABEL" — either an
// above-the-line ticket pseudo-candidate ("C:Some Party") or a named
// below-the-line candidate ("C:SURNAME Given Names").
//
// Returns ErrEmptyGroupSet when no groups are supplied and ErrEmptyGroup
// when a group has no candidates; both are configuration errors that must
// fail before any ballot is read.
func NewGroupSet(groups map[string][]string) (*GroupSet, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyGroupSet
	}

	names := make([]string, 0, len(groups))
	candidates := make(map[string][]string, len(groups))
	for name, cands := range groups {
		if name == "" {
			return nil, fmt.Errorf("%w: group with empty name", ErrEmptyGroup)
		}
		if len(cands) == 0 {
			return nil, fmt.Errorf("%w: group %q", ErrEmptyGroup, name)
		}
		names = append(names, name)
		cs := make([]string, len(cands))
		copy(cs, cands)
		candidates[name] = cs
	}
	sort.Strings(names)

	indices := make(map[string]int, len(names))
	for i, name := range names {
		indices[name] = i
	}

	return &GroupSet{names: names, indices: indices, candidates: candidates}, nil
}

// Len returns the number of groups.
func (gs *GroupSet) Len() int { return len(gs.names) }

// Names returns the group names in sorted (index) order.
// The returned slice must not be modified.
func (gs *GroupSet) Names() []string { return gs.names }

// Index returns the stable index of a group name.
func (gs *GroupSet) Index(name string) (int, bool) {
	i, ok := gs.indices[name]
	return i, ok
}

// Candidates returns the configured candidate IDs for a group.
// The returned slice must not be modified.
func (gs *GroupSet) Candidates(name string) []string { return gs.candidates[name] }

// CandidateMap returns the full group → candidates mapping, for the JSON
// sidecar. The returned map shares no storage with the GroupSet.
func (gs *GroupSet) CandidateMap() map[string][]string {
	out := make(map[string][]string, len(gs.names))
	for _, name := range gs.names {
		cs := make([]string, len(gs.candidates[name]))
		copy(cs, gs.candidates[name])
		out[name] = cs
	}
	return out
}

// Labels returns the canonical ordering labels for this group set:
// "None" first, then every arrangement of group names by length and
// lexicographic order. Label i corresponds to Rank value i.
func (gs *GroupSet) Labels() []string { return Enumerate(gs.names) }

// CountOrderings returns the number of possible orderings over this group
// set, which is the length of every tally vector in the pipeline.
func (gs *GroupSet) CountOrderings() int { return CountOrderings(len(gs.names)) }
