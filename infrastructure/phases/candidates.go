package phases

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-npp/internal/domain"
)

// candidateIndex is the per-run mapping from the ballot file's header row
// to the configured groups. It is built once at phase setup — before any
// ballot row is read — and is immutable afterwards.
//
// Candidate columns are numbered 1..K relative to the first non-metadata
// column, ticket (ATL) columns first, then below-the-line candidates.
type candidateIndex struct {
	// belowStart is the absolute header index of the first BTL column.
	belowStart int

	// groupsAbove maps a group index to the relative column numbers of its
	// ATL ticket pseudo-candidates.
	groupsAbove map[int][]int

	// groupsBelow maps a group index to the relative column numbers of its
	// BTL candidates.
	groupsBelow map[int][]int

	// belowGroups maps an absolute header index to the group index owning
	// that BTL column, or -1. Sized to the header so the hot loop can index
	// it without bounds branching beyond the record length check.
	belowGroups []int
}

// newCandidateIndex resolves every configured candidate ID against the
// preferences header. A configured candidate that is missing from the
// header is a fatal configuration error; the diagnostic names the closest
// header by edit distance since the usual cause is a typo or a stale
// config carried across elections.
func newCandidateIndex(headers []string, groups *domain.GroupSet) (*candidateIndex, error) {
	if len(headers) < prefsFixedColumns {
		return nil, fmt.Errorf("%w: preferences header has %d columns, expected at least %d",
			domain.ErrMalformedRow, len(headers), prefsFixedColumns)
	}

	// The first ticket is labelled "A" and holds at least two candidates,
	// and all tickets precede all candidates in column order. So the second
	// "A:" column, if any, is the first BTL column. Without one, only
	// ungrouped candidates exist and BTL columns start immediately.
	belowStart := prefsFixedColumns
	for i := prefsFixedColumns + 1; i < len(headers); i++ {
		if strings.HasPrefix(headers[i], "A:") {
			belowStart = i
			break
		}
	}

	candNums := make(map[string]int, len(headers)-prefsFixedColumns)
	for i, h := range headers[prefsFixedColumns:] {
		candNums[h] = i + 1
	}

	ci := &candidateIndex{
		belowStart:  belowStart,
		groupsAbove: make(map[int][]int, groups.Len()),
		groupsBelow: make(map[int][]int, groups.Len()),
		belowGroups: make([]int, len(headers)),
	}
	for i := range ci.belowGroups {
		ci.belowGroups[i] = -1
	}

	ticketCount := belowStart - prefsFixedColumns
	for _, name := range groups.Names() {
		g, _ := groups.Index(name)
		for _, cand := range groups.Candidates(name) {
			cn, ok := candNums[cand]
			if !ok {
				return nil, fmt.Errorf("%w: group %q candidate %q; closest header is %q",
					domain.ErrUnknownCandidate, name, cand, closestHeader(cand, headers[prefsFixedColumns:]))
			}
			if cn > ticketCount {
				ci.groupsBelow[g] = append(ci.groupsBelow[g], cn)
				ci.belowGroups[cn+prefsFixedColumns-1] = g
			} else {
				ci.groupsAbove[g] = append(ci.groupsAbove[g], cn)
			}
		}
	}
	return ci, nil
}

// closestHeader returns the candidate header nearest to target by
// Levenshtein distance, for "did you mean" diagnostics.
func closestHeader(target string, headers []string) string {
	best, bestDist := "", -1
	for _, h := range headers {
		d := levenshtein.ComputeDistance(target, h)
		if bestDist < 0 || d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}
