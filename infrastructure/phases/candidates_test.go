package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-npp/internal/domain"
)

// testHeader is a miniature 2019+ preferences header: six metadata columns,
// two ticket columns, then four below-the-line candidates.
func testHeader() []string {
	return []string{
		"State", "Division", "Vote Collection Point Name",
		"Vote Collection Point ID", "Batch No", "Paper No",
		"A:Alpha Party", "B:Beta Party",
		"A:AARONS Amy", "A:ABLE Ben", "B:BAKER Cal", "UG:CARTER Dee",
	}
}

func TestNewCandidateIndex(t *testing.T) {
	groups, err := domain.NewGroupSet(map[string][]string{
		"Alp": {"A:Alpha Party", "A:AARONS Amy", "A:ABLE Ben"},
		"Bet": {"B:Beta Party", "B:BAKER Cal"},
	})
	require.NoError(t, err)

	ci, err := newCandidateIndex(testHeader(), groups)
	require.NoError(t, err)

	// The second "A:" column is the first BTL column.
	assert.Equal(t, 8, ci.belowStart)

	alp, _ := groups.Index("Alp")
	bet, _ := groups.Index("Bet")

	assert.Equal(t, []int{1}, ci.groupsAbove[alp])
	assert.Equal(t, []int{2}, ci.groupsAbove[bet])
	assert.Equal(t, []int{3, 4}, ci.groupsBelow[alp])
	assert.Equal(t, []int{5}, ci.groupsBelow[bet])

	// belowGroups maps absolute header indices back to group indices.
	assert.Equal(t, alp, ci.belowGroups[8])
	assert.Equal(t, alp, ci.belowGroups[9])
	assert.Equal(t, bet, ci.belowGroups[10])
	assert.Equal(t, -1, ci.belowGroups[11], "ungrouped candidate stays unmapped")
	assert.Equal(t, -1, ci.belowGroups[0], "metadata columns stay unmapped")
}

func TestNewCandidateIndex_NoTicketColumns(t *testing.T) {
	headers := []string{
		"State", "Division", "Vote Collection Point Name",
		"Vote Collection Point ID", "Batch No", "Paper No",
		"UG:CARTER Dee", "UG:DOYLE Eve",
	}
	groups, err := domain.NewGroupSet(map[string][]string{
		"Ind": {"UG:CARTER Dee"},
	})
	require.NoError(t, err)

	ci, err := newCandidateIndex(headers, groups)
	require.NoError(t, err)

	// Without a second "A:" column, everything is below the line.
	assert.Equal(t, prefsFixedColumns, ci.belowStart)
	ind, _ := groups.Index("Ind")
	assert.Empty(t, ci.groupsAbove[ind])
	assert.Equal(t, []int{1}, ci.groupsBelow[ind])
}

func TestNewCandidateIndex_UnknownCandidate(t *testing.T) {
	groups, err := domain.NewGroupSet(map[string][]string{
		"Alp": {"A:ARONS Amy"}, // typo for A:AARONS Amy
	})
	require.NoError(t, err)

	_, err = newCandidateIndex(testHeader(), groups)
	require.ErrorIs(t, err, domain.ErrUnknownCandidate)
	assert.Contains(t, err.Error(), `"A:AARONS Amy"`, "diagnostic suggests the closest header")
}

func TestNewCandidateIndex_ShortHeader(t *testing.T) {
	groups, err := domain.NewGroupSet(map[string][]string{"X": {"A:Y"}})
	require.NoError(t, err)

	_, err = newCandidateIndex([]string{"State", "Division"}, groups)
	assert.ErrorIs(t, err, domain.ErrMalformedRow)
}

func TestClosestHeader(t *testing.T) {
	headers := []string{"A:Alpha Party", "B:Beta Party", "A:AARONS Amy"}
	assert.Equal(t, "A:Alpha Party", closestHeader("A:Alpha Prty", headers))
	assert.Equal(t, "A:AARONS Amy", closestHeader("A:ARONS Amy", headers))
}
