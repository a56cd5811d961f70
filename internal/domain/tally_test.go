package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecialCategoryFor(t *testing.T) {
	assert.Equal(t, Absent, SpecialCategoryFor("ABSENT"))
	assert.Equal(t, Postal, SpecialCategoryFor("POSTAL"))
	assert.Equal(t, PrePoll, SpecialCategoryFor("PRE_POLL"))
	assert.Equal(t, Provisional, SpecialCategoryFor("PROVISIONAL"))
	assert.Equal(t, OtherVote, SpecialCategoryFor("SOMETHING_ELSE"))
}

func TestTicketConversions(t *testing.T) {
	assert.Equal(t, "AE", NumberToTicket(31))
	assert.Equal(t, 31, TicketToNumber("AE"))
	assert.Equal(t, 31, TicketToNumber("ae"))
	assert.Equal(t, "", NumberToTicket(0))
	assert.Equal(t, 0, TicketToNumber(""))

	// Round trip across the single and double letter boundary.
	for n := 1; n <= 800; n++ {
		assert.Equal(t, n, TicketToNumber(NumberToTicket(n)), "n=%d", n)
	}
}
