// Package phases implements the three stages of the n-party-preferred
// pipeline: distribution of ballots to booth tallies, projection of booth
// tallies onto SA1s, and combination of SA1s into analysis districts.
// Each phase implements ports.Phase, validates its configuration at
// construction, and makes one linear pass over its primary input.
package phases

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Number of leading metadata columns in a 2019+ preferences file:
// State, Division, Vote Collection Point Name, Vote Collection Point ID,
// Batch No, Paper No.
const prefsFixedColumns = 6

// prefsFieldNames are the expected names of those columns, for diagnostics.
var prefsFieldNames = [prefsFixedColumns]string{
	"State",
	"Division",
	"Vote Collection Point Name",
	"Vote Collection Point ID",
	"Batch No",
	"Paper No",
}

// nppFieldNames are the fixed leading columns of the booth-level output.
var nppFieldNames = [5]string{"ID", "Division", "Booth", "Latitude", "Longitude"}

// Errors common to the phases.
var (
	// ErrEmptyPhaseName is returned when a phase is constructed without a name.
	ErrEmptyPhaseName = errors.New("phase name cannot be empty")

	// ErrNilGroupSet is returned when a phase is constructed without groups.
	ErrNilGroupSet = errors.New("group set cannot be nil")

	// ErrInternerFull is returned if the distribution phase encounters more
	// distinct division/booth names than fit in a 16-bit symbol space.
	ErrInternerFull = errors.New("interner symbol space exhausted")
)

// Package-level validator instance for phase configuration validation.
var validate = validator.New()
