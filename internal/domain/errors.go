package domain

import "errors"

// Errors shared across the pipeline phases. Input-format, configuration and
// data-integrity failures are fatal: a phase either completes and emits a
// full output file or aborts before emitting one.
var (
	// ErrInvalidJurisdiction indicates a jurisdiction abbreviation that is
	// not one of the eight states and territories.
	ErrInvalidJurisdiction = errors.New("unknown jurisdiction")

	// ErrEmptyGroupSet indicates a scenario configured with no groups.
	ErrEmptyGroupSet = errors.New("no groups configured")

	// ErrEmptyGroup indicates a configured group with no candidates.
	ErrEmptyGroup = errors.New("group has no candidates")

	// ErrLegacyFormat indicates a preference file in the pre-2019 layout,
	// which this pipeline does not parse. The wrapped diagnostic carries
	// the remediation hint.
	ErrLegacyFormat = errors.New("preferences file is in the 2016 format")

	// ErrUnknownCandidate indicates a configured candidate ID that does not
	// appear in the ballot file's header row. Raised at setup, before any
	// ballot row is processed.
	ErrUnknownCandidate = errors.New("candidate not found in preferences header")

	// ErrUnknownBooth indicates a booth that was tallied from the ballot
	// file but is absent from the polling-place reference: the two input
	// files are inconsistent.
	ErrUnknownBooth = errors.New("booth missing from polling place reference")

	// ErrYearMismatch indicates a correspondence row whose election year
	// differs from the scenario's. Unlike a wrong-jurisdiction row this is
	// fatal: it means the wrong input file was supplied.
	ErrYearMismatch = errors.New("correspondence file year does not match scenario")

	// ErrMalformedRow indicates a row missing columns the pipeline needs.
	ErrMalformedRow = errors.New("malformed input row")
)
