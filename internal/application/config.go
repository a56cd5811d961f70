// Package application wires configuration to pipeline execution: it loads
// and validates scenario files, materialises each scenario's phases, and
// runs them in order.
package application

import (
	"errors"
	"path/filepath"
)

// Default output file names, used when a scenario does not override them.
const (
	defaultBoothsFile    = "NPP_Booths.csv"
	defaultSA1PrefsFile  = "SA1_Prefs.csv"
	defaultDistrictsFile = "NPP_Dists.csv"
)

// Errors surfaced while resolving configuration to runnable work.
var (
	// ErrNoScenarios is returned when a configuration file defines nothing
	// to run.
	ErrNoScenarios = errors.New("configuration defines no scenarios")

	// ErrUnknownScenario is returned when a requested scenario name is not
	// present in the configuration.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrUnknownPhase is returned for a phase selector that is not one of
	// all, distribute, project or combine.
	ErrUnknownPhase = errors.New("unknown phase")

	// ErrMissingCorrespondence is returned when a phase needs a
	// correspondence file the scenario does not configure.
	ErrMissingCorrespondence = errors.New("scenario does not configure a correspondence file")
)

// Config is the top-level structure of a scenario file. Scalar fields left
// empty in a scenario inherit from Defaults, which mirrors how shared
// election-wide paths (polling places, correspondences) are usually written
// once and reused across scenarios.
type Config struct {
	// Defaults supplies fallback values for fields a scenario omits.
	Defaults ScenarioConfig `yaml:"defaults"`

	// Scenarios maps scenario name to its configuration. Each scenario is
	// an independent run of the pipeline: one jurisdiction, one group set,
	// one set of inputs and outputs.
	Scenarios map[string]ScenarioConfig `yaml:"scenarios" validate:"required,min=1"`
}

// ScenarioConfig is one named run of the pipeline.
type ScenarioConfig struct {
	// Year is the election year, e.g. "2022". The projection phase refuses
	// correspondence files from any other year.
	Year string `yaml:"year" validate:"required,electionyear"`

	// Jurisdiction is the state or territory abbreviation, e.g. "QLD".
	Jurisdiction string `yaml:"jurisdiction" validate:"required,jurisdiction"`

	// Groups maps each group name to the candidate IDs representing it:
	// ticket pseudo-candidates ("C:Some Party") and/or named candidates
	// ("C:SURNAME Given"). Group names are typically short codes like Alp,
	// Grn, Lnp since ordering labels are their concatenation.
	Groups map[string][]string `yaml:"groups" validate:"required,min=1"`

	// PrefsPath is the formal preferences CSV (or ZIP thereof).
	PrefsPath string `yaml:"prefs_path" validate:"required"`

	// PollingPlacesPath is the national polling-place reference CSV.
	PollingPlacesPath string `yaml:"polling_places_path" validate:"required"`

	// SA1sBreakdownPath is the booth → SA1 attendance correspondence.
	// Required only when the projection phase runs.
	SA1sBreakdownPath string `yaml:"sa1s_breakdown_path"`

	// SA1sDistrictsPath is the SA1 → district correspondence.
	// Required only when the combination phase runs.
	SA1sDistrictsPath string `yaml:"sa1s_districts_path"`

	// OutputDir is the directory the scenario's outputs are written to.
	OutputDir string `yaml:"output_dir" validate:"required"`

	// BoothsFile, SA1PrefsFile and DistrictsFile override the default
	// output file names within OutputDir.
	BoothsFile    string `yaml:"booths_file"`
	SA1PrefsFile  string `yaml:"sa1_prefs_file"`
	DistrictsFile string `yaml:"districts_file"`

	// WriteJSON also writes the district table as JSON for visualisation.
	WriteJSON bool `yaml:"write_json"`
}

// BoothsPath returns the booth-level output path.
func (sc *ScenarioConfig) BoothsPath() string {
	return filepath.Join(sc.OutputDir, sc.BoothsFile)
}

// SA1PrefsPath returns the SA1-level output path.
func (sc *ScenarioConfig) SA1PrefsPath() string {
	return filepath.Join(sc.OutputDir, sc.SA1PrefsFile)
}

// DistrictsPath returns the district-level output path.
func (sc *ScenarioConfig) DistrictsPath() string {
	return filepath.Join(sc.OutputDir, sc.DistrictsFile)
}

// applyDefaults fills a scenario's empty fields from the defaults section
// and the package defaults for output file names.
func (sc *ScenarioConfig) applyDefaults(d *ScenarioConfig) {
	if sc.Year == "" {
		sc.Year = d.Year
	}
	if sc.Jurisdiction == "" {
		sc.Jurisdiction = d.Jurisdiction
	}
	if len(sc.Groups) == 0 {
		sc.Groups = d.Groups
	}
	if sc.PrefsPath == "" {
		sc.PrefsPath = d.PrefsPath
	}
	if sc.PollingPlacesPath == "" {
		sc.PollingPlacesPath = d.PollingPlacesPath
	}
	if sc.SA1sBreakdownPath == "" {
		sc.SA1sBreakdownPath = d.SA1sBreakdownPath
	}
	if sc.SA1sDistrictsPath == "" {
		sc.SA1sDistrictsPath = d.SA1sDistrictsPath
	}
	if sc.OutputDir == "" {
		sc.OutputDir = d.OutputDir
	}
	if sc.BoothsFile == "" {
		sc.BoothsFile = firstNonEmpty(d.BoothsFile, defaultBoothsFile)
	}
	if sc.SA1PrefsFile == "" {
		sc.SA1PrefsFile = firstNonEmpty(d.SA1PrefsFile, defaultSA1PrefsFile)
	}
	if sc.DistrictsFile == "" {
		sc.DistrictsFile = firstNonEmpty(d.DistrictsFile, defaultDistrictsFile)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
