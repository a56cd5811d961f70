package application

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-npp/internal/domain"
)

const validConfigYAML = `
defaults:
  year: "2022"
  jurisdiction: QLD
  polling_places_path: /data/polling_places.csv

scenarios:
  QLD_2PP:
    groups:
      Alp: ["A:Alpha Party"]
      Bet: ["B:Beta Party"]
    prefs_path: /data/qld_prefs.zip
    sa1s_breakdown_path: /data/sa1_breakdown.csv
    output_dir: /out/qld_2pp
  QLD_3PP:
    groups:
      Alp: ["A:Alpha Party"]
      Bet: ["B:Beta Party"]
      Gam: ["C:Gamma Party"]
    prefs_path: /data/qld_prefs.zip
    output_dir: /out/qld_3pp
    booths_file: Booths.csv
`

func mustLoader(t *testing.T) *ScenarioLoader {
	t.Helper()
	sl, err := NewScenarioLoader()
	require.NoError(t, err)
	return sl
}

func TestScenarioLoader_DefaultsPropagate(t *testing.T) {
	cfg, err := mustLoader(t).LoadFromReader(strings.NewReader(validConfigYAML))
	require.NoError(t, err)
	require.Len(t, cfg.Scenarios, 2)

	sc := cfg.Scenarios["QLD_2PP"]
	assert.Equal(t, "2022", sc.Year)
	assert.Equal(t, "QLD", sc.Jurisdiction)
	assert.Equal(t, "/data/polling_places.csv", sc.PollingPlacesPath)
	assert.Equal(t, "/out/qld_2pp/NPP_Booths.csv", sc.BoothsPath())
	assert.Equal(t, "/out/qld_2pp/SA1_Prefs.csv", sc.SA1PrefsPath())

	// Explicit file names beat the defaults.
	sc3 := cfg.Scenarios["QLD_3PP"]
	assert.Equal(t, "/out/qld_3pp/Booths.csv", sc3.BoothsPath())
}

func TestScenarioLoader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad jurisdiction",
			yaml: `
scenarios:
  s:
    year: "2022"
    jurisdiction: XYZ
    groups: {Alp: ["A:X"]}
    prefs_path: p
    polling_places_path: pp
    output_dir: o
`,
			want: "jurisdiction",
		},
		{
			name: "bad year",
			yaml: `
scenarios:
  s:
    year: "1901"
    jurisdiction: QLD
    groups: {Alp: ["A:X"]}
    prefs_path: p
    polling_places_path: pp
    output_dir: o
`,
			want: "electionyear",
		},
		{
			name: "missing prefs path",
			yaml: `
scenarios:
  s:
    year: "2022"
    jurisdiction: QLD
    groups: {Alp: ["A:X"]}
    polling_places_path: pp
    output_dir: o
`,
			want: "PrefsPath",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mustLoader(t).LoadFromReader(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarioLoader_EmptyGroupRejected(t *testing.T) {
	yaml := `
scenarios:
  s:
    year: "2022"
    jurisdiction: QLD
    groups: {Alp: []}
    prefs_path: p
    polling_places_path: pp
    output_dir: o
`
	_, err := mustLoader(t).LoadFromReader(strings.NewReader(yaml))
	assert.ErrorIs(t, err, domain.ErrEmptyGroup)
}

func TestScenarioLoader_NoScenarios(t *testing.T) {
	_, err := mustLoader(t).LoadFromReader(strings.NewReader("defaults: {}\n"))
	assert.ErrorIs(t, err, ErrNoScenarios)
}

func TestParsePhaseSelection(t *testing.T) {
	for _, s := range []string{"all", "distribute", "project", "combine"} {
		sel, err := ParsePhaseSelection(s)
		require.NoError(t, err)
		assert.Equal(t, PhaseSelection(s), sel)
	}

	_, err := ParsePhaseSelection("upgrade")
	assert.ErrorIs(t, err, ErrUnknownPhase)
}
