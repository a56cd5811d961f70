package phases

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ahrav/go-npp/infrastructure/telemetry"
	"github.com/ahrav/go-npp/internal/domain"
	"github.com/ahrav/go-npp/internal/testutils"
)

// distHeader has two tickets (Alp, Bet) and six below-the-line candidates,
// enough for a formal BTL ballot.
func distHeader() []string {
	return testutils.PrefsHeader(
		"A:Alpha Party", "B:Beta Party",
		"A:AARONS Amy", "A:ABLE Ben", "A:ADAMS Cy",
		"B:BAKER Cal", "B:BELL Di", "B:BOND El",
	)
}

func distGroups(t *testing.T) *domain.GroupSet {
	t.Helper()
	groups, err := domain.NewGroupSet(map[string][]string{
		"Alp": {"A:Alpha Party", "A:AARONS Amy", "A:ABLE Ben", "A:ADAMS Cy"},
		"Bet": {"B:Beta Party", "B:BAKER Cal", "B:BELL Di", "B:BOND El"},
	})
	require.NoError(t, err)
	return groups
}

func newDistPhase(t *testing.T, cfg DistributionConfig) *DistributionPhase {
	t.Helper()
	dp, err := NewDistributionPhase("test", cfg, distGroups(t),
		zap.NewNop(), telemetry.NewNopMetrics())
	require.NoError(t, err)
	return dp
}

func TestDistributionPhase_Execute(t *testing.T) {
	dir := t.TempDir()
	prefs := testutils.PrefsFile(t, dir, distHeader(),
		// Three ATL ballots preferring Alp then Bet.
		testutils.PrefsRow("QLD", "Brisbane", "Central", "1", "2", "", "", "", "", "", ""),
		testutils.PrefsRow("QLD", "Brisbane", "Central", "1", "2", "", "", "", "", "", ""),
		testutils.PrefsRow("QLD", "Brisbane", "Central", "1", "2", "", "", "", "", "", ""),
		// One blank ballot.
		testutils.PrefsRow("QLD", "Brisbane", "Central", "", "", "", "", "", "", "", ""),
		// One formal BTL ballot: Bet's candidates 1-3, Alp's 4-6.
		testutils.PrefsRow("QLD", "Brisbane", "Central", "", "", "4", "5", "6", "1", "2", "3"),
		// One absent vote, ATL for Alp only.
		testutils.PrefsRow("QLD", "Brisbane", "ABSENT 1", "1", "", "", "", "", "", "", ""),
	)
	places := testutils.PollingPlacesFile(t, dir,
		testutils.PollingPlaceRow("QLD", "Brisbane", "101", "Central", "-27.5", "153.0"),
		testutils.PollingPlaceRow("NSW", "Sydney", "201", "Town Hall", "-33.9", "151.2"),
	)
	out := filepath.Join(dir, "out", "booths.csv")

	dp := newDistPhase(t, DistributionConfig{
		Jurisdiction:      domain.QLD,
		PrefsPath:         prefs,
		PollingPlacesPath: places,
		OutputPath:        out,
	})
	require.NoError(t, dp.Execute(context.Background()))

	rows := testutils.ReadCSV(t, out)
	require.Len(t, rows, 6, "header, one booth, four special categories")

	assert.Equal(t, []string{
		"ID", "Division", "Booth", "Latitude", "Longitude",
		"None", "Alp", "Bet", "AlpBet", "BetAlp", "Total",
	}, rows[0])

	// Central: 3×AlpBet, 1×None, 1×BetAlp (the BTL ballot).
	assert.Equal(t, []string{
		"101", "Brisbane", "Central", "-27.5", "153.0",
		"1", "0", "0", "3", "1", "5",
	}, rows[1])

	// Specials follow, sorted by category, zero rows included.
	assert.Equal(t, []string{"", "Brisbane", "Absent", "", "", "0", "1", "0", "0", "0", "1"}, rows[2])
	assert.Equal(t, []string{"", "Brisbane", "Postal", "", "", "0", "0", "0", "0", "0", "0"}, rows[3])
	assert.Equal(t, []string{"", "Brisbane", "Pre-Poll", "", "", "0", "0", "0", "0", "0", "0"}, rows[4])
	assert.Equal(t, []string{"", "Brisbane", "Provisional", "", "", "0", "0", "0", "0", "0", "0"}, rows[5])
}

func TestDistributionPhase_LegacyFormatFatal(t *testing.T) {
	dir := t.TempDir()
	prefs := testutils.PrefsFile(t, dir, distHeader(),
		testutils.PrefsRow("QLD", "---", "---", "1", "2", "", "", "", "", "", ""),
	)
	places := testutils.PollingPlacesFile(t, dir,
		testutils.PollingPlaceRow("QLD", "Brisbane", "101", "Central", "-27.5", "153.0"),
	)

	dp := newDistPhase(t, DistributionConfig{
		Jurisdiction:      domain.QLD,
		PrefsPath:         prefs,
		PollingPlacesPath: places,
		OutputPath:        filepath.Join(dir, "booths.csv"),
	})
	err := dp.Execute(context.Background())
	require.ErrorIs(t, err, domain.ErrLegacyFormat)
	assert.Contains(t, err.Error(), "upgrade")
}

func TestDistributionPhase_UnknownBoothFatal(t *testing.T) {
	dir := t.TempDir()
	prefs := testutils.PrefsFile(t, dir, distHeader(),
		testutils.PrefsRow("QLD", "Brisbane", "Nowhere", "1", "", "", "", "", "", "", ""),
	)
	places := testutils.PollingPlacesFile(t, dir,
		testutils.PollingPlaceRow("QLD", "Brisbane", "101", "Central", "-27.5", "153.0"),
	)

	dp := newDistPhase(t, DistributionConfig{
		Jurisdiction:      domain.QLD,
		PrefsPath:         prefs,
		PollingPlacesPath: places,
		OutputPath:        filepath.Join(dir, "booths.csv"),
	})
	err := dp.Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnknownBooth)
}

func TestDistributionPhase_InformalBTLFallsBackToATL(t *testing.T) {
	dir := t.TempDir()
	prefs := testutils.PrefsFile(t, dir, distHeader(),
		// Repeated BTL preference 1 makes the ballot BTL-informal; its ATL
		// marks still count.
		testutils.PrefsRow("QLD", "Brisbane", "Central", "2", "1", "1", "1", "", "", "", ""),
	)
	places := testutils.PollingPlacesFile(t, dir,
		testutils.PollingPlaceRow("QLD", "Brisbane", "101", "Central", "-27.5", "153.0"),
	)
	out := filepath.Join(dir, "booths.csv")

	dp := newDistPhase(t, DistributionConfig{
		Jurisdiction:      domain.QLD,
		PrefsPath:         prefs,
		PollingPlacesPath: places,
		OutputPath:        out,
	})
	require.NoError(t, dp.Execute(context.Background()))

	rows := testutils.ReadCSV(t, out)
	// Bet first, then Alp: the "BetAlp" column.
	assert.Equal(t, "1", rows[1][9])
	assert.Equal(t, "1", rows[1][10])
}

func TestNewDistributionPhase_Validation(t *testing.T) {
	groups := distGroups(t)

	tests := []struct {
		name    string
		phase   string
		cfg     DistributionConfig
		groups  *domain.GroupSet
		wantErr error
	}{
		{
			name:  "missing prefs path",
			phase: "test",
			cfg: DistributionConfig{
				Jurisdiction:      domain.QLD,
				PollingPlacesPath: "pp.csv",
				OutputPath:        "out.csv",
			},
			groups: groups,
		},
		{
			name:  "missing jurisdiction",
			phase: "test",
			cfg: DistributionConfig{
				PrefsPath:         "p.csv",
				PollingPlacesPath: "pp.csv",
				OutputPath:        "out.csv",
			},
			groups: groups,
		},
		{
			name:    "empty name",
			phase:   "",
			cfg:     DistributionConfig{},
			groups:  groups,
			wantErr: ErrEmptyPhaseName,
		},
		{
			name:    "nil groups",
			phase:   "test",
			cfg:     DistributionConfig{},
			groups:  nil,
			wantErr: ErrNilGroupSet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDistributionPhase(tt.phase, tt.cfg, tt.groups,
				zap.NewNop(), telemetry.NewNopMetrics())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
