// Package testutils builds the miniature electoral CSV fixtures the phase
// and application tests run against. Every file matches the column layout
// of its real counterpart, just with a handful of rows.
package testutils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteCSV writes rows to path as a CSV file, creating parent directories.
func WriteCSV(t *testing.T, path string, rows [][]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

// PrefsHeader returns a preferences header with the six metadata columns
// followed by the given candidate columns.
func PrefsHeader(candidates ...string) []string {
	header := []string{
		"State", "Division", "Vote Collection Point Name",
		"Vote Collection Point ID", "Batch No", "Paper No",
	}
	return append(header, candidates...)
}

// PrefsRow returns one ballot row for the given booth with the given
// preference cells, which must align with the header's candidate columns.
func PrefsRow(state, division, booth string, prefs ...string) []string {
	row := []string{state, division, booth, "1", "1", "1"}
	return append(row, prefs...)
}

// PrefsFile writes a preferences CSV with the given header and ballot rows.
func PrefsFile(t *testing.T, dir string, header []string, ballots ...[]string) string {
	t.Helper()
	rows := append([][]string{header}, ballots...)
	return WriteCSV(t, filepath.Join(dir, "prefs.csv"), rows)
}

// PollingPlaceRow returns a 15-column polling-place record in the national
// reference layout, with latitude and longitude in the trailing columns.
func PollingPlaceRow(state, division, boothID, boothName, lat, lon string) []string {
	return []string{
		state, "100", division, boothID, "1", boothName,
		"", "", "", "", "", "", "", lat, lon,
	}
}

// PollingPlacesFile writes a polling-place reference CSV, including the two
// non-data lines the real file carries before its rows.
func PollingPlacesFile(t *testing.T, dir string, rows ...[]string) string {
	t.Helper()
	all := [][]string{
		{"Federal Election Polling Places"},
		{"State", "DivisionID", "DivisionNm", "PollingPlaceID", "PollingPlaceTypeID",
			"PollingPlaceNm", "PremisesNm", "PremisesAddress1", "PremisesAddress2",
			"PremisesAddress3", "PremisesSuburb", "PremisesStateAb", "PremisesPostCode",
			"Latitude", "Longitude"},
	}
	all = append(all, rows...)
	return WriteCSV(t, filepath.Join(dir, "polling_places.csv"), all)
}

// SA1BreakdownHeader is the header of the booth → SA1 correspondence file.
func SA1BreakdownHeader() []string {
	return []string{
		"year", "state_ab", "div_nm", "SA1_id", "pp_id", "pp_nm", "votes",
	}
}

// SA1BreakdownFile writes a booth → SA1 correspondence CSV.
func SA1BreakdownFile(t *testing.T, dir string, rows ...[]string) string {
	t.Helper()
	all := append([][]string{SA1BreakdownHeader()}, rows...)
	return WriteCSV(t, filepath.Join(dir, "sa1_breakdown.csv"), all)
}

// SA1DistrictsFile writes an SA1 → district correspondence CSV.
// Each row is (SA1 ID, district name, population).
func SA1DistrictsFile(t *testing.T, dir string, rows ...[]string) string {
	t.Helper()
	all := append([][]string{{"SA1_Id", "Dist_Name", "Pop", "Pop_Share"}}, rows...)
	return WriteCSV(t, filepath.Join(dir, "sa1_districts.csv"), all)
}

// ReadCSV reads an entire CSV file back for assertions.
func ReadCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
