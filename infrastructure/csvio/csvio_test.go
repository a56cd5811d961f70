package csvio

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "State,Division,Booth\r\nQLD,Ryan,Kenmore\r\n"

func writeZip(t *testing.T, path, entryName, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create(entryName)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestOpen_PlainCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	rc, err := Open(path)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestOpen_ZippedCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.csv")
	writeZip(t, path, "prefs.csv", sample)

	rc, err := Open(path)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestOpen_FallsBackToSiblingZip(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "prefs.zip"), "prefs.csv", sample)

	rc, err := Open(filepath.Join(dir, "prefs.csv"))
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, sample, string(got))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestNewCRLFWriter(t *testing.T) {
	var sb strings.Builder
	w := NewCRLFWriter(&sb)
	require.NoError(t, w.Write([]string{"a", "b"}))
	w.Flush()
	require.NoError(t, w.Error())
	assert.Equal(t, "a,b\r\n", sb.String())
}

func TestCreateOutput_MakesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.csv")
	f, err := CreateOutput(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
