// Package csvio provides the file-opening and CSV plumbing shared by the
// pipeline phases: transparent reading of plain or ZIP-compressed CSV
// inputs, and the writer settings the output formats require.
package csvio

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// zipSignature is the local-file-header magic number of a ZIP archive.
var zipSignature = [4]byte{0x50, 0x4b, 0x03, 0x04}

// Open opens a CSV input that may be ZIP-compressed. The file's leading
// bytes decide, not its extension: a ZIP archive is unpacked and its first
// entry returned. When the named .csv does not exist but a sibling .zip
// does, the sibling is opened instead.
//
// A ZIP entry is decompressed fully into memory; ballot archives are
// hundreds of megabytes, which is acceptable for a batch run.
func Open(path string) (io.ReadCloser, error) {
	if _, err := os.Stat(path); err != nil {
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".zip"
			if _, serr := os.Stat(sibling); serr == nil {
				path = sibling
			} else {
				return nil, fmt.Errorf("could not find %s whether compressed or not: %w", path, err)
			}
		} else {
			return nil, fmt.Errorf("could not open %s: %w", path, err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}

	var magic [4]byte
	n, err := io.ReadFull(f, magic[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("could not sniff %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not rewind %s: %w", path, err)
	}

	if n < len(magic) || magic != zipSignature {
		return f, nil
	}
	return openZipEntry(f, path)
}

// openZipEntry reads the first entry of the archive into memory and closes
// the underlying file.
func openZipEntry(f *os.File, path string) (io.ReadCloser, error) {
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("error establishing the ZIP %s: %w", path, err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("no file in ZIP %s", path)
	}

	entry, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("error opening ZIP entry in %s: %w", path, err)
	}
	defer entry.Close()

	buf := make([]byte, 0, zr.File[0].UncompressedSize64)
	w := bytes.NewBuffer(buf)
	if _, err := io.Copy(w, entry); err != nil {
		return nil, fmt.Errorf("error reading ZIP entry in %s: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(w.Bytes())), nil
}

// NewReader returns a csv.Reader configured for the pipeline's inputs:
// variable-length records are accepted (the AEC's files are ragged in
// places) and records are reused between reads to keep the ballot hot
// loop allocation-free.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// NewCRLFWriter returns a csv.Writer that terminates records with CRLF,
// matching the booth-level output format of earlier toolchains so output
// files diff cleanly against published artifacts.
func NewCRLFWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

// CreateOutput creates (or truncates) an output file, making parent
// directories as needed.
func CreateOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create output file %s: %w", path, err)
	}
	return f, nil
}
