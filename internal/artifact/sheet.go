package artifact

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Sheet is a CSV file held as its header plus raw records, for stages that
// rewrite a few cells and must pass every other column through untouched.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// ReadSheet reads the CSV at path. Short rows are padded to the header width.
func ReadSheet(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	s := &Sheet{}
	header, err := r.Read()
	if err == io.EOF {
		return s, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read header %s", path)
	}
	s.Header = header

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "artifact: read %s", path)
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		s.Rows = append(s.Rows, rec)
	}
	return s, nil
}

// Col returns the index of column name, or -1.
func (s *Sheet) Col(name string) int {
	for i, h := range s.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// EnsureCol returns the index of column name, appending an empty column
// when the sheet does not have one yet.
func (s *Sheet) EnsureCol(name string) int {
	if i := s.Col(name); i >= 0 {
		return i
	}
	s.Header = append(s.Header, name)
	for i := range s.Rows {
		s.Rows[i] = append(s.Rows[i], "")
	}
	return len(s.Header) - 1
}

// Get returns the cell of row at col, or "" when col is -1.
func (s *Sheet) Get(row, col int) string {
	if col < 0 || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}

// WriteSheet writes s to path, header first, in its column order.
func WriteSheet(path string, s *Sheet) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if len(s.Header) > 0 {
		if err := w.Write(s.Header); err != nil {
			return eris.Wrapf(err, "artifact: encode %s", path)
		}
	}
	if err := w.WriteAll(s.Rows); err != nil {
		return eris.Wrapf(err, "artifact: encode %s", path)
	}
	return WriteFileAtomic(path, buf.Bytes())
}
