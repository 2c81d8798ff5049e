package artifact

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// ReadCSV decodes the CSV file at path into T using its `csv` struct tags.
// Returns the header so callers can check for required columns.
func ReadCSV[T any](path string) ([]T, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "artifact: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		if err == io.EOF {
			return nil, nil, nil
		}
		return nil, nil, eris.Wrapf(err, "artifact: read header %s", path)
	}
	header := dec.Header()

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, header, eris.Wrapf(err, "artifact: decode %s", path)
		}
		out = append(out, v)
	}
	return out, header, nil
}

// RequireColumns returns an error naming the first column missing from header.
// Matching is exact, the pipeline's column names are lowercase.
func RequireColumns(header []string, cols ...string) error {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	for _, c := range cols {
		if !have[c] {
			return eris.Errorf("artifact: csv must have a %q column", c)
		}
	}
	return nil
}

// WriteCSV encodes rows with a header derived from T's `csv` tags.
func WriteCSV[T any](path string, rows []T) error {
	data, err := MarshalCSV(rows)
	if err != nil {
		return eris.Wrapf(err, "artifact: encode %s", path)
	}
	return WriteFileAtomic(path, data)
}

// MarshalCSV encodes rows as CSV, header first. An empty slice still
// produces the header.
func MarshalCSV[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(w)

	if len(rows) == 0 {
		var zero T
		if err := enc.EncodeHeader(zero); err != nil {
			return nil, err
		}
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Table converts rows into a header plus string cells, the shape
// spreadsheet writers want.
func Table[T any](rows []T) ([]string, [][]string, error) {
	data, err := MarshalCSV(rows)
	if err != nil {
		return nil, nil, err
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}
