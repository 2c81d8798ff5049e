package artifact

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
)

// ReadJSON decodes the JSON array at path.
func ReadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}
	var out []T
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrapf(err, "artifact: decode %s", path)
	}
	return out, nil
}

// ReadJSONIfExists is ReadJSON that treats a missing file as empty.
func ReadJSONIfExists[T any](path string) ([]T, error) {
	if !Exists(path) {
		return nil, nil
	}
	return ReadJSON[T](path)
}

// WriteJSON writes v as two-space indented JSON. Non-ASCII text and HTML
// characters are written as-is.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "artifact: encode %s", path)
	}
	return WriteFileAtomic(path, buf.Bytes())
}
