// Package artifact reads and writes the files passed between pipeline stages.
// Writes go to a temp file in the destination directory and are renamed into
// place, so a stage interrupted mid-write never leaves a truncated file.
package artifact

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFileAtomic writes data to path via a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "artifact: create temp for %s", path)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: rename %s", path)
	}
	return nil
}

// SidecarPath returns the path of a file stored next to path, named after it:
// SidecarPath("out/leads.json", "failures") is "out/leads_failures.json".
func SidecarPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_" + suffix + ".json"
}
