package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheet_RoundTripKeepsColumns(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(in, []byte("link,company,posted\nl1,\"Acme, Inc\",today\nl2,Orbit\n"), 0o644))

	s, err := ReadSheet(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"link", "company", "posted"}, s.Header)
	assert.Equal(t, []string{"l2", "Orbit", ""}, s.Rows[1])

	assert.Equal(t, 1, s.Col("company"))
	assert.Equal(t, -1, s.Col("website"))
	assert.Equal(t, "", s.Get(0, -1))

	site := s.EnsureCol("website")
	assert.Equal(t, 3, site)
	assert.Equal(t, site, s.EnsureCol("website"))
	s.Rows[0][site] = "https://acme.com"

	require.NoError(t, WriteSheet(out, s))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "link,company,posted,website\nl1,\"Acme, Inc\",today,https://acme.com\nl2,Orbit,,\n", string(data))
}

func TestReadSheet_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := ReadSheet(path)
	require.NoError(t, err)
	assert.Empty(t, s.Header)
	assert.Empty(t, s.Rows)
	assert.Equal(t, -1, s.Col("company"))
}

func TestReadSheet_Missing(t *testing.T) {
	_, err := ReadSheet(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact: open")
}
