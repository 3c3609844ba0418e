package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-invoice.pdf", []byte("pdf bytes"))
	writeFile(t, dir, "a-invoice.PNG", []byte("png bytes"))
	writeFile(t, dir, "notes.txt", []byte("not an invoice"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	docs, err := LoadDirectory(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// os.ReadDir returns entries name-sorted.
	assert.Equal(t, "a-invoice.PNG", docs[0].Filename)
	assert.Equal(t, "image/png", docs[0].MediaType)
	assert.Equal(t, "b-invoice.pdf", docs[1].Filename)
	assert.Equal(t, "application/pdf", docs[1].MediaType)
	assert.Equal(t, []byte("png bytes"), docs[0].Bytes)
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.csv", []byte("a,b"))

	_, ok, err := LoadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
