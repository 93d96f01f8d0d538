package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deeper", "out.csv")

	require.NoError(t, WriteFile(target, []byte("x"), 0600))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.True(t, FileExists(target))
	assert.True(t, DirectoryExists(filepath.Dir(target)))
	assert.False(t, FileExists(filepath.Dir(target)))
}

func TestListFiles_SortedAndShallow(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.ofx", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "d.csv"), []byte("x"), 0600))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.ofx"),
		filepath.Join(dir, "b.csv"),
		filepath.Join(dir, "c.txt"),
	}, files)

	_, err = ListFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".local/etc/x.toml"), ExpandHome("~/.local/etc/x.toml"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/path", ExpandHome("~user/path"))
}

func TestStemAndSiblingPath(t *testing.T) {
	assert.Equal(t, "march", Stem("/data/march.csv"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
	assert.Equal(t, filepath.Join("/data", "march.firefly.csv"), SiblingPath("/data/march.csv", "", ".firefly.csv"))
	assert.Equal(t, filepath.Join("/out", "march.firefly.csv"), SiblingPath("/data/march.csv", "/out", ".firefly.csv"))
}
