package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fromrorb", "nested")
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent on an existing directory.
	assert.NoError(t, EnsureDir(dir))
}

func TestTempFileName_UniquePerCall(t *testing.T) {
	first := TempFileName("/tmp/fromrorb", "reservoir_410571", ".xml")
	second := TempFileName("/tmp/fromrorb", "reservoir_410571", ".xml")

	assert.NotEqual(t, first, second)
	assert.Equal(t, "/tmp/fromrorb", filepath.Dir(first))
	base := filepath.Base(first)
	assert.True(t, strings.HasPrefix(base, "reservoir_410571_"))
	assert.True(t, strings.HasSuffix(base, ".xml"))
}

func TestRemoveFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.xml", "b.xml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		paths = append(paths, path)
	}

	require.NoError(t, RemoveFiles(paths))
	for _, path := range paths {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestRemoveFiles_MissingFileFails(t *testing.T) {
	err := RemoveFiles([]string{filepath.Join(t.TempDir(), "absent.xml")})
	assert.ErrorContains(t, err, "failed to remove")
}

func TestWriteRunBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "RUN_RORB.bat")
	require.NoError(t, WriteRunBatch(path, `d:\fews\work`, "RORB_612.exe", `d:\fews\work\Tumut.par`))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "@echo off\r\n" +
		"set model_folder=d:\\fews\\work\r\n" +
		"cd /d %model_folder%\r\n" +
		"RORB_612.exe d:\\fews\\work\\Tumut.par\r\n"
	assert.Equal(t, want, string(data))
}
