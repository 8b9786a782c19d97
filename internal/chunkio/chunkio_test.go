package chunkio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadChunksSplitsAndPreservesTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.bin")
	data := make([]byte, 2500)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	chunks, err := ReadChunks(path, 1024)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 1024)
	require.Len(t, chunks[1], 1024)
	require.Len(t, chunks[2], 452)
}

func TestReadChunksEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	chunks, err := ReadChunks(path, 1024)
	require.NoError(t, err)
	require.NotNil(t, chunks)
	require.Len(t, chunks, 0)
}

func TestAppendChunksCreatesDirAndWritesInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	chunks := [][]byte{[]byte("abc"), []byte("def")}

	path, err := AppendChunks(dir, "result.bin", chunks)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(got))
}

func TestAppendChunksStripsDirectoryFromFilename(t *testing.T) {
	dir := t.TempDir()
	path, err := AppendChunks(dir, "../../etc/passwd", [][]byte{[]byte("x")})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "passwd"), path)
}
