package archive

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/mwantia/gocatalog/pkg/textenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

type zipEntry struct {
	name    string
	content string
	nonUTF8 bool
}

func writeZip(t *testing.T, entries []zipEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "product.zip")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := zip.NewWriter(file)
	for _, entry := range entries {
		w, err := writer.CreateHeader(&zip.FileHeader{
			Name:    entry.name,
			Method:  zip.Deflate,
			NonUTF8: entry.nonUTF8,
		})
		require.NoError(t, err)
		_, err = io.WriteString(w, entry.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return path
}

func readEntry(t *testing.T, entry Entry) string {
	t.Helper()

	reader, err := entry.Open()
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(content)
}

func TestZipDecoder_Decode(t *testing.T) {
	sjisName, err := japanese.ShiftJIS.NewEncoder().String("テクスチャ/髪.png")
	require.NoError(t, err)

	path := writeZip(t, []zipEntry{
		{name: "readme.txt", content: "hello"},
		{name: "models/", content: ""},
		{name: "models/body.fbx", content: "fbx-data"},
		{name: sjisName, content: "png-data", nonUTF8: true},
	})

	archive, err := NewZipDecoder().Decode(context.Background(), path)
	require.NoError(t, err)
	defer archive.Close()

	require.Len(t, archive.Entries, 4)
	assert.True(t, archive.Entries[1].IsDir)
	assert.Equal(t, "models", archive.Entries[1].Path)

	files := archive.Files()
	require.Len(t, files, 3)

	assert.Equal(t, "readme.txt", files[0].Path)
	assert.Equal(t, textenc.EncodingUTF8, files[0].Encoding)
	assert.Equal(t, "hello", readEntry(t, files[0]))
	assert.EqualValues(t, 5, files[0].Size)

	assert.Equal(t, "models/body.fbx", files[1].Path)
	assert.Equal(t, "fbx-data", readEntry(t, files[1]))

	assert.Equal(t, "テクスチャ/髪.png", files[2].Path)
	assert.Equal(t, textenc.EncodingShiftJIS, files[2].Encoding)
	assert.Equal(t, sjisName, files[2].RawName)
	assert.Equal(t, "png-data", readEntry(t, files[2]))
}

func TestZipDecoder_RejectsNonZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := NewZipDecoder().Decode(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestZipDecoder_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewZipDecoder().Decode(ctx, "irrelevant.zip")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryEntries(t *testing.T) {
	archive := NewArchive("memory.zip", NewDirEntry("docs"), NewEntry("docs/a.txt", []byte("a")))
	defer archive.Close()

	files := archive.Files()
	require.Len(t, files, 1)
	assert.Equal(t, "a", readEntry(t, files[0]))

	_, err := archive.Entries[0].Open()
	assert.Error(t, err)
}
