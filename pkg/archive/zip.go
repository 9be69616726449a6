package archive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/mwantia/gocatalog/pkg/textenc"
)

// ZipDecoder reads ZIP archives. Entry names without the UTF-8 flag are
// decoded through textenc, which covers the Shift-JIS names produced by
// Japanese tooling.
type ZipDecoder struct{}

var _ Decoder = (*ZipDecoder)(nil)

func NewZipDecoder() *ZipDecoder {
	return &ZipDecoder{}
}

func (d *ZipDecoder) Decode(ctx context.Context, path string) (*Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, path, err)
	}

	archive := &Archive{
		Path:    path,
		Entries: make([]Entry, 0, len(reader.File)),
		closer:  reader,
	}

	for _, file := range reader.File {
		name, encoding := textenc.DecodeName([]byte(file.Name))
		name = strings.ReplaceAll(name, `\`, "/")
		isDir := strings.HasSuffix(name, "/") || file.FileInfo().IsDir()

		archive.Entries = append(archive.Entries, Entry{
			Path:     strings.TrimSuffix(name, "/"),
			RawName:  file.Name,
			Encoding: encoding,
			Size:     int64(file.UncompressedSize64),
			Modified: file.Modified,
			IsDir:    isDir,
			open:     openZipFile(file),
		})
	}

	return archive, nil
}

func openZipFile(file *zip.File) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return file.Open()
	}
}
