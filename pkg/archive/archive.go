package archive

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_decoder.go -package=mocks github.com/mwantia/gocatalog/pkg/archive Decoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/mwantia/gocatalog/pkg/textenc"
)

// ErrUnsupportedFormat is returned when a decoder cannot read the archive
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// Decoder opens an archive file and lists its entries
type Decoder interface {
	Decode(ctx context.Context, path string) (*Archive, error)
}

// Entry is a single item inside an archive
type Entry struct {
	// Path is the decoded, slash separated entry path
	Path string
	// RawName holds the entry name exactly as stored in the archive
	RawName  string
	Encoding string
	Size     int64
	Modified time.Time
	IsDir    bool

	open func() (io.ReadCloser, error)
}

// Open returns a reader over the entry content
func (e Entry) Open() (io.ReadCloser, error) {
	if e.IsDir {
		return nil, errors.New("archive: cannot open a directory entry")
	}
	if e.open == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return e.open()
}

// NewEntry builds an in-memory entry, mainly for decoders of other formats and tests
func NewEntry(path string, content []byte) Entry {
	data := append([]byte(nil), content...)
	return Entry{
		Path:     path,
		RawName:  path,
		Encoding: textenc.EncodingUTF8,
		Size:     int64(len(data)),
		Modified: time.Now(),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// NewDirEntry builds a directory entry
func NewDirEntry(path string) Entry {
	return Entry{
		Path:     path,
		RawName:  path,
		Encoding: textenc.EncodingUTF8,
		IsDir:    true,
	}
}

// Archive is a decoded archive. It must be closed once all entries were read.
type Archive struct {
	Path    string
	Entries []Entry

	closer io.Closer
}

func NewArchive(path string, entries ...Entry) *Archive {
	return &Archive{
		Path:    path,
		Entries: entries,
	}
}

// Files returns the entries that are not directories
func (a *Archive) Files() []Entry {
	files := make([]Entry, 0, len(a.Entries))
	for _, entry := range a.Entries {
		if !entry.IsDir {
			files = append(files, entry)
		}
	}
	return files
}

func (a *Archive) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
