// Package archive opens comic documents (zip, rar and 7z archives, PDF files
// and image directories) and exposes their pages as lazily read entries.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"comet/internal/pages"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither an
	// archive, a PDF, an image nor a directory.
	ErrUnsupportedFormat = errors.New("archive: unsupported format")

	// ErrNoImages is returned when a document contains no readable pages.
	ErrNoImages = errors.New("archive: no images found")

	// ErrEntryTooLarge is returned when an entry exceeds MaxEntrySize.
	ErrEntryTooLarge = errors.New("archive: entry too large")
)

// MaxEntrySize is the largest entry that will be read into memory.
const MaxEntrySize = 256 << 20

// Entry is one page of a document.
type Entry struct {
	// Name is the path inside the archive, or the page label for PDFs.
	Name string
	// Index is the position of the entry in the archive.
	Index int
	Size  int64
}

type backend interface {
	list() ([]Entry, error)
	read(e Entry) ([]byte, error)
}

// Document is an opened comic.
type Document struct {
	Path    string
	Name    string
	Key     string
	Entries []Entry

	backend backend
	byName  map[string]Entry
}

// Open lists the pages of the document at path and sorts them with method.
// A path to a single image opens the directory that contains it.
func Open(p string, method SortMethod) (*Document, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}

	var b backend
	switch {
	case info.IsDir():
		b = dirBackend{root: p}
	default:
		switch KindOf(p) {
		case KindZip:
			b = zipBackend{path: p}
		case KindRar:
			b = rarBackend{path: p}
		case KindSevenZip:
			b = sevenZipBackend{path: p}
		case KindPDF:
			b = &pdfBackend{path: p}
		case KindImage:
			return Open(filepath.Dir(p), method)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(p))
		}
	}

	all, err := b.list()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	entries := all
	if _, isPDF := b.(*pdfBackend); !isPDF {
		entries = entries[:0:0]
		for _, e := range all {
			if isPageEntry(e.Name) {
				entries = append(entries, e)
			}
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("open %s: %w", p, ErrNoImages)
	}

	doc := &Document{
		Path:    p,
		Name:    filepath.Base(p),
		Key:     FileKey(filepath.Base(p), info.Size()),
		Entries: GetSortStrategy(method).Sort(entries),
		backend: b,
		byName:  make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		doc.byName[e.Name] = e
	}
	return doc, nil
}

// FileKey is the identity of a document in the progress and bookmark stores.
func FileKey(name string, size int64) string {
	return fmt.Sprintf("%s:%d", name, size)
}

// Read returns the raw bytes of e.
func (d *Document) Read(ctx context.Context, e Entry) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Size > MaxEntrySize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrEntryTooLarge, e.Name, e.Size)
	}
	return d.backend.read(e)
}

// Pages returns one lazily decoded page per entry, in document order.
func (d *Document) Pages() []*pages.Page {
	out := make([]*pages.Page, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = pages.NewPage(e.Name, func(ctx context.Context) ([]byte, error) {
			return d.Read(ctx, e)
		})
	}
	return out
}

// PageDocument returns d in the form the display opens.
func (d *Document) PageDocument() pages.Document {
	return pages.Document{Key: d.Key, Name: d.Name, Pages: d.Pages()}
}

// Compare returns a page comparison for s. Pages that are not entries of d,
// such as split halves, compare equal to everything and keep their place.
func (d *Document) Compare(s SortStrategy) func(a, b *pages.Page) int {
	return func(a, b *pages.Page) int {
		ea, okA := d.byName[a.Name()]
		eb, okB := d.byName[b.Name()]
		if !okA || !okB {
			return 0
		}
		return s.Compare(ea, eb)
	}
}

// Kind classifies a file by extension.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindRar
	KindSevenZip
	KindPDF
	KindImage
)

// KindOf returns the document kind of the file at p.
func KindOf(p string) Kind {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".zip", ".cbz":
		return KindZip
	case ".rar", ".cbr":
		return KindRar
	case ".7z", ".cb7":
		return KindSevenZip
	case ".pdf":
		return KindPDF
	}
	if IsImage(p) {
		return KindImage
	}
	return KindUnknown
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif":
		return true
	default:
		return false
	}
}

// isPageEntry filters out directories, resource forks and hidden files.
func isPageEntry(name string) bool {
	name = filepath.ToSlash(name)
	if strings.HasSuffix(name, "/") || !IsImage(name) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == "__MACOSX" || strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

// readAll reads r up to MaxEntrySize.
func readAll(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > MaxEntrySize {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooLarge, name)
	}
	return data, nil
}
