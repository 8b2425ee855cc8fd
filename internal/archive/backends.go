package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
)

var errEntryNotFound = errors.New("entry not found")

// Archives are reopened for every read so that pages can be read
// concurrently without sharing a reader.

type zipBackend struct{ path string }

func (b zipBackend) list() ([]Entry, error) {
	r, err := zip.OpenReader(b.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []Entry
	for i, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Index: i, Size: int64(f.UncompressedSize64)})
	}
	return entries, nil
}

func (b zipBackend) read(e Entry) ([]byte, error) {
	r, err := zip.OpenReader(b.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if e.Index >= 0 && e.Index < len(r.File) && r.File[e.Index].Name == e.Name {
		return readZipFile(r.File[e.Index])
	}
	for _, f := range r.File {
		if f.Name == e.Name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("%s in %s: %w", e.Name, b.path, errEntryNotFound)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readAll(rc, f.Name)
}

type rarBackend struct{ path string }

// scan walks the rar headers, calling fn for each file. fn returns true to
// stop.
func (b rarBackend) scan(fn func(h *rardecode.FileHeader, r io.Reader, index int) (bool, error)) error {
	f, err := os.Open(b.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return err
	}
	for i := 0; ; i++ {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if header.IsDir {
			continue
		}
		stop, err := fn(header, r, i)
		if err != nil || stop {
			return err
		}
	}
}

func (b rarBackend) list() ([]Entry, error) {
	var entries []Entry
	err := b.scan(func(h *rardecode.FileHeader, _ io.Reader, i int) (bool, error) {
		entries = append(entries, Entry{Name: h.Name, Index: i, Size: h.UnPackedSize})
		return false, nil
	})
	return entries, err
}

func (b rarBackend) read(e Entry) ([]byte, error) {
	var data []byte
	err := b.scan(func(h *rardecode.FileHeader, r io.Reader, _ int) (bool, error) {
		if h.Name != e.Name {
			return false, nil
		}
		var err error
		data, err = readAll(r, h.Name)
		return true, err
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s in %s: %w", e.Name, b.path, errEntryNotFound)
	}
	return data, nil
}

type sevenZipBackend struct{ path string }

func (b sevenZipBackend) list() ([]Entry, error) {
	r, err := sevenzip.OpenReader(b.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []Entry
	for i, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Index: i, Size: int64(f.UncompressedSize)})
	}
	return entries, nil
}

func (b sevenZipBackend) read(e Entry) ([]byte, error) {
	r, err := sevenzip.OpenReader(b.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != e.Name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return readAll(rc, f.Name)
	}
	return nil, fmt.Errorf("%s in %s: %w", e.Name, b.path, errEntryNotFound)
}

// dirBackend reads the images of a directory tree. Entry names are slash
// separated paths relative to root.
type dirBackend struct{ root string }

func (b dirBackend) list() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(b.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Name: filepath.ToSlash(rel), Index: len(entries), Size: info.Size()})
		return nil
	})
	return entries, err
}

func (b dirBackend) read(e Entry) ([]byte, error) {
	f, err := os.Open(filepath.Join(b.root, filepath.FromSlash(e.Name)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAll(f, e.Name)
}
