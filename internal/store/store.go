// Package store persists reading progress and bookmarks as JSON files.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"comet/internal/pages"
)

const (
	progressFile  = "progress.json"
	bookmarksFile = "bookmarks.json"

	// MaxHistory caps the number of entries returned by Recent.
	MaxHistory = 10
)

// ProgressEntry is the saved position in one document.
type ProgressEntry struct {
	FileName   string    `json:"fileName"`
	LastPage   int       `json:"lastPage"`
	TotalPages int       `json:"totalPages"`
	LastRead   time.Time `json:"lastRead"`
}

// RecentEntry is a ProgressEntry with its file key.
type RecentEntry struct {
	Key string
	ProgressEntry
}

// Store keeps progress and bookmarks in memory and mirrors them to dir.
// Persistence failures are returned but never lose the in-memory state.
type Store struct {
	dir string
	log *slog.Logger
	now func() time.Time

	mu        sync.Mutex
	progress  map[string]ProgressEntry
	bookmarks map[string][]int
}

var (
	_ pages.ProgressStore = (*Store)(nil)
	_ pages.BookmarkStore = (*Store)(nil)
)

// DefaultDir returns the per-user directory for comet state.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "comet"), nil
}

// Open loads the store from dir, creating the directory if needed.
// Unreadable or malformed files are logged and start empty.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Store{
		dir:       dir,
		log:       logger,
		now:       time.Now,
		progress:  map[string]ProgressEntry{},
		bookmarks: map[string][]int{},
	}
	s.load(progressFile, &s.progress)
	s.load(bookmarksFile, &s.bookmarks)
	if s.progress == nil {
		s.progress = map[string]ProgressEntry{}
	}
	if s.bookmarks == nil {
		s.bookmarks = map[string][]int{}
	}
	for k, marks := range s.bookmarks {
		slices.Sort(marks)
		s.bookmarks[k] = slices.Compact(marks)
	}
	return s, nil
}

func (s *Store) load(name string, v any) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.log.Warn("reading store file", "file", name, "error", err)
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn("ignoring malformed store file", "file", name, "error", err)
	}
}

// write replaces name atomically, retrying transient failures.
func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	target := filepath.Join(s.dir, name)
	err = retry.Do(
		func() error {
			tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())
			if _, err := tmp.Write(data); err != nil {
				tmp.Close()
				return err
			}
			if err := tmp.Close(); err != nil {
				return err
			}
			return os.Rename(tmp.Name(), target)
		},
		retry.Attempts(3),
		retry.Delay(20*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Progress returns the saved position for key.
func (s *Store) Progress(key string) (pages.Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.progress[key]
	if !ok {
		return pages.Progress{}, false
	}
	return pages.Progress{LastPage: e.LastPage, TotalPages: e.TotalPages}, true
}

// SaveProgress records the position in a document. The file is only
// rewritten when the page or page count changed.
func (s *Store) SaveProgress(key, fileName string, pageIndex, totalPages int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.progress[key]
	s.progress[key] = ProgressEntry{
		FileName:   fileName,
		LastPage:   pageIndex,
		TotalPages: totalPages,
		LastRead:   s.now(),
	}
	if ok && old.LastPage == pageIndex && old.TotalPages == totalPages {
		return nil
	}
	return s.write(progressFile, s.progress)
}

// Recent returns up to n progress entries, most recently read first.
// n is capped at MaxHistory.
func (s *Store) Recent(n int) []RecentEntry {
	if n <= 0 || n > MaxHistory {
		n = MaxHistory
	}
	s.mu.Lock()
	out := make([]RecentEntry, 0, len(s.progress))
	for k, e := range s.progress {
		out = append(out, RecentEntry{Key: k, ProgressEntry: e})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastRead.Equal(out[j].LastRead) {
			return out[i].LastRead.After(out[j].LastRead)
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ClearProgress forgets the position for key.
func (s *Store) ClearProgress(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.progress[key]; !ok {
		return nil
	}
	delete(s.progress, key)
	return s.write(progressFile, s.progress)
}

// ToggleBookmark adds or removes a bookmark and reports whether the page is
// now bookmarked.
func (s *Store) ToggleBookmark(key string, pageIndex int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	marks := s.bookmarks[key]
	on := false
	if i, found := slices.BinarySearch(marks, pageIndex); found {
		marks = slices.Delete(marks, i, i+1)
	} else {
		marks = slices.Insert(marks, i, pageIndex)
		on = true
	}
	if len(marks) == 0 {
		delete(s.bookmarks, key)
	} else {
		s.bookmarks[key] = marks
	}
	return on, s.write(bookmarksFile, s.bookmarks)
}

// Bookmarks returns the bookmarked pages of key in ascending order.
func (s *Store) Bookmarks(key string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bookmarks[key])
}

// IsBookmarked reports whether pageIndex of key is bookmarked.
func (s *Store) IsBookmarked(key string, pageIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := slices.BinarySearch(s.bookmarks[key], pageIndex)
	return found
}

// ClearBookmarks removes every bookmark of key.
func (s *Store) ClearBookmarks(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookmarks[key]; !ok {
		return nil
	}
	delete(s.bookmarks, key)
	return s.write(bookmarksFile, s.bookmarks)
}
