package pages

import (
	"fmt"
	"slices"
	"sync"
)

// Registry is the ordered page list of the open document plus the current
// page index. The index is -1 when no document is loaded.
type Registry struct {
	mu      sync.RWMutex
	pages   []*Page
	current int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{current: -1}
}

// Load replaces the page list. The current index is reset to 0, or -1 for an
// empty list. No decoding is started.
func (r *Registry) Load(pages []*Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append([]*Page(nil), pages...)
	if len(r.pages) == 0 {
		r.current = -1
	} else {
		r.current = 0
	}
}

// Len returns the number of pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// At returns the page at index, or nil if index is out of range.
func (r *Registry) At(index int) *Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.pages) {
		return nil
	}
	return r.pages[index]
}

// IndexOf returns the position of p, or -1.
func (r *Registry) IndexOf(p *Page) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOfLocked(p)
}

func (r *Registry) indexOfLocked(p *Page) int {
	for i, q := range r.pages {
		if q == p {
			return i
		}
	}
	return -1
}

// Pages returns a copy of the page list.
func (r *Registry) Pages() []*Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Page(nil), r.pages...)
}

// Current returns the current page index.
func (r *Registry) Current() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetCurrent clamps index into range and makes it current.
// It returns the index that was stored.
func (r *Registry) SetCurrent(index int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pages) == 0 {
		r.current = -1
		return -1
	}
	r.current = clamp(index, len(r.pages))
	return r.current
}

// Clamp returns index limited to [0, Len()-1]. It returns 0 for an empty
// registry; callers check Len separately.
func (r *Registry) Clamp(index int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clamp(index, len(r.pages))
}

func clamp(index, length int) int {
	if length == 0 || index < 0 {
		return 0
	}
	if index > length-1 {
		return length - 1
	}
	return index
}

// Reorder permutes the pages so that position i holds the page previously at
// order[i]. Page identity, and therefore decode state and cached handles, is
// preserved. The current index follows the current page.
func (r *Registry) Reorder(order []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reorderLocked(order)
}

func (r *Registry) reorderLocked(order []int) error {
	if len(order) != len(r.pages) {
		return fmt.Errorf("reorder: got %d positions for %d pages", len(order), len(r.pages))
	}
	seen := make([]bool, len(order))
	next := make([]*Page, len(order))
	for i, from := range order {
		if from < 0 || from >= len(r.pages) || seen[from] {
			return fmt.Errorf("reorder: invalid permutation at position %d", i)
		}
		seen[from] = true
		next[i] = r.pages[from]
	}

	var cur *Page
	if r.current >= 0 && r.current < len(r.pages) {
		cur = r.pages[r.current]
	}
	r.pages = next
	if cur != nil {
		r.current = r.indexOfLocked(cur)
	}
	return nil
}

// SortFunc stably sorts the pages by cmp. Pinned pages that follow a page
// (the halves of a split) move together with it.
func (r *Registry) SortFunc(cmp func(a, b *Page) int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var groups [][]int
	for i, p := range r.pages {
		if p.Pinned() && len(groups) > 0 {
			groups[len(groups)-1] = append(groups[len(groups)-1], i)
			continue
		}
		groups = append(groups, []int{i})
	}
	slices.SortStableFunc(groups, func(a, b []int) int {
		return cmp(r.pages[a[0]], r.pages[b[0]])
	})
	order := make([]int, 0, len(r.pages))
	for _, g := range groups {
		order = append(order, g...)
	}
	return r.reorderLocked(order)
}

// InsertAfter inserts p directly after index. If the current page sits after
// the insertion point, the current index moves forward so the same page stays
// current.
func (r *Registry) InsertAfter(index int, p *Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertAfterLocked(index, p)
}

// InsertAfterPage inserts p directly after anchor, wherever anchor currently is.
func (r *Registry) InsertAfterPage(anchor, p *Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOfLocked(anchor)
	if i < 0 {
		return fmt.Errorf("insert after %q: page not in document", anchor.Name())
	}
	return r.insertAfterLocked(i, p)
}

func (r *Registry) insertAfterLocked(index int, p *Page) error {
	if index < 0 || index >= len(r.pages) {
		return fmt.Errorf("insert after %d: index out of range [0,%d)", index, len(r.pages))
	}
	at := index + 1
	r.pages = append(r.pages, nil)
	copy(r.pages[at+1:], r.pages[at:])
	r.pages[at] = p
	if r.current >= at {
		r.current++
	}
	return nil
}
