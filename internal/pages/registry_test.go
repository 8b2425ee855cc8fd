package pages

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func names(pages []*Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Name()
	}
	return out
}

func TestRegistryLoad(t *testing.T) {
	r := NewRegistry()
	if r.Current() != -1 {
		t.Errorf("empty registry current = %d, want -1", r.Current())
	}

	pages, srcs := okPages(3)
	r.Load(pages)
	if r.Current() != 0 || r.Len() != 3 {
		t.Errorf("after Load: current %d len %d, want 0 3", r.Current(), r.Len())
	}
	for i, s := range srcs {
		if s.calls.Load() != 0 {
			t.Errorf("Load decoded page %d", i)
		}
	}

	r.Load(nil)
	if r.Current() != -1 || r.Len() != 0 {
		t.Errorf("after empty Load: current %d len %d, want -1 0", r.Current(), r.Len())
	}
}

func TestRegistryClamp(t *testing.T) {
	r := NewRegistry()
	if got := r.Clamp(5); got != 0 {
		t.Errorf("Clamp on empty registry = %d, want 0", got)
	}

	pages, _ := okPages(5)
	r.Load(pages)
	tests := []struct {
		in, want int
	}{
		{-3, 0},
		{0, 0},
		{2, 2},
		{4, 4},
		{5, 4},
		{100, 4},
	}
	for _, tt := range tests {
		if got := r.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%d) = %d, want %d", tt.in, got, tt.want)
		}
		if got := r.SetCurrent(tt.in); got != tt.want || r.Current() != tt.want {
			t.Errorf("SetCurrent(%d) = %d, current %d, want %d", tt.in, got, r.Current(), tt.want)
		}
	}
}

func TestRegistryInsertAfterShiftsCurrent(t *testing.T) {
	tests := []struct {
		name        string
		insertAfter int
		wantCurrent int
	}{
		{"before current", 1, 3},
		{"directly before current", 0, 3},
		{"at current", 2, 2},
		{"after current", 3, 2},
		{"at end", 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			pages, _ := okPages(5)
			r.Load(pages)
			r.SetCurrent(2)
			cur := r.At(2)

			half := NewPinnedPage("half", nil)
			if err := r.InsertAfter(tt.insertAfter, half); err != nil {
				t.Fatal(err)
			}
			if r.Current() != tt.wantCurrent {
				t.Errorf("current = %d, want %d", r.Current(), tt.wantCurrent)
			}
			if r.At(r.Current()) != cur {
				t.Error("current page changed identity")
			}
			if r.At(tt.insertAfter+1) != half || r.Len() != 6 {
				t.Errorf("half not at %d: %v", tt.insertAfter+1, names(r.Pages()))
			}
		})
	}
}

func TestRegistryInsertAfterOutOfRange(t *testing.T) {
	r := NewRegistry()
	pages, _ := okPages(2)
	r.Load(pages)
	for _, idx := range []int{-1, 2} {
		if err := r.InsertAfter(idx, NewPinnedPage("x", nil)); err == nil {
			t.Errorf("InsertAfter(%d) succeeded on 2 pages", idx)
		}
	}
	if err := r.InsertAfterPage(NewPage("stranger", nil), NewPinnedPage("x", nil)); err == nil {
		t.Error("InsertAfterPage with unknown anchor succeeded")
	}
}

func TestRegistryReorderPreservesIdentity(t *testing.T) {
	r := NewRegistry()
	pages, _ := okPages(4)
	r.Load(pages)
	pages[1].markCorrupt()
	pages[2].markDecoded([]byte("x"))
	r.SetCurrent(2)

	if err := r.Reorder([]int{3, 2, 1, 0}); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"p3", "p2", "p1", "p0"}, names(r.Pages())); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if r.At(2) != pages[1] || !r.At(2).Corrupt() {
		t.Error("corrupt flag lost on reorder")
	}
	if !r.At(1).Decoded() {
		t.Error("decoded flag lost on reorder")
	}
	if r.Current() != 1 {
		t.Errorf("current = %d, want 1 (follows p2)", r.Current())
	}
}

func TestRegistryReorderRejectsBadPermutation(t *testing.T) {
	r := NewRegistry()
	pages, _ := okPages(3)
	r.Load(pages)
	for _, order := range [][]int{{0, 1}, {0, 0, 1}, {0, 1, 3}} {
		if err := r.Reorder(order); err == nil {
			t.Errorf("Reorder(%v) succeeded", order)
		}
	}
	if diff := cmp.Diff([]string{"p0", "p1", "p2"}, names(r.Pages())); diff != "" {
		t.Errorf("failed reorder changed pages (-want +got):\n%s", diff)
	}
}

func TestRegistrySortFuncKeepsSplitHalves(t *testing.T) {
	r := NewRegistry()
	b := NewPage("b", nil)
	a := NewPage("a", nil)
	c := NewPage("c", nil)
	r.Load([]*Page{c, b, a})
	if err := r.InsertAfterPage(b, NewPinnedPage("b#2", nil)); err != nil {
		t.Fatal(err)
	}
	r.SetCurrent(2) // b#2

	err := r.SortFunc(func(x, y *Page) int { return strings.Compare(x.Name(), y.Name()) })
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "b#2", "c"}, names(r.Pages())); diff != "" {
		t.Errorf("sorted (-want +got):\n%s", diff)
	}
	if r.At(r.Current()).Name() != "b#2" {
		t.Errorf("current moved to %q", r.At(r.Current()).Name())
	}
}
