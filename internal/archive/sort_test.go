package archive

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Entries in archive order.
func getTestEntries() []Entry {
	names := []string{"test/01.png", "test/04.png", "test/08.png", "test/09.png", "test/2.png", "test/３.png", "test/10.png"}
	entries := make([]Entry, len(names))
	for i, n := range names {
		entries[i] = Entry{Name: n, Index: len(names) - 1 - i}
	}
	return entries
}

func entryNames(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestSortStrategies(t *testing.T) {
	tests := []struct {
		strategy SortStrategy
		id       SortMethod
		name     string
		want     []string
	}{
		{
			&NaturalSortStrategy{}, SortNatural, "Natural",
			[]string{"test/01.png", "test/2.png", "test/04.png", "test/08.png", "test/09.png", "test/10.png", "test/３.png"},
		},
		{
			&SimpleSortStrategy{}, SortSimple, "Simple",
			[]string{"test/01.png", "test/04.png", "test/08.png", "test/09.png", "test/10.png", "test/2.png", "test/３.png"},
		},
		{
			&EntryOrderSortStrategy{}, SortEntryOrder, "Entry Order",
			[]string{"test/10.png", "test/３.png", "test/2.png", "test/09.png", "test/08.png", "test/04.png", "test/01.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.strategy.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", tt.strategy.Name(), tt.name)
			}
			if tt.strategy.ID() != tt.id {
				t.Errorf("ID() = %d, want %d", tt.strategy.ID(), tt.id)
			}

			input := getTestEntries()
			original := getTestEntries()
			got := tt.strategy.Sort(input)
			if diff := cmp.Diff(tt.want, entryNames(got)); diff != "" {
				t.Errorf("Sort (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(original, input); diff != "" {
				t.Errorf("input slice was modified (-want +got):\n%s", diff)
			}
			if res := tt.strategy.Sort(nil); res == nil || len(res) != 0 {
				t.Errorf("Sort(nil) = %v, want empty slice", res)
			}
		})
	}
}

func TestGetSortStrategy(t *testing.T) {
	tests := []struct {
		method SortMethod
		wantID SortMethod
		name   string
	}{
		{SortNatural, SortNatural, "Natural"},
		{SortSimple, SortSimple, "Simple"},
		{SortEntryOrder, SortEntryOrder, "Entry Order"},
		{999, SortNatural, "Natural"}, // Default fallback
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := GetSortStrategy(tt.method)
			if s.ID() != tt.wantID || s.Name() != tt.name {
				t.Errorf("GetSortStrategy(%d) = %d %q, want %d %q", tt.method, s.ID(), s.Name(), tt.wantID, tt.name)
			}
		})
	}
}

func TestNextSortMethodCycles(t *testing.T) {
	m := SortNatural
	var seen []SortMethod
	for i := 0; i < 4; i++ {
		m = NextSortMethod(m)
		seen = append(seen, m)
	}
	want := []SortMethod{SortSimple, SortEntryOrder, SortNatural, SortSimple}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("cycle (-want +got):\n%s", diff)
	}
}

func TestParseSortMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    SortMethod
		wantErr bool
	}{
		{"natural", SortNatural, false},
		{"", SortNatural, false},
		{"Simple", SortSimple, false},
		{"entry", SortEntryOrder, false},
		{"random", SortNatural, true},
	}
	for _, tt := range tests {
		got, err := ParseSortMethod(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseSortMethod(%q) = %d, %v; want %d, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestSortStrategyEdgeCases(t *testing.T) {
	for _, s := range GetAllSortStrategies() {
		t.Run(s.Name(), func(t *testing.T) {
			single := s.Sort([]Entry{{Name: "test/single.png"}})
			if len(single) != 1 || single[0].Name != "test/single.png" {
				t.Errorf("single element: %v", single)
			}

			identical := s.Sort([]Entry{{Name: "same.png"}, {Name: "same.png"}, {Name: "same.png"}})
			if len(identical) != 3 {
				t.Errorf("identical names changed length: %v", identical)
			}
		})
	}
}
