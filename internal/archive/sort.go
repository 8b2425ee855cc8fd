package archive

import (
	"fmt"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// SortMethod selects how entries are ordered.
type SortMethod int

const (
	SortNatural    SortMethod = iota // Natural sort order (e.g., file1, file2, file10)
	SortSimple                       // Simple string sort (lexicographical)
	SortEntryOrder                   // Order of entries in the archive
)

// ParseSortMethod maps a config name to a SortMethod.
func ParseSortMethod(s string) (SortMethod, error) {
	switch strings.ToLower(s) {
	case "", "natural":
		return SortNatural, nil
	case "simple":
		return SortSimple, nil
	case "entry", "entry_order":
		return SortEntryOrder, nil
	}
	return SortNatural, fmt.Errorf("unknown sort method %q", s)
}

// SortStrategy defines the interface for different sorting strategies
type SortStrategy interface {
	// Sort returns a new sorted slice without modifying the original
	Sort(entries []Entry) []Entry
	// Compare orders two entries
	Compare(a, b Entry) int
	// Name returns the human-readable name of the strategy
	Name() string
	// ID returns the method identifier for config storage
	ID() SortMethod
}

func sortWith(s SortStrategy, entries []Entry) []Entry {
	result := slices.Clone(entries)
	if result == nil {
		result = []Entry{}
	}
	slices.SortStableFunc(result, s.Compare)
	return result
}

// NaturalSortStrategy implements natural sorting using maruel/natural
type NaturalSortStrategy struct{}

func (s *NaturalSortStrategy) Sort(entries []Entry) []Entry { return sortWith(s, entries) }

func (s *NaturalSortStrategy) Compare(a, b Entry) int {
	switch {
	case natural.Less(a.Name, b.Name):
		return -1
	case natural.Less(b.Name, a.Name):
		return 1
	}
	return 0
}

func (s *NaturalSortStrategy) Name() string {
	return "Natural"
}

func (s *NaturalSortStrategy) ID() SortMethod {
	return SortNatural
}

// SimpleSortStrategy implements lexicographical sorting
type SimpleSortStrategy struct{}

func (s *SimpleSortStrategy) Sort(entries []Entry) []Entry { return sortWith(s, entries) }

func (s *SimpleSortStrategy) Compare(a, b Entry) int {
	return strings.Compare(a.Name, b.Name)
}

func (s *SimpleSortStrategy) Name() string {
	return "Simple"
}

func (s *SimpleSortStrategy) ID() SortMethod {
	return SortSimple
}

// EntryOrderSortStrategy keeps the order of the archive
type EntryOrderSortStrategy struct{}

func (s *EntryOrderSortStrategy) Sort(entries []Entry) []Entry { return sortWith(s, entries) }

func (s *EntryOrderSortStrategy) Compare(a, b Entry) int {
	return a.Index - b.Index
}

func (s *EntryOrderSortStrategy) Name() string {
	return "Entry Order"
}

func (s *EntryOrderSortStrategy) ID() SortMethod {
	return SortEntryOrder
}

// GetSortStrategy returns the appropriate strategy based on the sort method
func GetSortStrategy(method SortMethod) SortStrategy {
	switch method {
	case SortNatural:
		return &NaturalSortStrategy{}
	case SortSimple:
		return &SimpleSortStrategy{}
	case SortEntryOrder:
		return &EntryOrderSortStrategy{}
	default:
		return &NaturalSortStrategy{} // Default fallback
	}
}

// GetAllSortStrategies returns all available sort strategies
func GetAllSortStrategies() []SortStrategy {
	return []SortStrategy{
		&NaturalSortStrategy{},
		&SimpleSortStrategy{},
		&EntryOrderSortStrategy{},
	}
}

// NextSortMethod returns the method after m, wrapping around.
func NextSortMethod(m SortMethod) SortMethod {
	all := GetAllSortStrategies()
	return all[(int(m)+1)%len(all)].ID()
}
