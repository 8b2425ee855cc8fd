package pages

// Mode is the set of reading options that affect navigation and layout.
type Mode struct {
	TwoPage    bool
	Manga      bool
	SmartCover bool
}

// Boundary reports whether a navigation step hit either end of the document.
type Boundary int

const (
	BoundaryNone Boundary = iota
	BoundaryStart
	BoundaryEnd
)

func (b Boundary) String() string {
	switch b {
	case BoundaryStart:
		return "start"
	case BoundaryEnd:
		return "end"
	default:
		return "none"
	}
}

// Step returns how many pages a forward move from current advances.
func Step(current int, mode Mode) int {
	if mode.TwoPage && !(mode.SmartCover && current == 0) {
		return 2
	}
	return 1
}

// Next returns the index after current. At the last page the index does not
// change and BoundaryEnd is reported.
func Next(current, length int, mode Mode) (int, Boundary) {
	if length <= 0 {
		return 0, BoundaryEnd
	}
	current = clamp(current, length)
	target := current + Step(current, mode)
	if target > length-1 {
		return current, BoundaryEnd
	}
	return target, BoundaryNone
}

// Prev returns the index before current. At the first page the index does
// not change and BoundaryStart is reported. With smart cover in two-page mode
// a step that would run past the first spread lands on index 1.
func Prev(current, length int, mode Mode) (int, Boundary) {
	if length <= 0 {
		return 0, BoundaryStart
	}
	current = clamp(current, length)
	if current <= 0 {
		return 0, BoundaryStart
	}
	step := 1
	if mode.TwoPage {
		step = 2
	}
	target := current - step
	if mode.SmartCover && mode.TwoPage && target < 1 && current > 1 {
		return 1, BoundaryNone
	}
	if target < 0 {
		target = 0
	}
	return target, BoundaryNone
}

// SpreadPartner returns the index shown beside index in two-page mode, or -1
// when the page is shown alone.
func SpreadPartner(index, length int, mode Mode) int {
	if !mode.TwoPage {
		return -1
	}
	if mode.SmartCover && index == 0 {
		return -1
	}
	if index+1 >= length {
		return -1
	}
	return index + 1
}
