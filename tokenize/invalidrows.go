package tokenize

import "sort"

// InvalidRowSet is the sorted, deduplicated set of rows scheduled for
// re-tokenization.
type InvalidRowSet struct {
	rows []int
}

// NewInvalidRowSet builds a set containing the given rows.
func NewInvalidRowSet(rows ...int) *InvalidRowSet {
	s := &InvalidRowSet{}
	for _, r := range rows {
		s.Insert(r)
	}
	return s
}

func (s *InvalidRowSet) Len() int {
	return len(s.rows)
}

func (s *InvalidRowSet) Empty() bool {
	return len(s.rows) == 0
}

// Rows returns the current rows in ascending order. The slice is owned by
// the caller and safe to retain.
func (s *InvalidRowSet) Rows() []int {
	return append([]int(nil), s.rows...)
}

// Insert adds row, maintaining sort order and uniqueness.
func (s *InvalidRowSet) Insert(row int) {
	i := sort.SearchInts(s.rows, row)
	if i < len(s.rows) && s.rows[i] == row {
		return
	}
	s.rows = append(s.rows, 0)
	copy(s.rows[i+1:], s.rows[i:])
	s.rows[i] = row
}

// PopMin removes and returns the smallest row.
func (s *InvalidRowSet) PopMin() (int, bool) {
	if len(s.rows) == 0 {
		return 0, false
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, true
}

// ValidateUpTo removes every row <= row (§4.5.5, validateRow).
func (s *InvalidRowSet) ValidateUpTo(row int) {
	i := sort.SearchInts(s.rows, row+1)
	s.rows = s.rows[i:]
}

// Rebase relocates every stored row across an edit spanning [start, end] that
// shifted everything after it by delta (§4.4):
//
//	r < start        -> unchanged
//	start <= r <= end -> end + delta + 1  (the row just after the edited region)
//	r > end           -> r + delta
func (s *InvalidRowSet) Rebase(start, end, delta int) {
	seen := make(map[int]bool, len(s.rows))
	rebased := s.rows[:0]
	for _, r := range s.rows {
		var nr int
		switch {
		case r < start:
			nr = r
		case r <= end:
			nr = end + delta + 1
		default:
			nr = r + delta
		}
		if !seen[nr] {
			seen[nr] = true
			rebased = append(rebased, nr)
		}
	}
	sort.Ints(rebased)
	s.rows = rebased
}
