package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidRowSetInsertSortsAndDedupes(t *testing.T) {
	s := NewInvalidRowSet()
	s.Insert(5)
	s.Insert(1)
	s.Insert(3)
	s.Insert(1)
	assert.Equal(t, []int{1, 3, 5}, s.Rows())
}

func TestInvalidRowSetPopMin(t *testing.T) {
	s := NewInvalidRowSet(4, 2, 7)
	row, ok := s.PopMin()
	assert.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, []int{4, 7}, s.Rows())
}

func TestInvalidRowSetPopMinEmpty(t *testing.T) {
	s := NewInvalidRowSet()
	_, ok := s.PopMin()
	assert.False(t, ok)
}

func TestInvalidRowSetValidateUpTo(t *testing.T) {
	s := NewInvalidRowSet(1, 2, 3, 10)
	s.ValidateUpTo(3)
	assert.Equal(t, []int{10}, s.Rows())
}

// TestInvalidRowSetRebase covers spec.md §4.4 / §8 property 6.
func TestInvalidRowSetRebase(t *testing.T) {
	s := NewInvalidRowSet(0, 5, 7, 20)
	s.Rebase(5, 7, 2)
	// row 0 < start(5): unchanged.
	// rows 5,7 in [5,7]: both collapse to end+delta+1 = 7+2+1 = 10.
	// row 20 > end(7): 20+2 = 22.
	assert.Equal(t, []int{0, 10, 22}, s.Rows())
}

func TestInvalidRowSetRebaseNegativeDelta(t *testing.T) {
	s := NewInvalidRowSet(10)
	s.Rebase(2, 4, -1)
	assert.Equal(t, []int{9}, s.Rows())
}
