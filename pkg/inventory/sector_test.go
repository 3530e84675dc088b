package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertHeapProperty checks that no occupied slot is more popular than either of its children
// and that occupied slots are exactly 1..Size().
func assertHeapProperty(t *testing.T, s *Sector, msgAndArgs ...any) {
	t.Helper()
	require.LessOrEqual(t, s.Size(), SectorCapacity, msgAndArgs...)
	for i := 1; i <= SectorCapacity; i++ {
		if i <= s.Size() {
			require.NotNil(t, s.slots[i], msgAndArgs...)
		} else {
			require.Nil(t, s.slots[i], msgAndArgs...)
		}
	}
	for i := 1; i <= s.Size(); i++ {
		for _, c := range []int{2 * i, 2*i + 1} {
			if c > s.Size() {
				continue
			}
			require.False(t, s.Get(c).Less(s.Get(i)),
				"child %d %v is less popular than parent %d %v: %v", c, s.Get(c), i, s.Get(i), msgAndArgs)
		}
	}
}

func ids(s *Sector) []int {
	out := make([]int, 0, s.Size())
	for _, p := range s.Products() {
		out = append(out, p.ID())
	}
	return out
}

func TestSector_GetOutOfRange(t *testing.T) {
	t.Parallel()
	var s Sector
	assert.Nil(t, s.Get(0))
	assert.Nil(t, s.Get(1))
	assert.Nil(t, s.Min())

	s.Add(NewProduct(1, "a", 1, 1, 1))
	assert.Nil(t, s.Get(0))
	assert.Nil(t, s.Get(-3))
	assert.Nil(t, s.Get(2))
	assert.Nil(t, s.Get(SectorCapacity+1))
	require.NotNil(t, s.Get(1))
	assert.Equal(t, 1, s.Get(1).ID())
}

func TestSector_AddPanicsWhenFull(t *testing.T) {
	t.Parallel()
	var s Sector
	for i := 0; i < SectorCapacity; i++ {
		s.Add(NewProduct(i, "p", 1, 1, i))
	}
	require.True(t, s.Full())
	assert.Panics(t, func() { s.Add(NewProduct(99, "overflow", 1, 1, 1)) })
	assert.Equal(t, SectorCapacity, s.Size())
}

func TestSector_DeleteLast(t *testing.T) {
	t.Parallel()
	var s Sector
	s.DeleteLast()
	assert.Equal(t, 0, s.Size())

	s.Add(NewProduct(1, "a", 1, 1, 1))
	s.Add(NewProduct(2, "b", 1, 1, 2))
	s.DeleteLast()
	assert.Equal(t, 1, s.Size())
	assert.Nil(t, s.Get(2))
	assert.Equal(t, []int{1}, ids(&s))
}

func TestSector_SwimMovesLessPopularUp(t *testing.T) {
	t.Parallel()
	var s Sector
	s.Add(NewProduct(1, "a", 1, 1, 5))
	s.Add(NewProduct(2, "b", 1, 1, 7))
	s.Add(NewProduct(3, "c", 1, 1, 6))
	s.Add(NewProduct(4, "d", 1, 1, 1))

	s.Swim(4)
	assert.Equal(t, []int{4, 1, 3, 2}, ids(&s))
	assertHeapProperty(t, &s)
}

func TestSector_SwimStopsOnEqualKeys(t *testing.T) {
	t.Parallel()
	var s Sector
	s.Add(NewProduct(1, "a", 1, 3, 2))
	s.Add(NewProduct(2, "b", 1, 3, 2))

	s.Swim(2)
	assert.Equal(t, []int{1, 2}, ids(&s))
}

func TestSector_SinkPrefersLeftChildOnTie(t *testing.T) {
	t.Parallel()
	var s Sector
	s.Add(NewProduct(1, "root", 1, 1, 5))
	s.Add(NewProduct(2, "left", 1, 1, 1))
	s.Add(NewProduct(3, "right", 1, 1, 1))

	s.Sink(1)
	assert.Equal(t, []int{2, 1, 3}, ids(&s))
	assertHeapProperty(t, &s)
}

func TestSector_SinkPicksSmallerChild(t *testing.T) {
	t.Parallel()
	var s Sector
	s.Add(NewProduct(1, "root", 1, 1, 9))
	s.Add(NewProduct(2, "left", 1, 1, 4))
	s.Add(NewProduct(3, "right", 1, 1, 2))
	s.Add(NewProduct(4, "leaf", 1, 1, 6))
	s.Add(NewProduct(5, "leaf", 1, 1, 8))

	s.Sink(1)
	assert.Equal(t, []int{3, 2, 1, 4, 5}, ids(&s))
	assertHeapProperty(t, &s)
}

func TestSector_SinkUsesDayToBreakDemandTies(t *testing.T) {
	t.Parallel()
	var s Sector
	s.Add(NewProduct(1, "root", 1, 9, 3))
	s.Add(NewProduct(2, "recent", 1, 8, 3))
	s.Add(NewProduct(3, "stale", 1, 2, 3))

	s.Sink(1)
	assert.Equal(t, 3, s.Min().ID())
	assertHeapProperty(t, &s)
}

func TestSector_RebuildRestoresOrder(t *testing.T) {
	t.Parallel()
	var s Sector
	for i, demand := range []int{9, 7, 5, 3, 1} {
		s.Add(NewProduct(i+1, "p", 1, 1, demand))
	}
	s.rebuild()
	assert.Equal(t, 5, s.Min().ID())
	assertHeapProperty(t, &s)
}

func TestSector_String(t *testing.T) {
	t.Parallel()
	var s Sector
	assert.Equal(t, "[]", s.String())
	s.Add(NewProduct(13, "X", 10, 1, 2))
	s.Add(NewProduct(23, "Y", 5, 1, 9))
	assert.Equal(t, "[(13,X,10,1,2), (23,Y,5,1,9)]", s.String())
}
