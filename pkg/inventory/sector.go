package inventory

import "strings"

// SectorCapacity is the number of slots in every sector.
const SectorCapacity = 5

// Sector is a fixed-capacity min-heap of products keyed by popularity.
// Positions are 1-indexed: the root lives at 1, children of i at 2i and 2i+1.
// Slot 0 is never used.
type Sector struct {
	slots [SectorCapacity + 1]*Product
	size  int
}

// Add appends p after the last occupied slot without restoring heap order.
// It panics on a full sector; evict first.
func (s *Sector) Add(p *Product) {
	if s.size == SectorCapacity {
		panic("inventory: add to full sector")
	}
	s.size++
	s.slots[s.size] = p
}

// Get returns the product at position i, or nil when i is outside 1..Size().
func (s *Sector) Get(i int) *Product {
	if i < 1 || i > s.size {
		return nil
	}
	return s.slots[i]
}

// Size is the number of occupied slots.
func (s *Sector) Size() int { return s.size }

// Full reports whether every slot is occupied.
func (s *Sector) Full() bool { return s.size == SectorCapacity }

// Min returns the least popular product, or nil if the sector is empty.
func (s *Sector) Min() *Product { return s.Get(1) }

// Swap exchanges the products at positions i and j.
func (s *Sector) Swap(i, j int) {
	s.slots[i], s.slots[j] = s.slots[j], s.slots[i]
}

// DeleteLast drops the product in the last occupied slot.
func (s *Sector) DeleteLast() {
	if s.size == 0 {
		return
	}
	s.slots[s.size] = nil
	s.size--
}

// Sink moves the product at i down until no child is strictly less popular.
// Equal children resolve to the left one.
func (s *Sector) Sink(i int) {
	for 2*i <= s.size {
		child := 2 * i
		if child < s.size && s.slots[child+1].Less(s.slots[child]) {
			child++
		}
		if !s.slots[child].Less(s.slots[i]) {
			return
		}
		s.Swap(i, child)
		i = child
	}
}

// Swim moves the product at i up while it is strictly less popular than its parent.
func (s *Sector) Swim(i int) {
	for i > 1 && s.slots[i].Less(s.slots[i/2]) {
		s.Swap(i, i/2)
		i /= 2
	}
}

// rebuild restores heap order over the whole sector by swimming every non-root slot.
func (s *Sector) rebuild() {
	for i := 2; i <= s.size; i++ {
		s.Swim(i)
	}
}

// indexOf returns the position of the product with the given id, or 0.
func (s *Sector) indexOf(id int) int {
	for i := 1; i <= s.size; i++ {
		if s.slots[i].ID() == id {
			return i
		}
	}
	return 0
}

// Products returns the occupied slots in heap order.
func (s *Sector) Products() []*Product {
	out := make([]*Product, s.size)
	copy(out, s.slots[1:s.size+1])
	return out
}

func (s *Sector) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 1; i <= s.size; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(s.slots[i].String())
	}
	b.WriteByte(']')
	return b.String()
}
