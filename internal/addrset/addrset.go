// Package addrset provides an insertion-ordered set of addresses with
// constant-time add, remove and membership. Removal swaps the last element
// into the removed slot, so order is only stable under additions.
package addrset

import "github.com/ethereum/go-ethereum/common"

type Set struct {
	values  []common.Address
	indexes map[common.Address]int
}

func New(addrs ...common.Address) *Set {
	s := &Set{indexes: make(map[common.Address]int, len(addrs))}
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts a and returns false if it was already present.
func (s *Set) Add(a common.Address) bool {
	if _, ok := s.indexes[a]; ok {
		return false
	}
	s.values = append(s.values, a)
	s.indexes[a] = len(s.values) - 1
	return true
}

// Remove deletes a and returns false if it was not present.
func (s *Set) Remove(a common.Address) bool {
	i, ok := s.indexes[a]
	if !ok {
		return false
	}
	last := len(s.values) - 1
	if i != last {
		moved := s.values[last]
		s.values[i] = moved
		s.indexes[moved] = i
	}
	s.values = s.values[:last]
	delete(s.indexes, a)
	return true
}

func (s *Set) Contains(a common.Address) bool {
	_, ok := s.indexes[a]
	return ok
}

func (s *Set) Len() int { return len(s.values) }

// At returns the element at position i.
func (s *Set) At(i int) common.Address { return s.values[i] }

// Values returns a copy of the elements.
func (s *Set) Values() []common.Address {
	out := make([]common.Address, len(s.values))
	copy(out, s.values)
	return out
}

// Clear removes every element.
func (s *Set) Clear() {
	s.values = nil
	s.indexes = make(map[common.Address]int)
}

func (s *Set) Clone() *Set {
	return New(s.values...)
}
