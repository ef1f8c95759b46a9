// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package estimate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type slotKey struct {
	addr common.Address
	slot common.Hash
}

type slotValues struct {
	original uint256.Int
	current  uint256.Int
}

// StorageState holds the committed (transaction start) and current values of
// the storage slots a trace writes. Unseeded slots are zero.
type StorageState struct {
	slots map[slotKey]*slotValues
}

// NewStorageState returns an empty storage view.
func NewStorageState() *StorageState {
	return &StorageState{slots: make(map[slotKey]*slotValues)}
}

// Seed sets the committed value of a slot. The current value follows it.
func (s *StorageState) Seed(addr common.Address, slot common.Hash, value *uint256.Int) {
	v := &slotValues{}
	v.original.Set(value)
	v.current.Set(value)
	s.slots[slotKey{addr, slot}] = v
}

// SeedDirty sets a slot already written earlier in the transaction: its
// committed value differs from the current one.
func (s *StorageState) SeedDirty(addr common.Address, slot common.Hash, original, current *uint256.Int) {
	v := &slotValues{}
	v.original.Set(original)
	v.current.Set(current)
	s.slots[slotKey{addr, slot}] = v
}

// Get returns the original and current value of a slot.
func (s *StorageState) Get(addr common.Address, slot common.Hash) (original, current *uint256.Int) {
	v, ok := s.slots[slotKey{addr, slot}]
	if !ok {
		return new(uint256.Int), new(uint256.Int)
	}
	return new(uint256.Int).Set(&v.original), new(uint256.Int).Set(&v.current)
}

// set records a write; the original value is left untouched.
func (s *StorageState) set(addr common.Address, slot common.Hash, value *uint256.Int) {
	key := slotKey{addr, slot}
	v, ok := s.slots[key]
	if !ok {
		v = &slotValues{}
		s.slots[key] = v
	}
	v.current.Set(value)
}

// clearedSlots counts the slots zeroed earlier in the transaction: committed
// non-zero, current zero.
func (s *StorageState) clearedSlots() uint64 {
	var n uint64
	for _, v := range s.slots {
		if !v.original.IsZero() && v.current.IsZero() {
			n++
		}
	}
	return n
}

// Len returns the number of tracked slots.
func (s *StorageState) Len() int { return len(s.slots) }

// Copy returns an independent copy.
func (s *StorageState) Copy() *StorageState {
	cpy := NewStorageState()
	for k, v := range s.slots {
		vv := *v
		cpy.slots[k] = &vv
	}
	return cpy
}
