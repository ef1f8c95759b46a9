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

package vm

import (
	"math"

	"github.com/ethereum/go-ethereum/params"
)

// maxMemorySize is the largest memory size whose quadratic cost still fits in
// a uint64.
const maxMemorySize = 0x1FFFFFFFE0

// toWordSize returns the ceiled word size required for memory expansion.
func toWordSize(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}

	return (size + 31) / 32
}

// ExpansionCost is ExpansionCostWith under the protocol defaults.
func ExpansionCost(current, next uint64) (uint64, error) {
	return expansionCost(params.MemoryGas, params.QuadCoeffDiv, current, next)
}

// ExpansionCostWith returns the gas charged for growing memory from the
// current high-water mark to next, both in bytes:
//
//	cost(words) = MEMORY*words + words*words/MEMORY_QUAD_DIV
//
// The result is cost(next) - cost(current) with both sizes rounded up to
// whole words.
func ExpansionCostWith(schedule *GasSchedule, current, next uint64) (uint64, error) {
	return expansionCost(schedule.Param(GasKeyMemory), schedule.Param(GasKeyMemoryQuadDiv), current, next)
}

func expansionCost(perWord, quadDiv, current, next uint64) (uint64, error) {
	if next < current {
		return 0, &InvalidRangeError{Current: current, New: next}
	}
	newCost, err := memoryCost(perWord, quadDiv, next)
	if err != nil {
		return 0, err
	}
	oldCost, err := memoryCost(perWord, quadDiv, current)
	if err != nil {
		return 0, err
	}
	return newCost - oldCost, nil
}

func memoryCost(perWord, quadDiv, size uint64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	if size > maxMemorySize {
		return 0, ErrGasUintOverflow
	}
	words := toWordSize(size)
	linCoef := words * perWord
	quadCoef := words * words / quadDiv
	return linCoef + quadCoef, nil
}

// MemoryState is the memory high-water mark of one evaluation. The mark is
// word aligned and never decreases.
type MemoryState struct {
	size    uint64
	paid    uint64
	perWord uint64
	quadDiv uint64
}

// NewMemoryState returns an empty memory priced by the given parameters.
func NewMemoryState(perWord, quadDiv uint64) *MemoryState {
	return &MemoryState{perWord: perWord, quadDiv: quadDiv}
}

// NewMemoryState returns an empty memory priced by the table's parameters.
func (t *CostTable) NewMemoryState() *MemoryState {
	return NewMemoryState(t.Param(GasKeyMemory), t.Param(GasKeyMemoryQuadDiv))
}

// Size returns the current high-water mark in bytes.
func (m *MemoryState) Size() uint64 { return m.size }

// Paid returns the memory gas charged so far.
func (m *MemoryState) Paid() uint64 { return m.paid }

// Expand touches [offset, offset+size) and returns the gas for any growth.
// A zero size never expands memory, whatever the offset.
func (m *MemoryState) Expand(offset, size uint64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	end := offset + size
	if end < offset {
		return 0, &InvalidRangeError{Current: m.size, New: math.MaxUint64}
	}
	if end <= m.size {
		return 0, nil
	}
	if end > maxMemorySize {
		return 0, ErrGasUintOverflow
	}

	next := toWordSize(end) * 32
	cost, err := expansionCost(m.perWord, m.quadDiv, m.size, next)
	if err != nil {
		return 0, err
	}
	m.size = next
	m.paid += cost
	return cost, nil
}

// Reset empties the memory.
func (m *MemoryState) Reset() {
	m.size = 0
	m.paid = 0
}
