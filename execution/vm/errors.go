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
	"errors"
	"fmt"
)

// ErrGasUintOverflow is returned when a gas computation does not fit in 64 bits.
var ErrGasUintOverflow = errors.New("gas uint64 overflow")

// UnknownOpcodeError is returned when an instruction is not present in the
// active cost table.
type UnknownOpcodeError struct {
	Op   OpCode
	Name string // set when the opcode came from a mnemonic that did not resolve
}

func (e *UnknownOpcodeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown opcode %q", e.Name)
	}
	return fmt.Sprintf("unknown opcode %#x", byte(e.Op))
}

// InvalidRangeError is returned when a memory high-water mark would move
// backwards, or a memory region wraps past the end of the address space.
type InvalidRangeError struct {
	Current uint64
	New     uint64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid memory range: high-water mark %d -> %d", e.Current, e.New)
}

// RefundOverflowError signals an inconsistent refund counter: a subtraction
// larger than the refund accrued so far.
type RefundOverflowError struct {
	Counter uint64
	Sub     uint64
}

func (e *RefundOverflowError) Error() string {
	return fmt.Sprintf("refund counter below zero (counter %d, sub %d)", e.Counter, e.Sub)
}
