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

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Instruction is one resolved step of a trace together with the operand
// context its gas depends on. Fields an opcode does not use are ignored.
type Instruction struct {
	Op vm.OpCode

	// Address is the contract executing the instruction. Storage slots are
	// keyed by it.
	Address common.Address
	// Slot is the storage key of SLOAD/SSTORE.
	Slot common.Hash
	// Value is the value written by SSTORE. Nil writes zero.
	Value *uint256.Int

	// Target is the account touched by BALANCE, EXTCODE*, the CALL family and
	// SELFDESTRUCT (the beneficiary). Nil is the zero address.
	Target *common.Address
	// Input is the call data of a CALL-family instruction, used to price
	// precompile calls.
	Input []byte
	// CallValue marks a non-zero value transfer. For SELFDESTRUCT it means the
	// destroyed contract holds a balance.
	CallValue bool
	// NewAccount marks a callee or beneficiary that does not exist yet.
	NewAccount bool

	// MemOffset and MemSize describe the memory region the instruction
	// touches. A zero size touches nothing. The CALL family touches an
	// argument and a return region; pass whichever reaches further, since
	// expansion is priced up to the highest byte only.
	MemOffset uint64
	MemSize   uint64
	// Size is the byte length priced by per-word and per-byte charges (copy,
	// hash, log data, init code). Zero means MemSize.
	Size uint64

	// Exponent is the EXP exponent.
	Exponent *uint256.Int
}

func (in *Instruction) target() common.Address {
	if in.Target == nil {
		return common.Address{}
	}
	return *in.Target
}

func (in *Instruction) dataSize() uint64 {
	if in.Size != 0 {
		return in.Size
	}
	return in.MemSize
}

func (in *Instruction) value() *uint256.Int {
	if in.Value == nil {
		return new(uint256.Int)
	}
	return in.Value
}
