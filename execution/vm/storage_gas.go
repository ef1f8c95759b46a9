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

import "github.com/holiman/uint256"

// WriteKind classifies a storage write by its current -> new value transition.
type WriteKind uint8

const (
	WriteNoop  WriteKind = iota // new value equals the current one
	WriteSet                    // zero -> non-zero
	WriteReset                  // non-zero -> different non-zero
	WriteClear                  // non-zero -> zero
)

func (k WriteKind) String() string {
	switch k {
	case WriteNoop:
		return "noop"
	case WriteSet:
		return "set"
	case WriteReset:
		return "reset"
	case WriteClear:
		return "clear"
	}
	return "unknown"
}

// ClassifyWrite returns the transition kind of writing next over current.
func ClassifyWrite(current, next *uint256.Int) WriteKind {
	switch {
	case current.Eq(next):
		return WriteNoop
	case current.IsZero():
		return WriteSet
	case next.IsZero():
		return WriteClear
	default:
		return WriteReset
	}
}

// StorageCost is the priced outcome of one storage access.
type StorageCost struct {
	Gas       uint64
	RefundAdd uint64
	RefundSub uint64
}

// StorageReadCost returns the gas of a storage read.
func (t *CostTable) StorageReadCost(cold bool) uint64 {
	if cold {
		return t.Param(GasKeySloadCold)
	}
	return t.Param(GasKeySloadWarm)
}

// StorageWriteCost prices a storage write under the table's storage model.
// original is the slot value at transaction start, current the value before
// this write and next the value written.
func (t *CostTable) StorageWriteCost(original, current, next *uint256.Int, cold bool) StorageCost {
	if t.StorageModel() == StorageModelNetMetered {
		return t.netMeteredWriteCost(original, current, next, cold)
	}
	return t.transitionWriteCost(current, next, cold)
}

func (t *CostTable) transitionWriteCost(current, next *uint256.Int, cold bool) StorageCost {
	switch ClassifyWrite(current, next) {
	case WriteSet:
		return StorageCost{Gas: t.Param(GasKeySstoreSet)}
	case WriteReset:
		return StorageCost{Gas: t.Param(GasKeySstoreReset)}
	case WriteClear:
		return StorageCost{Gas: t.Param(GasKeySstoreReset), RefundAdd: t.Param(GasKeySstoreClearRefund)}
	}

	warm := t.Param(GasKeySloadWarm)
	if cold {
		return StorageCost{Gas: warm + subFloor(t.Param(GasKeySloadCold), warm)}
	}
	return StorageCost{Gas: warm}
}

// netMeteredWriteCost implements EIP-2200 with the EIP-2929 cold surcharge.
//
//  1. If current value equals new value (this is a no-op), SLOAD_WARM is deducted.
//  2. If current value does not equal new value
//     2.1. If original value equals current value (this storage slot has not been changed by the current execution context)
//     2.1.1. If original value is 0, SSTORE_SET is deducted.
//     2.1.2. Otherwise, SSTORE_RESET - SLOAD_COLD is deducted. If new value is 0, add SSTORE_CLEAR_REFUND to refund counter.
//     2.2. If original value does not equal current value (this storage slot is dirty), SLOAD_WARM is deducted. Apply both of the following clauses.
//     2.2.1. If original value is not 0
//     2.2.1.1. If current value is 0 (also means that new value is not 0), remove SSTORE_CLEAR_REFUND from refund counter.
//     2.2.1.2. If new value is 0 (also means that current value is not 0), add SSTORE_CLEAR_REFUND to refund counter.
//     2.2.2. If original value equals new value (this storage slot is reset)
//     2.2.2.1. If original value is 0, add SSTORE_SET - SLOAD_WARM to refund counter.
//     2.2.2.2. Otherwise, add SSTORE_RESET - SLOAD_COLD - SLOAD_WARM gas to refund counter.
//
// A cold slot adds SLOAD_COLD on top.
func (t *CostTable) netMeteredWriteCost(original, current, next *uint256.Int, cold bool) StorageCost {
	var (
		out         StorageCost
		coldCost    = t.Param(GasKeySloadCold)
		warmRead    = t.Param(GasKeySloadWarm)
		set         = t.Param(GasKeySstoreSet)
		reset       = t.Param(GasKeySstoreReset)
		clearRefund = t.Param(GasKeySstoreClearRefund)
	)
	if cold {
		out.Gas = coldCost
	}
	cleanReset := subFloor(reset, coldCost)

	if current.Eq(next) { // noop (1)
		out.Gas += warmRead
		return out
	}
	if original.Eq(current) {
		if original.IsZero() { // create slot (2.1.1)
			out.Gas += set
			return out
		}
		if next.IsZero() { // delete slot (2.1.2b)
			out.RefundAdd += clearRefund
		}
		out.Gas += cleanReset // write existing slot (2.1.2)
		return out
	}
	if !original.IsZero() {
		if current.IsZero() { // recreate slot (2.2.1.1)
			out.RefundSub += clearRefund
		} else if next.IsZero() { // delete slot (2.2.1.2)
			out.RefundAdd += clearRefund
		}
	}
	if original.Eq(next) {
		if original.IsZero() { // reset to original inexistent slot (2.2.2.1)
			out.RefundAdd += subFloor(set, warmRead)
		} else { // reset to original existing slot (2.2.2.2)
			out.RefundAdd += subFloor(cleanReset, warmRead)
		}
	}
	out.Gas += warmRead // dirty update (2.2)
	return out
}

// subFloor returns a-b, or 0 when b exceeds a. Overridden schedules may order
// their parameters arbitrarily.
func subFloor(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
