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

// Package estimate accumulates the gas cost of a resolved instruction trace.
package estimate

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithAccessState makes the evaluator start from a caller-owned access state
// instead of a fresh one per pass. A pass runs on a copy of it; the copy's warm
// set is merged back only when the pass succeeds.
func WithAccessState(access *vm.AccessState) Option {
	return func(e *Evaluator) {
		e.access = access
		e.ownAccess = false
	}
}

// WithStorage seeds the committed storage values. Each pass works on a copy.
func WithStorage(storage *StorageState) Option {
	return func(e *Evaluator) {
		e.storage = storage
	}
}

// WithTransaction charges intrinsic gas for tx and applies its warming rules.
func WithTransaction(tx *Transaction) Option {
	return func(e *Evaluator) {
		e.tx = tx
	}
}

// WithLogger sets the logger used for per-instruction debug output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Evaluator) {
		e.log = log
	}
}

// Evaluator prices traces against one cost table. An Evaluator is not safe for
// concurrent use; the table it reads may be shared.
type Evaluator struct {
	table     *vm.CostTable
	access    *vm.AccessState
	ownAccess bool
	storage   *StorageState
	tx        *Transaction
	log       logrus.FieldLogger
}

// NewEvaluator creates an evaluator for table.
func NewEvaluator(table *vm.CostTable, opts ...Option) *Evaluator {
	e := &Evaluator{
		table:     table,
		access:    vm.NewAccessState(),
		ownAccess: true,
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Table returns the cost table the evaluator prices with.
func (e *Evaluator) Table() *vm.CostTable { return e.table }

// pass is the mutable state of one evaluation.
type pass struct {
	table   *vm.CostTable
	access  *vm.AccessState
	memory  *vm.MemoryState
	storage *StorageState
	refund  uint64
}

// Evaluate prices trace in order and returns the total. Any error aborts the
// evaluation, no result is returned and a caller-owned access state is left
// as it was.
//
// Slots seeded as cleared earlier in the transaction start the refund counter
// with one SSTORE_CLEAR_REFUND each, the refund their clearing write accrued.
func (e *Evaluator) Evaluate(trace []Instruction) (*CostResult, error) {
	p := &pass{
		table:   e.table,
		access:  e.access,
		memory:  e.table.NewMemoryState(),
		storage: NewStorageState(),
	}
	if e.ownAccess {
		p.access.Reset()
	} else {
		p.access = e.access.Copy()
	}
	if e.storage != nil {
		p.storage = e.storage.Copy()
	}

	var overflow bool
	if p.refund, overflow = math.SafeMul(p.storage.clearedSlots(), e.table.Param(vm.GasKeySstoreClearRefund)); overflow {
		return nil, fmt.Errorf("seeded refund: %w", vm.ErrGasUintOverflow)
	}
	p.access.WarmPrecompiles(e.table.Param(vm.GasKeyPrecompiles))

	result := &CostResult{
		Schedule:  e.table.Name(),
		Breakdown: make([]BreakdownEntry, 0, len(trace)),
	}
	if e.tx != nil {
		gas, floor, err := e.tx.IntrinsicGas(e.table)
		if err != nil {
			return nil, fmt.Errorf("intrinsic gas: %w", err)
		}
		result.IntrinsicGas = gas
		result.FloorGas = floor
		e.tx.warm(p.access)
	}

	for i := range trace {
		entry, err := p.step(i, &trace[i])
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, trace[i].Op, err)
		}
		if result.GasUsed, overflow = math.SafeAdd(result.GasUsed, entry.Gas); overflow {
			return nil, fmt.Errorf("instruction %d (%s): %w", i, trace[i].Op, vm.ErrGasUintOverflow)
		}
		result.Breakdown = append(result.Breakdown, entry)

		e.log.WithFields(logrus.Fields{
			"index": i,
			"op":    entry.Name,
			"gas":   entry.Gas,
			"warm":  entry.Warm,
		}).Debug("Priced instruction")
	}

	total, overflow := math.SafeAdd(result.IntrinsicGas, result.GasUsed)
	if overflow {
		return nil, vm.ErrGasUintOverflow
	}
	result.RefundAccrued = p.refund
	result.Refund = min(p.refund, total/e.table.Param(vm.GasKeyRefundQuotient))

	if !e.ownAccess {
		e.access.Merge(p.access)
	}

	e.log.WithFields(logrus.Fields{
		"schedule":     result.Schedule,
		"instructions": len(trace),
		"gas_used":     result.GasUsed,
		"refund":       result.Refund,
	}).Debug("Evaluated trace")

	return result, nil
}

// step prices a single instruction, updating the pass state.
func (p *pass) step(index int, in *Instruction) (BreakdownEntry, error) {
	t := p.table
	entry := BreakdownEntry{Index: index, Op: in.Op, Name: in.Op.String()}

	base, err := t.BaseCost(in.Op)
	if err != nil {
		return entry, err
	}
	class, err := t.Class(in.Op)
	if err != nil {
		return entry, err
	}
	entry.Base = base

	var dynamic uint64
	addDynamic := func(gas uint64, err error) error {
		if err != nil {
			return err
		}
		var overflow bool
		if dynamic, overflow = math.SafeAdd(dynamic, gas); overflow {
			return vm.ErrGasUintOverflow
		}
		return nil
	}

	if class.IsStorage() {
		entry.Warm = p.access.TouchSlot(in.Address, in.Slot)
		if class.Has(vm.ClassStorageWrite) {
			original, current := p.storage.Get(in.Address, in.Slot)
			next := in.value()
			cost := t.StorageWriteCost(original, current, next, !entry.Warm)
			p.storage.set(in.Address, in.Slot, next)

			entry.Access = cost.Gas
			entry.RefundAdded = cost.RefundAdd
			entry.RefundRemoved = cost.RefundSub
		} else {
			entry.Access = t.StorageReadCost(!entry.Warm)
		}
	}

	if class.Has(vm.ClassAccount) {
		target := in.target()
		entry.Warm = p.access.TouchAddress(target)
		entry.Access = t.AccountAccessGas(in.Op, base, !entry.Warm)

		if in.Op == vm.SELFDESTRUCT {
			gas, refund := t.SelfDestructGas(in.CallValue, in.NewAccount)
			if err := addDynamic(gas, nil); err != nil {
				return entry, err
			}
			entry.RefundAdded += refund
		}
	}

	if class.Has(vm.ClassCall) {
		if err := addDynamic(t.CallGas(in.Op, in.CallValue, in.NewAccount), nil); err != nil {
			return entry, err
		}
		if gas, ok := t.PrecompileGas(in.target(), in.Input); ok {
			if err := addDynamic(gas, nil); err != nil {
				return entry, err
			}
		}
	}

	if class.Has(vm.ClassMemory) {
		if entry.Memory, err = p.memory.Expand(in.MemOffset, in.MemSize); err != nil {
			return entry, err
		}
	}

	size := in.dataSize()
	if class.Has(vm.ClassCopy) {
		if err := addDynamic(t.CopyGas(size)); err != nil {
			return entry, err
		}
	}
	if class.Has(vm.ClassHash) {
		if err := addDynamic(t.HashGas(size)); err != nil {
			return entry, err
		}
	}
	if class.Has(vm.ClassLog) {
		if err := addDynamic(t.LogGas(in.Op.LogTopics(), size)); err != nil {
			return entry, err
		}
	}
	if class.Has(vm.ClassExp) {
		if err := addDynamic(t.ExpGas(in.Exponent)); err != nil {
			return entry, err
		}
	}
	if class.Has(vm.ClassCreate) {
		if err := addDynamic(t.InitCodeGas(size)); err != nil {
			return entry, err
		}
	}
	entry.Dynamic = dynamic

	gas := entry.Base
	for _, part := range []uint64{entry.Access, entry.Memory, entry.Dynamic} {
		var overflow bool
		if gas, overflow = math.SafeAdd(gas, part); overflow {
			return entry, vm.ErrGasUintOverflow
		}
	}
	entry.Gas = gas

	// Subtractions apply before additions.
	if entry.RefundRemoved > p.refund {
		return entry, &vm.RefundOverflowError{Counter: p.refund, Sub: entry.RefundRemoved}
	}
	p.refund -= entry.RefundRemoved
	var overflow bool
	if p.refund, overflow = math.SafeAdd(p.refund, entry.RefundAdded); overflow {
		return entry, vm.ErrGasUintOverflow
	}

	return entry, nil
}
