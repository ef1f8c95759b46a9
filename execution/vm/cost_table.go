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

// Package vm prices individual EVM instructions against versioned gas
// schedules.
package vm

import "fmt"

type opCost struct {
	gas     uint64
	class   OpClass
	defined bool
}

// CostTable maps every opcode to its constant gas and behaviour classes, and
// carries the resolved dynamic-gas parameters of one schedule. It is built once
// and never mutated, so a single table may be shared between evaluators.
type CostTable struct {
	schedule *GasSchedule
	ops      [256]opCost
	params   map[string]uint64
}

// NewCostTable validates the schedule and resolves it into a lookup table.
func NewCostTable(schedule *GasSchedule) (*CostTable, error) {
	if schedule == nil {
		return nil, fmt.Errorf("nil gas schedule")
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	t := &CostTable{
		schedule: schedule.Copy(),
		params:   make(map[string]uint64, len(knownKeys)),
	}
	for name, entry := range schedule.Opcodes {
		op, _ := OpCodeFromString(name)
		class, _ := ParseClass(entry.Class)
		t.ops[op] = opCost{gas: entry.Gas, class: class, defined: true}
	}
	for key := range knownKeys {
		t.params[key] = schedule.Param(key)
	}

	return t, nil
}

// MustCostTable is like NewCostTable but panics on an invalid schedule. Meant
// for the embedded schedules and tests.
func MustCostTable(schedule *GasSchedule) *CostTable {
	t, err := NewCostTable(schedule)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the schedule name the table was built from.
func (t *CostTable) Name() string { return t.schedule.Name }

// StorageModel returns the SSTORE pricing model.
func (t *CostTable) StorageModel() StorageModel { return t.schedule.StorageModel }

// Schedule returns a copy of the resolved schedule.
func (t *CostTable) Schedule() *GasSchedule { return t.schedule.Copy() }

// Defined reports whether op has an entry in the table.
func (t *CostTable) Defined(op OpCode) bool { return t.ops[op].defined }

// BaseCost returns the constant gas charged for op.
func (t *CostTable) BaseCost(op OpCode) (uint64, error) {
	c := t.ops[op]
	if !c.defined {
		return 0, &UnknownOpcodeError{Op: op}
	}
	return c.gas, nil
}

// Class returns the behaviour classes of op.
func (t *CostTable) Class(op OpCode) (OpClass, error) {
	c := t.ops[op]
	if !c.defined {
		return 0, &UnknownOpcodeError{Op: op}
	}
	return c.class, nil
}

// Param returns a resolved schedule parameter. Unregistered keys read as 0.
func (t *CostTable) Param(key string) uint64 {
	return t.params[key]
}

// Opcodes returns the defined opcodes in byte order.
func (t *CostTable) Opcodes() []OpCode {
	var ops []OpCode
	for i := range t.ops {
		if t.ops[i].defined {
			ops = append(ops, OpCode(i))
		}
	}
	return ops
}
