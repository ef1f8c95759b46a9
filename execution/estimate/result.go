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
	"sort"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// BreakdownEntry is the priced record of one instruction.
type BreakdownEntry struct {
	Index int       `json:"index"`
	Op    vm.OpCode `json:"-"`
	Name  string    `json:"op"`

	Base    uint64 `json:"base"`
	Access  uint64 `json:"access"`  // storage or account access component
	Memory  uint64 `json:"memory"`  // memory expansion
	Dynamic uint64 `json:"dynamic"` // word, topic, value transfer and precompile charges
	Gas     uint64 `json:"gas"`     // sum of the above

	RefundAdded   uint64 `json:"refundAdded,omitempty"`
	RefundRemoved uint64 `json:"refundRemoved,omitempty"`

	// Warm is set when a storage slot or account was already warm. It is
	// false for instructions that touch neither.
	Warm bool `json:"warm,omitempty"`
}

// CostResult is the outcome of evaluating one trace.
type CostResult struct {
	// Schedule names the cost table the trace was priced with.
	Schedule string `json:"schedule"`
	// GasUsed is the execution gas of the trace.
	GasUsed uint64 `json:"gasUsed"`
	// IntrinsicGas is zero unless a transaction was supplied.
	IntrinsicGas uint64 `json:"intrinsicGas"`
	// FloorGas is the EIP-7623 calldata floor, zero without a transaction.
	FloorGas uint64 `json:"floorGas,omitempty"`
	// RefundAccrued is the uncapped refund counter at the end of the trace.
	RefundAccrued uint64 `json:"refundAccrued"`
	// Refund is RefundAccrued capped at Total()/REFUND_QUOTIENT.
	Refund    uint64           `json:"refund"`
	Breakdown []BreakdownEntry `json:"breakdown"`
}

// Total returns intrinsic plus execution gas.
func (r *CostResult) Total() uint64 {
	return r.IntrinsicGas + r.GasUsed
}

// NetGas returns the gas a transaction would finally pay: the total less the
// capped refund, but never below the calldata floor.
func (r *CostResult) NetGas() uint64 {
	return max(r.Total()-r.Refund, r.FloorGas)
}

// OpcodeStats is the count and gas of one opcode across a trace.
type OpcodeStats struct {
	Count uint64 `json:"count"`
	Gas   uint64 `json:"gas"`
}

// ByOpcode aggregates the breakdown per opcode mnemonic.
func (r *CostResult) ByOpcode() map[string]OpcodeStats {
	result := make(map[string]OpcodeStats, 64)
	for _, e := range r.Breakdown {
		s := result[e.Name]
		s.Count++
		s.Gas += e.Gas
		result[e.Name] = s
	}
	return result
}

// OpcodeSummary tracks gas usage for a single opcode type under two schedules.
type OpcodeSummary struct {
	OriginalCount  uint64 `json:"originalCount"`
	OriginalGas    uint64 `json:"originalGas"`
	SimulatedCount uint64 `json:"simulatedCount"`
	SimulatedGas   uint64 `json:"simulatedGas"`
}

// SortedOpcodes returns the keys of a per-opcode map ordered by descending
// gas, then by name.
func SortedOpcodes[V any](m map[string]V, gas func(V) uint64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		gi, gj := gas(m[names[i]]), gas(m[names[j]])
		if gi != gj {
			return gi > gj
		}
		return names[i] < names[j]
	})
	return names
}
