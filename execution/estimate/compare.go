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
	"fmt"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Comparison is the same trace priced under two cost tables.
type Comparison struct {
	Original        *CostResult              `json:"original"`
	Simulated       *CostResult              `json:"simulated"`
	DeltaPercent    float64                  `json:"deltaPercent"`
	OpcodeBreakdown map[string]OpcodeSummary `json:"opcodeBreakdown"`
}

// Compare evaluates trace under the original and simulated tables with two
// independent evaluators built from the same options. A caller-supplied
// access state is mutated by the original side only; the simulated side starts
// from a snapshot of it.
func Compare(trace []Instruction, original, simulated *vm.CostTable, opts ...Option) (*Comparison, error) {
	originalEval := NewEvaluator(original, opts...)

	simulatedOpts := opts
	if !originalEval.ownAccess {
		// Both sides start from the same warm set.
		simulatedOpts = append(append([]Option{}, opts...), WithAccessState(originalEval.access.Copy()))
	}
	simulatedEval := NewEvaluator(simulated, simulatedOpts...)

	originalResult, err := originalEval.Evaluate(trace)
	if err != nil {
		return nil, fmt.Errorf("original evaluation failed: %w", err)
	}

	simulatedResult, err := simulatedEval.Evaluate(trace)
	if err != nil {
		return nil, fmt.Errorf("simulated evaluation failed: %w", err)
	}

	return &Comparison{
		Original:        originalResult,
		Simulated:       simulatedResult,
		DeltaPercent:    deltaPercent(originalResult.Total(), simulatedResult.Total()),
		OpcodeBreakdown: combineOpcodeBreakdowns(originalResult, simulatedResult),
	}, nil
}

func deltaPercent(original, simulated uint64) float64 {
	if original == 0 {
		return 0
	}
	return (float64(simulated) - float64(original)) / float64(original) * 100
}

// combineOpcodeBreakdowns merges the per-opcode gas data of both results.
func combineOpcodeBreakdowns(original, simulated *CostResult) map[string]OpcodeSummary {
	result := make(map[string]OpcodeSummary, 64)

	for opcode, data := range original.ByOpcode() {
		entry := result[opcode]
		entry.OriginalCount = data.Count
		entry.OriginalGas = data.Gas
		result[opcode] = entry
	}

	for opcode, data := range simulated.ByOpcode() {
		entry := result[opcode]
		entry.SimulatedCount = data.Count
		entry.SimulatedGas = data.Gas
		result[opcode] = entry
	}

	return result
}
