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

package gasreport

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/gasestimate/execution/estimate"
)

func sampleResult() *estimate.CostResult {
	return &estimate.CostResult{
		Schedule:      "reference",
		GasUsed:       25103,
		IntrinsicGas:  21000,
		RefundAccrued: 4800,
		Refund:        4800,
		Breakdown: []estimate.BreakdownEntry{
			{Index: 0, Name: "PUSH1", Base: 3, Gas: 3},
			{Index: 1, Name: "SSTORE", Access: 2100 + 20000, Gas: 22100},
			{Index: 2, Name: "SSTORE", Access: 2900, Gas: 2900, RefundAdded: 4800, Warm: true},
			{Index: 3, Name: "PUSH1", Base: 3, Gas: 3},
			{Index: 4, Name: "ADD", Base: 3, Gas: 3},
		},
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport(sampleResult(), false)

	want := GasDetail{
		Schedule:      "reference",
		GasUsed:       46103,
		IntrinsicGas:  21000,
		ExecutionGas:  25103,
		RefundAccrued: 4800,
		Refund:        4800,
		NetGas:        41303,
	}
	if diff := cmp.Diff(want, report.GasDetail); diff != "" {
		t.Fatalf("gas detail mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 5, report.Instructions)
	require.Equal(t, []OpcodeRow{
		{Op: "SSTORE", Count: 2, Gas: 25000},
		{Op: "PUSH1", Count: 2, Gas: 6},
		{Op: "ADD", Count: 1, Gas: 3},
	}, report.Opcodes)
	require.Nil(t, report.Breakdown)

	require.Len(t, NewReport(sampleResult(), true).Breakdown, 5)
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewReport(sampleResult(), true)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "reference", decoded["schedule"])
	require.EqualValues(t, 41303, decoded["netGas"])
	require.NotContains(t, decoded, "floorGas")

	steps := decoded["breakdown"].([]any)
	require.Len(t, steps, 5)
	require.Equal(t, "SSTORE", steps[1].(map[string]any)["op"])
}

func TestReportRenderTable(t *testing.T) {
	var buf bytes.Buffer
	NewReport(sampleResult(), true).RenderTable(&buf)

	out := buf.String()
	for _, want := range []string{"Gas (reference)", "Net gas", "41303", "SSTORE", "+4800", "Instructions"} {
		require.Contains(t, out, want)
	}
}

func TestComparisonReport(t *testing.T) {
	original := sampleResult()
	simulated := sampleResult()
	simulated.Schedule = "london"
	simulated.GasUsed = 30103
	simulated.Breakdown[1].Gas = 27100

	cmpReport := NewComparisonReport(&estimate.Comparison{
		Original:     original,
		Simulated:    simulated,
		DeltaPercent: 10.85,
		OpcodeBreakdown: map[string]estimate.OpcodeSummary{
			"SSTORE": {OriginalCount: 2, OriginalGas: 25000, SimulatedCount: 2, SimulatedGas: 30000},
			"ADD":    {OriginalCount: 1, OriginalGas: 3, SimulatedCount: 1, SimulatedGas: 3},
		},
	})
	require.Equal(t, "london", cmpReport.Simulated.Schedule)
	require.Equal(t, uint64(51103), cmpReport.Simulated.GasUsed)
	require.Equal(t, "SSTORE", cmpReport.Opcodes[0].Op)
	require.Equal(t, "ADD", cmpReport.Opcodes[1].Op)

	var buf bytes.Buffer
	cmpReport.RenderTable(&buf)
	out := buf.String()
	require.Contains(t, out, "+10.85%")
	require.Contains(t, out, "5000")
}

func TestRenderScheduleTable(t *testing.T) {
	table, err := ResolveTable("cancun", "", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	RenderScheduleTable(&buf, GasScheduleResponseForTable(table))
	out := buf.String()
	require.Contains(t, out, "Opcodes (cancun)")
	require.Contains(t, out, "MCOPY")
	require.Contains(t, out, "SLOAD_COLD")
}
