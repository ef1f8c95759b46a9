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
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethpandaops/gasestimate/execution/estimate"
)

// GasDetail is the gas summary of one evaluation.
type GasDetail struct {
	Schedule      string `json:"schedule"`
	GasUsed       uint64 `json:"gasUsed"`
	IntrinsicGas  uint64 `json:"intrinsicGas"`
	ExecutionGas  uint64 `json:"executionGas"`
	FloorGas      uint64 `json:"floorGas,omitempty"`
	RefundAccrued uint64 `json:"refundAccrued"`
	Refund        uint64 `json:"refund"`
	NetGas        uint64 `json:"netGas"`
}

func newGasDetail(r *estimate.CostResult) GasDetail {
	return GasDetail{
		Schedule:      r.Schedule,
		GasUsed:       r.Total(),
		IntrinsicGas:  r.IntrinsicGas,
		ExecutionGas:  r.GasUsed,
		FloorGas:      r.FloorGas,
		RefundAccrued: r.RefundAccrued,
		Refund:        r.Refund,
		NetGas:        r.NetGas(),
	}
}

// OpcodeRow is one line of a per-opcode report, ordered by gas.
type OpcodeRow struct {
	Op    string `json:"op"`
	Count uint64 `json:"count"`
	Gas   uint64 `json:"gas"`
}

// Report is the result of pricing one trace.
type Report struct {
	GasDetail
	Instructions int                       `json:"instructions"`
	Opcodes      []OpcodeRow               `json:"opcodes"`
	Breakdown    []estimate.BreakdownEntry `json:"breakdown,omitempty"`
}

// NewReport summarizes a cost result. Per-instruction entries are kept only
// when breakdown is set.
func NewReport(r *estimate.CostResult, breakdown bool) *Report {
	byOp := r.ByOpcode()
	names := estimate.SortedOpcodes(byOp, func(s estimate.OpcodeStats) uint64 { return s.Gas })

	report := &Report{
		GasDetail:    newGasDetail(r),
		Instructions: len(r.Breakdown),
		Opcodes:      make([]OpcodeRow, 0, len(names)),
	}
	for _, name := range names {
		report.Opcodes = append(report.Opcodes, OpcodeRow{Op: name, Count: byOp[name].Count, Gas: byOp[name].Gas})
	}
	if breakdown {
		report.Breakdown = r.Breakdown
	}
	return report
}

// OpcodeComparisonRow is one line of a comparison, ordered by simulated gas.
type OpcodeComparisonRow struct {
	Op string `json:"op"`
	estimate.OpcodeSummary
}

// ComparisonReport is the result of pricing one trace under two schedules.
type ComparisonReport struct {
	Original     GasDetail             `json:"original"`
	Simulated    GasDetail             `json:"simulated"`
	DeltaPercent float64               `json:"deltaPercent"`
	Opcodes      []OpcodeComparisonRow `json:"opcodes"`
}

// NewComparisonReport summarizes a comparison.
func NewComparisonReport(c *estimate.Comparison) *ComparisonReport {
	names := estimate.SortedOpcodes(c.OpcodeBreakdown, func(s estimate.OpcodeSummary) uint64 {
		return max(s.SimulatedGas, s.OriginalGas)
	})

	report := &ComparisonReport{
		Original:     newGasDetail(c.Original),
		Simulated:    newGasDetail(c.Simulated),
		DeltaPercent: c.DeltaPercent,
		Opcodes:      make([]OpcodeComparisonRow, 0, len(names)),
	}
	for _, name := range names {
		report.Opcodes = append(report.Opcodes, OpcodeComparisonRow{Op: name, OpcodeSummary: c.OpcodeBreakdown[name]})
	}
	return report
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer, title string) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle(title)
	return tw
}

func rightAligned(cols ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		configs = append(configs, table.ColumnConfig{Number: c, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	return configs
}

// RenderTable writes the report as text tables.
func (r *Report) RenderTable(w io.Writer) {
	summary := newTable(w, "Gas ("+r.Schedule+")")
	summary.AppendRows([]table.Row{
		{"Instructions", r.Instructions},
		{"Intrinsic gas", r.IntrinsicGas},
		{"Execution gas", r.ExecutionGas},
		{"Gas used", r.GasUsed},
		{"Refund accrued", r.RefundAccrued},
		{"Refund (capped)", r.Refund},
		{"Net gas", r.NetGas},
	})
	summary.SetColumnConfigs(rightAligned(2))
	summary.Render()

	ops := newTable(w, "Opcodes")
	ops.AppendHeader(table.Row{"Opcode", "Count", "Gas"})
	for _, row := range r.Opcodes {
		ops.AppendRow(table.Row{row.Op, row.Count, row.Gas})
	}
	ops.AppendFooter(table.Row{"Total", r.Instructions, r.ExecutionGas})
	ops.SetColumnConfigs(rightAligned(2, 3))
	ops.Render()

	if len(r.Breakdown) == 0 {
		return
	}
	steps := newTable(w, "Instructions")
	steps.AppendHeader(table.Row{"#", "Opcode", "Base", "Access", "Memory", "Dynamic", "Gas", "Refund", "Warm"})
	for _, e := range r.Breakdown {
		steps.AppendRow(table.Row{e.Index, e.Name, e.Base, e.Access, e.Memory, e.Dynamic, e.Gas, refundCell(e), e.Warm})
	}
	steps.SetColumnConfigs(rightAligned(1, 3, 4, 5, 6, 7, 8))
	steps.Render()
}

func refundCell(e estimate.BreakdownEntry) string {
	switch {
	case e.RefundAdded > 0 && e.RefundRemoved > 0:
		return fmt.Sprintf("+%d/-%d", e.RefundAdded, e.RefundRemoved)
	case e.RefundAdded > 0:
		return fmt.Sprintf("+%d", e.RefundAdded)
	case e.RefundRemoved > 0:
		return fmt.Sprintf("-%d", e.RefundRemoved)
	}
	return ""
}

// RenderTable writes the comparison as text tables.
func (c *ComparisonReport) RenderTable(w io.Writer) {
	summary := newTable(w, "Comparison")
	summary.AppendHeader(table.Row{"", c.Original.Schedule, c.Simulated.Schedule})
	summary.AppendRows([]table.Row{
		{"Intrinsic gas", c.Original.IntrinsicGas, c.Simulated.IntrinsicGas},
		{"Execution gas", c.Original.ExecutionGas, c.Simulated.ExecutionGas},
		{"Gas used", c.Original.GasUsed, c.Simulated.GasUsed},
		{"Refund (capped)", c.Original.Refund, c.Simulated.Refund},
		{"Net gas", c.Original.NetGas, c.Simulated.NetGas},
	})
	summary.AppendFooter(table.Row{"Delta", "", fmt.Sprintf("%+.2f%%", c.DeltaPercent)})
	summary.SetColumnConfigs(rightAligned(2, 3))
	summary.Render()

	ops := newTable(w, "Opcodes")
	ops.AppendHeader(table.Row{"Opcode", "Count", "Original gas", "Simulated gas", "Delta"})
	for _, row := range c.Opcodes {
		ops.AppendRow(table.Row{
			row.Op,
			max(row.OriginalCount, row.SimulatedCount),
			row.OriginalGas,
			row.SimulatedGas,
			int64(row.SimulatedGas) - int64(row.OriginalGas),
		})
	}
	ops.SetColumnConfigs(rightAligned(2, 3, 4, 5))
	ops.Render()
}

// RenderScheduleTable writes a schedule description as text tables.
func RenderScheduleTable(w io.Writer, s *GasScheduleResponse) {
	for _, section := range []struct {
		title  string
		params map[string]GasParameter
	}{
		{"Opcodes (" + s.Name + ")", s.Opcodes},
		{"Parameters (storage model " + string(s.StorageModel) + ")", s.Parameters},
	} {
		names := make([]string, 0, len(section.params))
		for name := range section.params {
			names = append(names, name)
		}
		sort.Strings(names)

		tw := newTable(w, section.title)
		tw.AppendHeader(table.Row{"Name", "Gas", "Description"})
		for _, name := range names {
			p := section.params[name]
			tw.AppendRow(table.Row{name, p.Value, p.Description})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, WidthMax: 80},
		})
		tw.Render()
	}
}
