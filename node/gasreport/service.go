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

// Package gasreport prices trace files against configured gas schedules and
// renders the results.
package gasreport

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/gasestimate/execution/estimate"
	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Service prices traces with one resolved cost table.
type Service struct {
	config *Config
	table  *vm.CostTable
	log    logrus.FieldLogger
}

// NewLogger creates a logrus logger at the given level, falling back to info
// for unparseable levels.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	log.SetLevel(lvl)
	return log
}

// New validates the config and resolves its cost table.
func New(cfg *Config, log logrus.FieldLogger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log = log.WithField("component", "gasreport")

	table, err := ResolveTable(cfg.Schedule, cfg.ScheduleFile, cfg.Overrides)
	if err != nil {
		return nil, err
	}

	schedule := table.Schedule()
	log.WithFields(logrus.Fields{
		"schedule":      table.Name(),
		"storage_model": table.StorageModel(),
		"opcodes":       len(schedule.Opcodes),
		"overrides":     len(cfg.Overrides),
	}).Info("Gas schedule loaded")
	if schedule.HasOverrides() {
		log.WithField("parameters", len(schedule.Overrides)).Debug("Schedule sets gas parameters")
	}
	if schedule.HasIntrinsicOverrides() {
		log.Debug("Schedule overrides intrinsic transaction gas")
	}

	return &Service{
		config: cfg,
		table:  table,
		log:    log,
	}, nil
}

// ResolveTable builds a cost table from a schedule file, or an embedded
// schedule name when file is empty, with overrides applied last.
func ResolveTable(name, file string, overrides map[string]uint64) (*vm.CostTable, error) {
	var (
		schedule *vm.GasSchedule
		err      error
	)
	if file != "" {
		schedule, err = vm.ReadScheduleFile(file)
	} else {
		schedule, err = vm.LoadSchedule(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load gas schedule: %w", err)
	}

	if len(overrides) > 0 {
		schedule = schedule.WithOverrides(overrides)
	}

	table, err := vm.NewCostTable(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to build cost table: %w", err)
	}
	return table, nil
}

// Table returns the service's cost table.
func (s *Service) Table() *vm.CostTable { return s.table }

// Config returns the service config.
func (s *Service) Config() *Config { return s.config }

// Estimate prices a trace.
func (s *Service) Estimate(ctx context.Context, trace *Trace) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(trace.Options(), estimate.WithLogger(s.log))
	result, err := estimate.NewEvaluator(s.table, opts...).Evaluate(trace.Instructions)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate trace: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"instructions": len(trace.Instructions),
		"gas_used":     result.Total(),
		"refund":       result.Refund,
	}).Info("Trace evaluated")

	return NewReport(result, s.config.Breakdown), nil
}

// Compare prices a trace under the service's table and a simulated one.
func (s *Service) Compare(ctx context.Context, trace *Trace, simulated *vm.CostTable) (*ComparisonReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(trace.Options(), estimate.WithLogger(s.log))
	comparison, err := estimate.Compare(trace.Instructions, s.table, simulated, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compare schedules: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"original":      comparison.Original.Schedule,
		"simulated":     comparison.Simulated.Schedule,
		"delta_percent": comparison.DeltaPercent,
	}).Info("Trace compared")

	return NewComparisonReport(comparison), nil
}

// GasSchedule describes the service's cost table.
func (s *Service) GasSchedule() *GasScheduleResponse {
	return GasScheduleResponseForTable(s.table)
}
