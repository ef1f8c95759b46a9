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

// gasestimate prices resolved EVM instruction traces against gas schedules.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ethpandaops/gasestimate/execution/vm"
	"github.com/ethpandaops/gasestimate/node/gasreport"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file",
	}
	scheduleFlag = &cli.StringFlag{
		Name:  "schedule",
		Usage: "Embedded gas schedule (" + strings.Join(vm.ScheduleNames(), ", ") + ")",
	}
	scheduleFileFlag = &cli.StringFlag{
		Name:  "schedule-file",
		Usage: "YAML or JSON gas schedule file, takes precedence over --schedule",
	}
	overrideFlag = &cli.StringSliceFlag{
		Name:  "override",
		Usage: "Gas override as KEY=VALUE, KEY being an opcode or parameter name",
	}
	outputFlag = &cli.StringFlag{
		Name:  "output",
		Usage: "Output format: table or json",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Logging level",
	}
	breakdownFlag = &cli.BoolFlag{
		Name:  "breakdown",
		Usage: "Include per-instruction costs",
	}

	againstFlag = &cli.StringFlag{
		Name:  "against",
		Usage: "Embedded gas schedule to compare against",
		Value: vm.DefaultScheduleName,
	}
	againstFileFlag = &cli.StringFlag{
		Name:  "against-file",
		Usage: "Gas schedule file to compare against, takes precedence over --against",
	}
	againstOverrideFlag = &cli.StringSliceFlag{
		Name:  "against-override",
		Usage: "Gas override for the compared schedule as KEY=VALUE",
	}
	listFlag = &cli.BoolFlag{
		Name:  "list",
		Usage: "List the embedded schedules",
	}
)

var commonFlags = []cli.Flag{
	configFlag, scheduleFlag, scheduleFileFlag, overrideFlag, outputFlag, logLevelFlag,
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "gasestimate",
		Usage: "static EVM gas cost estimator",
		Commands: []*cli.Command{
			{
				Name:      "estimate",
				Usage:     "Price a trace file",
				ArgsUsage: "<trace>",
				Flags:     append(append([]cli.Flag{}, commonFlags...), breakdownFlag),
				Action:    estimateAction,
			},
			{
				Name:      "compare",
				Usage:     "Price a trace file under two gas schedules",
				ArgsUsage: "<trace>",
				Flags:     append(append([]cli.Flag{}, commonFlags...), againstFlag, againstFileFlag, againstOverrideFlag),
				Action:    compareAction,
			},
			{
				Name:   "schedule",
				Usage:  "Show the opcodes and parameters of a gas schedule",
				Flags:  append(append([]cli.Flag{}, commonFlags...), listFlag),
				Action: scheduleAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseOverrides parses KEY=VALUE pairs.
func parseOverrides(pairs []string) (map[string]uint64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]uint64, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid override %q, want KEY=VALUE", pair)
		}
		gas, err := strconv.ParseUint(strings.TrimSpace(value), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid override %q: %w", pair, err)
		}
		overrides[strings.TrimSpace(key)] = gas
	}
	return overrides, nil
}

// loadConfig reads --config, or the defaults, and applies the flags set on
// the command line over it.
func loadConfig(c *cli.Context) (*gasreport.Config, error) {
	cfg := gasreport.DefaultConfig()
	if path := c.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = gasreport.LoadConfig(path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if c.IsSet(scheduleFlag.Name) {
		cfg.Schedule = c.String(scheduleFlag.Name)
		cfg.ScheduleFile = ""
	}
	if c.IsSet(scheduleFileFlag.Name) {
		cfg.ScheduleFile = c.String(scheduleFileFlag.Name)
	}
	if c.IsSet(outputFlag.Name) {
		cfg.Output = c.String(outputFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.LoggingLevel = c.String(logLevelFlag.Name)
	}
	if c.IsSet(breakdownFlag.Name) {
		cfg.Breakdown = c.Bool(breakdownFlag.Name)
	}

	overrides, err := parseOverrides(c.StringSlice(overrideFlag.Name))
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 && cfg.Overrides == nil {
		cfg.Overrides = make(map[string]uint64, len(overrides))
	}
	for k, v := range overrides {
		cfg.Overrides[k] = v
	}

	return cfg, nil
}

func newService(c *cli.Context) (*gasreport.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	log := gasreport.NewLogger(cfg.LoggingLevel)
	log.SetOutput(c.App.ErrWriter)
	return gasreport.New(cfg, log)
}

func traceArg(c *cli.Context) (*gasreport.Trace, error) {
	if c.NArg() != 1 {
		return nil, errors.New("expected exactly one trace file argument")
	}
	return gasreport.ReadTrace(c.Args().First())
}

type tableRenderer interface {
	RenderTable(w io.Writer)
}

func render(c *cli.Context, svc *gasreport.Service, v tableRenderer) error {
	if svc.Config().Output == gasreport.OutputJSON {
		return gasreport.WriteJSON(c.App.Writer, v)
	}
	v.RenderTable(c.App.Writer)
	return nil
}

func estimateAction(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}
	trace, err := traceArg(c)
	if err != nil {
		return err
	}

	report, err := svc.Estimate(c.Context, trace)
	if err != nil {
		return err
	}
	return render(c, svc, report)
}

func compareAction(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}
	trace, err := traceArg(c)
	if err != nil {
		return err
	}

	overrides, err := parseOverrides(c.StringSlice(againstOverrideFlag.Name))
	if err != nil {
		return err
	}
	simulated, err := gasreport.ResolveTable(c.String(againstFlag.Name), c.String(againstFileFlag.Name), overrides)
	if err != nil {
		return err
	}

	report, err := svc.Compare(c.Context, trace, simulated)
	if err != nil {
		return err
	}
	return render(c, svc, report)
}

func scheduleAction(c *cli.Context) error {
	if c.Bool(listFlag.Name) {
		for _, name := range vm.ScheduleNames() {
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	}

	svc, err := newService(c)
	if err != nil {
		return err
	}

	resp := svc.GasSchedule()
	if svc.Config().Output == gasreport.OutputJSON {
		return gasreport.WriteJSON(c.App.Writer, resp)
	}
	gasreport.RenderScheduleTable(c.App.Writer, resp)
	return nil
}
