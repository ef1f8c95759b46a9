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
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Config configures the gas report service.
type Config struct {
	// Schedule is the name of an embedded gas schedule.
	Schedule string `yaml:"schedule" default:"reference"`
	// ScheduleFile points at a YAML or JSON schedule. It takes precedence
	// over Schedule when set.
	ScheduleFile string `yaml:"scheduleFile"`
	// Overrides are applied on top of the resolved schedule. Keys are opcode
	// mnemonics or parameter names.
	Overrides    map[string]uint64 `yaml:"overrides"`
	LoggingLevel string            `yaml:"loggingLevel" default:"info"`
	Output       string            `yaml:"output" default:"table"`
	// Breakdown includes per-instruction entries in reports.
	Breakdown bool `yaml:"breakdown"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks the config for unusable values.
func (c *Config) Validate() error {
	var errs []error

	if c.ScheduleFile == "" {
		if c.Schedule == "" {
			errs = append(errs, errors.New("schedule or scheduleFile is required"))
		} else if !slices.Contains(vm.ScheduleNames(), c.Schedule) {
			errs = append(errs, fmt.Errorf("%w: %q", vm.ErrUnknownSchedule, c.Schedule))
		}
	}

	switch c.Output {
	case OutputTable, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output))
	}

	keys := make([]string, 0, len(c.Overrides))
	for k := range c.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := vm.OpCodeFromString(k); ok {
			continue
		}
		if !vm.IsKnownKey(k) {
			errs = append(errs, fmt.Errorf("unknown override %q", k))
		}
	}

	return errors.Join(errs...)
}

// LoadConfig reads a YAML config file over the defaults and validates it.
func LoadConfig(file string) (*Config, error) {
	cfg := &Config{}

	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	type plain Config

	if err := yaml.Unmarshal(yamlFile, (*plain)(cfg)); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
