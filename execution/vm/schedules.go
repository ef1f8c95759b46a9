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

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// DefaultScheduleName is used when no schedule is configured.
const DefaultScheduleName = "reference"

//go:embed schedules/*.yaml
var scheduleFS embed.FS

// ErrUnknownSchedule is returned for a schedule name with no embedded file.
var ErrUnknownSchedule = errors.New("unknown gas schedule")

// resolved schedules by name; entries are never handed out directly.
var scheduleCache, _ = lru.New[string, *GasSchedule](32)

// ScheduleNames lists the embedded schedules.
func ScheduleNames() []string {
	entries, err := scheduleFS.ReadDir("schedules")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// LoadSchedule returns a fully resolved copy of an embedded schedule.
func LoadSchedule(name string) (*GasSchedule, error) {
	if s, ok := scheduleCache.Get(name); ok {
		return s.Copy(), nil
	}

	s, err := resolveSchedule(name, embeddedSchedule, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	scheduleCache.Add(name, s)
	return s.Copy(), nil
}

// LoadCostTable builds a cost table from an embedded schedule.
func LoadCostTable(name string) (*CostTable, error) {
	s, err := LoadSchedule(name)
	if err != nil {
		return nil, err
	}
	return NewCostTable(s)
}

// ReadScheduleFile loads a schedule from a YAML or JSON file. A schedule may
// extend one of the embedded schedules by name.
func ReadScheduleFile(path string) (*GasSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}

	s, err := ParseSchedule(data, filepath.Ext(path) == ".json")
	if err != nil {
		return nil, fmt.Errorf("parsing schedule file %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	s, err = resolveParsed(s, embeddedSchedule, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSchedule decodes a single, unresolved schedule document.
func ParseSchedule(data []byte, isJSON bool) (*GasSchedule, error) {
	s := &GasSchedule{}
	if isJSON {
		if err := json.Unmarshal(data, s); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Opcodes == nil {
		s.Opcodes = map[string]OpcodeEntry{}
	}
	if s.Overrides == nil {
		s.Overrides = map[string]uint64{}
	}
	return s, nil
}

func embeddedSchedule(name string) (*GasSchedule, error) {
	data, err := scheduleFS.ReadFile("schedules/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchedule, name)
	}
	s, err := ParseSchedule(data, false)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", name, err)
	}
	return s, nil
}

func resolveSchedule(name string, lookup func(string) (*GasSchedule, error), seen []string) (*GasSchedule, error) {
	s, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return resolveParsed(s, lookup, seen)
}

// resolveParsed follows the extends chain, layering each child over its
// parent.
func resolveParsed(s *GasSchedule, lookup func(string) (*GasSchedule, error), seen []string) (*GasSchedule, error) {
	if s.Extends == "" {
		return s, nil
	}
	seen = append(seen, s.Name)
	for _, n := range seen {
		if n == s.Extends {
			return nil, fmt.Errorf("gas schedule %q: extends cycle through %q", s.Name, s.Extends)
		}
	}

	parent, err := resolveSchedule(s.Extends, lookup, seen)
	if err != nil {
		return nil, fmt.Errorf("gas schedule %q: %w", s.Name, err)
	}
	return parent.merge(s), nil
}
