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
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// GasSchedule is a versioned, externally supplied cost schedule.
// Opcodes maps mnemonics to their constant gas and behaviour classes.
// Overrides holds named dynamic-gas parameters; lookups go through GetOr so a
// missing key falls back to the protocol default.
type GasSchedule struct {
	Name         string                 `yaml:"name" json:"name"`
	Extends      string                 `yaml:"extends,omitempty" json:"extends,omitempty"`
	StorageModel StorageModel           `yaml:"storageModel,omitempty" json:"storageModel,omitempty"`
	Opcodes      map[string]OpcodeEntry `yaml:"opcodes,omitempty" json:"opcodes,omitempty"`
	Overrides    map[string]uint64      `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// OpcodeEntry is the schedule record for one opcode.
type OpcodeEntry struct {
	Gas   uint64   `yaml:"gas" json:"gas"`
	Class []string `yaml:"class,omitempty" json:"class,omitempty"`
}

// StorageModel selects how SSTORE transitions are priced.
type StorageModel string

const (
	// StorageModelTransition prices a write by the current -> new value
	// transition only: set, reset, or clear with a refund.
	StorageModelTransition StorageModel = "transition"
	// StorageModelNetMetered is EIP-2200 net gas metering with the EIP-2929
	// cold surcharge, using the slot's original value at transaction start.
	StorageModelNetMetered StorageModel = "eip2200"
)

// GetOr returns the override value if set, otherwise the default.
func (g *GasSchedule) GetOr(key string, defaultVal uint64) uint64 {
	if g != nil && g.Overrides != nil {
		if val, ok := g.Overrides[key]; ok {
			return val
		}
	}

	return defaultVal
}

// Gas parameter keys.
const (
	GasKeySloadCold            = "SLOAD_COLD"
	GasKeySloadWarm            = "SLOAD_WARM"
	GasKeySstoreSet            = "SSTORE_SET"
	GasKeySstoreReset          = "SSTORE_RESET"
	GasKeySstoreClearRefund    = "SSTORE_CLEAR_REFUND"
	GasKeyAccountCold          = "ACCOUNT_COLD"
	GasKeyCallValueXfer        = "CALL_VALUE_XFER"
	GasKeyCallNewAccount       = "CALL_NEW_ACCOUNT"
	GasKeyKeccak256Word        = "KECCAK256_WORD"
	GasKeyMemory               = "MEMORY"
	GasKeyMemoryQuadDiv        = "MEMORY_QUAD_DIV"
	GasKeyCopy                 = "COPY"
	GasKeyLogTopic             = "LOG_TOPIC"
	GasKeyLogData              = "LOG_DATA"
	GasKeyExpByte              = "EXP_BYTE"
	GasKeyCreateBySelfDestruct = "CREATE_BY_SELFDESTRUCT"
	GasKeySelfDestructRefund   = "SELFDESTRUCT_REFUND"
	GasKeyInitCodeWord         = "INIT_CODE_WORD"
	GasKeyRefundQuotient       = "REFUND_QUOTIENT"
	GasKeyPrecompiles          = "PRECOMPILES"
)

// knownKeys maps every parameter a schedule may carry to its protocol default
// (Cancun rules). Intrinsic and precompile keys are registered by their own
// files.
var knownKeys = map[string]uint64{}

func registerKeys(defaults map[string]uint64) {
	for k, v := range defaults {
		knownKeys[k] = v
	}
}

func init() {
	registerKeys(map[string]uint64{
		GasKeySloadCold:            params.ColdSloadCostEIP2929,
		GasKeySloadWarm:            params.WarmStorageReadCostEIP2929,
		GasKeySstoreSet:            params.SstoreSetGasEIP2200,
		GasKeySstoreReset:          params.SstoreResetGasEIP2200,
		GasKeySstoreClearRefund:    params.SstoreClearsScheduleRefundEIP3529,
		GasKeyAccountCold:          params.ColdAccountAccessCostEIP2929,
		GasKeyCallValueXfer:        params.CallValueTransferGas,
		GasKeyCallNewAccount:       params.CallNewAccountGas,
		GasKeyKeccak256Word:        params.Keccak256WordGas,
		GasKeyMemory:               params.MemoryGas,
		GasKeyMemoryQuadDiv:        params.QuadCoeffDiv,
		GasKeyCopy:                 params.CopyGas,
		GasKeyLogTopic:             params.LogTopicGas,
		GasKeyLogData:              params.LogDataGas,
		GasKeyExpByte:              params.ExpByteEIP158,
		GasKeyCreateBySelfDestruct: params.CreateBySelfdestructGas,
		GasKeySelfDestructRefund:   0,
		GasKeyInitCodeWord:         params.InitCodeWordGas,
		GasKeyRefundQuotient:       params.RefundQuotientEIP3529,
		GasKeyPrecompiles:          10,
	})
}

// IsKnownKey reports whether key names a schedule parameter.
func IsKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// DefaultParam returns the protocol default of a parameter, or 0 for unknown
// keys.
func DefaultParam(key string) uint64 {
	return knownKeys[key]
}

// Param returns the schedule's value for a registered parameter, falling back
// to its protocol default.
func (g *GasSchedule) Param(key string) uint64 {
	return g.GetOr(key, DefaultParam(key))
}

// KnownKeys returns every registered parameter name in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OpClass is a bit set of behaviours that attract dynamic gas.
type OpClass uint16

const (
	ClassStorageRead OpClass = 1 << iota
	ClassStorageWrite
	ClassMemory
	ClassAccount
	ClassCopy
	ClassHash
	ClassLog
	ClassExp
	ClassCreate
	ClassCall
)

var classNames = []struct {
	name  string
	class OpClass
}{
	{"storage_read", ClassStorageRead},
	{"storage_write", ClassStorageWrite},
	{"memory", ClassMemory},
	{"account", ClassAccount},
	{"copy", ClassCopy},
	{"hash", ClassHash},
	{"log", ClassLog},
	{"exp", ClassExp},
	{"create", ClassCreate},
	{"call", ClassCall},
}

// Has reports whether all bits of c are set.
func (cl OpClass) Has(c OpClass) bool { return cl&c == c }

// IsStorage reports whether the class reads or writes contract storage.
func (cl OpClass) IsStorage() bool { return cl&(ClassStorageRead|ClassStorageWrite) != 0 }

func (cl OpClass) String() string {
	var parts []string
	for _, cn := range classNames {
		if cl.Has(cn.class) {
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseClass converts schedule class names into an OpClass.
func ParseClass(names []string) (OpClass, error) {
	var cl OpClass
outer:
	for _, n := range names {
		for _, cn := range classNames {
			if cn.name == n {
				cl |= cn.class
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown opcode class %q", n)
	}
	return cl, nil
}

// HasOverrides returns true if any custom parameter values have been set.
func (g *GasSchedule) HasOverrides() bool {
	return g != nil && len(g.Overrides) > 0
}

// Copy returns a deep copy of the schedule.
func (g *GasSchedule) Copy() *GasSchedule {
	cpy := &GasSchedule{
		Name:         g.Name,
		Extends:      g.Extends,
		StorageModel: g.StorageModel,
		Opcodes:      make(map[string]OpcodeEntry, len(g.Opcodes)),
		Overrides:    make(map[string]uint64, len(g.Overrides)),
	}
	for name, entry := range g.Opcodes {
		entry.Class = append([]string(nil), entry.Class...)
		cpy.Opcodes[name] = entry
	}
	for k, v := range g.Overrides {
		cpy.Overrides[k] = v
	}
	return cpy
}

// merge layers child over g: child opcodes and parameters replace the parent's.
func (g *GasSchedule) merge(child *GasSchedule) *GasSchedule {
	out := g.Copy()
	out.Name = child.Name
	out.Extends = ""
	if child.StorageModel != "" {
		out.StorageModel = child.StorageModel
	}
	for name, entry := range child.Opcodes {
		out.Opcodes[name] = entry
	}
	for k, v := range child.Overrides {
		out.Overrides[k] = v
	}
	return out
}

// WithOverrides returns a copy of the schedule with custom values applied.
// Opcode mnemonics override the constant gas of that opcode and keep its
// classes; every other key is treated as a parameter.
func (g *GasSchedule) WithOverrides(overrides map[string]uint64) *GasSchedule {
	out := g.Copy()
	for key, gas := range overrides {
		if entry, ok := out.Opcodes[key]; ok {
			entry.Gas = gas
			out.Opcodes[key] = entry
			continue
		}
		out.Overrides[key] = gas
	}
	return out
}

// Validate checks a fully resolved schedule.
func (g *GasSchedule) Validate() error {
	var errs []error

	switch g.StorageModel {
	case StorageModelTransition, StorageModelNetMetered:
	default:
		errs = append(errs, fmt.Errorf("unknown storage model %q", g.StorageModel))
	}
	if len(g.Opcodes) == 0 {
		errs = append(errs, errors.New("schedule defines no opcodes"))
	}

	names := make([]string, 0, len(g.Opcodes))
	for name := range g.Opcodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := OpCodeFromString(name); !ok {
			errs = append(errs, &UnknownOpcodeError{Name: name})
			continue
		}
		if _, err := ParseClass(g.Opcodes[name].Class); err != nil {
			errs = append(errs, fmt.Errorf("opcode %s: %w", name, err))
		}
	}

	keys := make([]string, 0, len(g.Overrides))
	for key := range g.Overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !IsKnownKey(key) {
			errs = append(errs, fmt.Errorf("unknown gas parameter %q", key))
		}
	}

	if v, ok := g.Overrides[GasKeyRefundQuotient]; ok && v == 0 {
		errs = append(errs, errors.New("REFUND_QUOTIENT must be non-zero"))
	}
	if v, ok := g.Overrides[GasKeyMemoryQuadDiv]; ok && v == 0 {
		errs = append(errs, errors.New("MEMORY_QUAD_DIV must be non-zero"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid gas schedule %q: %w", g.Name, errors.Join(errs...))
	}
	return nil
}
