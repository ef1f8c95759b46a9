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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/gasestimate/execution/estimate"
	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Trace is a decoded trace file: the instructions to price plus the optional
// transaction, pre-warmed accounts and slots, and storage values they run
// against.
type Trace struct {
	Instructions []estimate.Instruction
	Transaction  *estimate.Transaction
	Storage      *estimate.StorageState
	Warm         *vm.AccessState
}

// Options returns the evaluator options that carry the trace context.
func (t *Trace) Options() []estimate.Option {
	var opts []estimate.Option
	if t.Transaction != nil {
		opts = append(opts, estimate.WithTransaction(t.Transaction))
	}
	if t.Storage != nil {
		opts = append(opts, estimate.WithStorage(t.Storage))
	}
	if t.Warm != nil {
		opts = append(opts, estimate.WithAccessState(t.Warm.Copy()))
	}
	return opts
}

// quantity is a 256-bit number written as 0x-prefixed hex or decimal. JSON
// numbers are accepted too.
type quantity string

func (q *quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid quantity %s", data)
	}
	*q = quantity(n.String())
	return nil
}

// value parses the quantity. An empty quantity is nil.
func (q quantity) value() (*uint256.Int, error) {
	s := strings.TrimSpace(string(q))
	if s == "" {
		return nil, nil
	}
	if has0xPrefix(s) {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return new(uint256.Int), nil
		}
		v, err := uint256.FromHex("0x" + digits)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", s, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return v, nil
}

func (q quantity) hash() (common.Hash, error) {
	v, err := q.value()
	if err != nil || v == nil {
		return common.Hash{}, err
	}
	return common.Hash(v.Bytes32()), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

type traceJSON struct {
	Transaction  *transactionJSON  `json:"transaction" yaml:"transaction"`
	Storage      []storageJSON     `json:"storage" yaml:"storage"`
	Warm         *warmJSON         `json:"warm" yaml:"warm"`
	Instructions []instructionJSON `json:"instructions" yaml:"instructions"`
}

type transactionJSON struct {
	From           common.Address    `json:"from" yaml:"from"`
	To             *common.Address   `json:"to" yaml:"to"`
	Data           hexutil.Bytes     `json:"data" yaml:"data"`
	AccessList     []accessTupleJSON `json:"accessList" yaml:"accessList"`
	Authorizations uint64            `json:"authorizations" yaml:"authorizations"`
	Coinbase       *common.Address   `json:"coinbase" yaml:"coinbase"`
}

type accessTupleJSON struct {
	Address     common.Address `json:"address" yaml:"address"`
	StorageKeys []quantity     `json:"storageKeys" yaml:"storageKeys"`
}

type storageJSON struct {
	Address  common.Address `json:"address" yaml:"address"`
	Slot     quantity       `json:"slot" yaml:"slot"`
	Value    quantity       `json:"value" yaml:"value"`
	Original quantity       `json:"original" yaml:"original"` // defaults to value
}

type warmJSON struct {
	Addresses []common.Address `json:"addresses" yaml:"addresses"`
	Slots     []slotRefJSON    `json:"slots" yaml:"slots"`
}

type slotRefJSON struct {
	Address common.Address `json:"address" yaml:"address"`
	Slot    quantity       `json:"slot" yaml:"slot"`
}

type instructionJSON struct {
	Op         string          `json:"op" yaml:"op"`
	Address    common.Address  `json:"address" yaml:"address"`
	Slot       quantity        `json:"slot" yaml:"slot"`
	Value      quantity        `json:"value" yaml:"value"`
	Target     *common.Address `json:"target" yaml:"target"`
	Input      hexutil.Bytes   `json:"input" yaml:"input"`
	CallValue  bool            `json:"callValue" yaml:"callValue"`
	NewAccount bool            `json:"newAccount" yaml:"newAccount"`
	MemOffset  uint64          `json:"memOffset" yaml:"memOffset"`
	MemSize    uint64          `json:"memSize" yaml:"memSize"`
	Size       uint64          `json:"size" yaml:"size"`
	Exponent   quantity        `json:"exponent" yaml:"exponent"`
}

// ReadTrace loads a trace from a JSON (.json) or YAML file.
func ReadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace file: %w", err)
	}

	trace, err := DecodeTrace(data, filepath.Ext(path) == ".json")
	if err != nil {
		return nil, fmt.Errorf("decoding trace file %s: %w", path, err)
	}
	return trace, nil
}

// DecodeTrace decodes a trace document.
func DecodeTrace(data []byte, isJSON bool) (*Trace, error) {
	var raw traceJSON
	if isJSON {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if len(raw.Instructions) == 0 {
		return nil, errors.New("trace has no instructions")
	}

	trace := &Trace{Instructions: make([]estimate.Instruction, 0, len(raw.Instructions))}
	for i := range raw.Instructions {
		in, err := raw.Instructions[i].decode()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		trace.Instructions = append(trace.Instructions, in)
	}

	if raw.Transaction != nil {
		tx, err := raw.Transaction.decode()
		if err != nil {
			return nil, fmt.Errorf("transaction: %w", err)
		}
		trace.Transaction = tx
	}

	if len(raw.Storage) > 0 {
		trace.Storage = estimate.NewStorageState()
		for i, s := range raw.Storage {
			if err := s.seed(trace.Storage); err != nil {
				return nil, fmt.Errorf("storage entry %d: %w", i, err)
			}
		}
	}

	if raw.Warm != nil {
		warm, err := raw.Warm.decode()
		if err != nil {
			return nil, fmt.Errorf("warm set: %w", err)
		}
		trace.Warm = warm
	}

	return trace, nil
}

// ParseOpCode resolves a mnemonic (case-insensitive) or a 0x-prefixed byte.
func ParseOpCode(s string) (vm.OpCode, error) {
	if has0xPrefix(s) {
		b, err := quantity(s).value()
		if err != nil || !b.IsUint64() || b.Uint64() > 0xff {
			return 0, &vm.UnknownOpcodeError{Name: s}
		}
		return vm.OpCode(b.Uint64()), nil
	}
	op, ok := vm.OpCodeFromString(strings.ToUpper(strings.TrimSpace(s)))
	if !ok {
		return 0, &vm.UnknownOpcodeError{Name: s}
	}
	return op, nil
}

func (j *instructionJSON) decode() (estimate.Instruction, error) {
	op, err := ParseOpCode(j.Op)
	if err != nil {
		return estimate.Instruction{}, err
	}

	in := estimate.Instruction{
		Op:         op,
		Address:    j.Address,
		Target:     j.Target,
		Input:      j.Input,
		CallValue:  j.CallValue,
		NewAccount: j.NewAccount,
		MemOffset:  j.MemOffset,
		MemSize:    j.MemSize,
		Size:       j.Size,
	}
	if in.Slot, err = j.Slot.hash(); err != nil {
		return in, fmt.Errorf("slot: %w", err)
	}
	if in.Value, err = j.Value.value(); err != nil {
		return in, fmt.Errorf("value: %w", err)
	}
	if in.Exponent, err = j.Exponent.value(); err != nil {
		return in, fmt.Errorf("exponent: %w", err)
	}
	return in, nil
}

func (j *transactionJSON) decode() (*estimate.Transaction, error) {
	tx := &estimate.Transaction{
		From:           j.From,
		To:             j.To,
		Data:           j.Data,
		Authorizations: j.Authorizations,
		Coinbase:       j.Coinbase,
	}
	if len(j.AccessList) > 0 {
		tx.AccessList = make(types.AccessList, 0, len(j.AccessList))
	}
	for i, tuple := range j.AccessList {
		keys := make([]common.Hash, 0, len(tuple.StorageKeys))
		for _, k := range tuple.StorageKeys {
			h, err := k.hash()
			if err != nil {
				return nil, fmt.Errorf("access list entry %d: %w", i, err)
			}
			keys = append(keys, h)
		}
		tx.AccessList = append(tx.AccessList, types.AccessTuple{Address: tuple.Address, StorageKeys: keys})
	}
	return tx, nil
}

func (j *storageJSON) seed(state *estimate.StorageState) error {
	slot, err := j.Slot.hash()
	if err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	value, err := j.Value.value()
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if value == nil {
		value = new(uint256.Int)
	}
	original, err := j.Original.value()
	if err != nil {
		return fmt.Errorf("original: %w", err)
	}
	if original == nil {
		state.Seed(j.Address, slot, value)
		return nil
	}
	state.SeedDirty(j.Address, slot, original, value)
	return nil
}

func (j *warmJSON) decode() (*vm.AccessState, error) {
	access := vm.NewAccessState()
	for _, addr := range j.Addresses {
		access.TouchAddress(addr)
	}
	for i, s := range j.Slots {
		slot, err := s.Slot.hash()
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		access.TouchSlot(s.Address, slot)
	}
	return access, nil
}
