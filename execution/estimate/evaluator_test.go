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
	"errors"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

var (
	contract = common.HexToAddress("0x000000000000000000000000000000000000c0de")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000f00d5")
	sender   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	slotS    = common.HexToHash("0x01")
	slotT    = common.HexToHash("0x02")
)

func table(t *testing.T, name string) *vm.CostTable {
	t.Helper()
	tbl, err := vm.LoadCostTable(name)
	require.NoError(t, err)
	return tbl
}

func sload(slot common.Hash) Instruction {
	return Instruction{Op: vm.SLOAD, Address: contract, Slot: slot}
}

func sstore(slot common.Hash, value uint64) Instruction {
	return Instruction{Op: vm.SSTORE, Address: contract, Slot: slot, Value: uint256.NewInt(value)}
}

func addr(a common.Address) *common.Address { return &a }

func TestEvaluatePureBaseCosts(t *testing.T) {
	tbl := table(t, "reference")
	trace := []Instruction{
		{Op: vm.PUSH1}, {Op: vm.PUSH1}, {Op: vm.ADD}, {Op: vm.DUP1}, {Op: vm.MUL},
		{Op: vm.JUMPDEST}, {Op: vm.ISZERO}, {Op: vm.SWAP1}, {Op: vm.POP}, {Op: vm.PUSH0},
		{Op: vm.ADDMOD}, {Op: vm.GAS}, {Op: vm.STOP},
	}

	var want uint64
	for _, in := range trace {
		base, err := tbl.BaseCost(in.Op)
		require.NoError(t, err)
		want += base
	}

	res, err := NewEvaluator(tbl).Evaluate(trace)
	require.NoError(t, err)
	require.Equal(t, want, res.GasUsed)
	require.Len(t, res.Breakdown, len(trace))
	require.Zero(t, res.RefundAccrued)
}

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name          string
		schedule      string
		seed          map[common.Hash]uint64
		trace         []Instruction
		wantGas       uint64
		wantAccrued   uint64
		wantRefund    uint64
		wantEntryGas  []uint64
		wantEntryWarm []bool
	}{
		{
			name:          "read cold then warm",
			schedule:      "reference",
			trace:         []Instruction{sload(slotS), sload(slotS)},
			wantGas:       2200,
			wantEntryGas:  []uint64{2100, 100},
			wantEntryWarm: []bool{false, true},
		},
		{
			name:          "set then reset",
			schedule:      "reference",
			trace:         []Instruction{sstore(slotS, 5), sstore(slotS, 7)},
			wantGas:       25000,
			wantEntryGas:  []uint64{20000, 5000},
			wantEntryWarm: []bool{false, true},
		},
		{
			name:         "clear is refunded up to the cap",
			schedule:     "reference",
			seed:         map[common.Hash]uint64{slotS: 5},
			trace:        []Instruction{sstore(slotS, 0)},
			wantGas:      5000,
			wantAccrued:  4800,
			wantRefund:   1000,
			wantEntryGas: []uint64{5000},
		},
		{
			name:          "write then read is warm",
			schedule:      "reference",
			trace:         []Instruction{sstore(slotS, 1), sload(slotS)},
			wantGas:       20100,
			wantEntryGas:  []uint64{20000, 100},
			wantEntryWarm: []bool{false, true},
		},
		{
			name:          "read then noop write is warm",
			schedule:      "reference",
			trace:         []Instruction{sload(slotS), sstore(slotS, 0)},
			wantGas:       2200,
			wantEntryGas:  []uint64{2100, 100},
			wantEntryWarm: []bool{false, true},
		},
		{
			name:         "cold noop write",
			schedule:     "reference",
			trace:        []Instruction{sstore(slotT, 0)},
			wantGas:      2100,
			wantEntryGas: []uint64{2100},
		},
		{
			name:     "slots are keyed by contract",
			schedule: "reference",
			trace: []Instruction{
				sload(slotS),
				{Op: vm.SLOAD, Address: stranger, Slot: slotS},
			},
			wantGas: 4200,
		},
		{
			name:         "net metering clear and restore",
			schedule:     "london",
			seed:         map[common.Hash]uint64{slotS: 1},
			trace:        []Instruction{sstore(slotS, 0), sstore(slotS, 1)},
			wantGas:      5100,
			wantAccrued:  2800,
			wantRefund:   1020,
			wantEntryGas: []uint64{5000, 100},
		},
		{
			name:         "net metering create and delete",
			schedule:     "berlin",
			trace:        []Instruction{sstore(slotS, 1), sstore(slotS, 0)},
			wantGas:      22200,
			wantAccrued:  19900,
			wantRefund:   11100,
			wantEntryGas: []uint64{22100, 100},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			storage := NewStorageState()
			for slot, v := range tc.seed {
				storage.Seed(contract, slot, uint256.NewInt(v))
			}

			res, err := NewEvaluator(table(t, tc.schedule), WithStorage(storage)).Evaluate(tc.trace)
			require.NoError(t, err)
			require.Equal(t, tc.wantGas, res.GasUsed)
			require.Equal(t, tc.wantAccrued, res.RefundAccrued)
			require.Equal(t, tc.wantRefund, res.Refund)
			require.Equal(t, tc.schedule, res.Schedule)

			if tc.wantEntryGas != nil {
				gas := make([]uint64, len(res.Breakdown))
				for i, e := range res.Breakdown {
					gas[i] = e.Gas
				}
				require.Equal(t, tc.wantEntryGas, gas)
			}
			if tc.wantEntryWarm != nil {
				warm := make([]bool, len(res.Breakdown))
				for i, e := range res.Breakdown {
					warm[i] = e.Warm
				}
				require.Equal(t, tc.wantEntryWarm, warm)
			}
		})
	}
}

func TestEvaluateRefundNeverExceedsCap(t *testing.T) {
	storage := NewStorageState()
	var trace []Instruction
	for i := 0; i < 20; i++ {
		h := common.Hash{31: byte(i)}
		storage.Seed(contract, h, uint256.NewInt(9))
		trace = append(trace, sstore(h, 0), sload(h))
	}

	for _, schedule := range []string{"reference", "berlin", "cancun"} {
		tbl := table(t, schedule)
		res, err := NewEvaluator(tbl, WithStorage(storage)).Evaluate(trace)
		require.NoError(t, err)
		require.Positive(t, res.RefundAccrued)
		require.LessOrEqual(t, res.Refund, res.Total()/tbl.Param(vm.GasKeyRefundQuotient), schedule)
		require.LessOrEqual(t, res.Refund, res.RefundAccrued, schedule)
	}
}

func TestEvaluateUnknownOpcode(t *testing.T) {
	tbl := table(t, "berlin")
	trace := []Instruction{sload(slotS), {Op: vm.ADD}, {Op: vm.PUSH0}, {Op: vm.ADD}}

	res, err := NewEvaluator(tbl).Evaluate(trace)
	require.Nil(t, res)

	var unknown *vm.UnknownOpcodeError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, vm.PUSH0, unknown.Op)
	require.ErrorContains(t, err, "instruction 2 (PUSH0)")

	_, err = NewEvaluator(tbl).Evaluate([]Instruction{{Op: 0x0c}})
	require.True(t, errors.As(err, &unknown))
}

func TestEvaluateDeterministic(t *testing.T) {
	tbl := table(t, "reference")
	storage := NewStorageState()
	storage.Seed(contract, slotT, uint256.NewInt(3))
	trace := []Instruction{
		sload(slotS),
		sstore(slotS, 5),
		sstore(slotT, 0),
		{Op: vm.MSTORE, MemOffset: 0, MemSize: 32},
		{Op: vm.KECCAK256, MemOffset: 0, MemSize: 64},
		{Op: vm.CALL, Target: addr(stranger), CallValue: true},
		{Op: vm.BALANCE, Target: addr(stranger)},
		{Op: vm.LOG1, MemOffset: 64, MemSize: 10},
		sload(slotS),
	}

	eval := NewEvaluator(tbl, WithStorage(storage))
	first, err := eval.Evaluate(trace)
	require.NoError(t, err)
	second, err := eval.Evaluate(trace)
	require.NoError(t, err)
	third, err := NewEvaluator(tbl, WithStorage(storage)).Evaluate(trace)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("re-evaluation differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, third); diff != "" {
		t.Fatalf("fresh evaluator differs (-first +third):\n%s", diff)
	}

	// The seed is never written through.
	original, current := storage.Get(contract, slotT)
	require.Equal(t, uint64(3), original.Uint64())
	require.Equal(t, uint64(3), current.Uint64())
}

func TestEvaluateDynamicCharges(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		want BreakdownEntry
	}{
		{
			name: "mstore",
			in:   Instruction{Op: vm.MSTORE, MemOffset: 0, MemSize: 32},
			want: BreakdownEntry{Base: 3, Memory: 3, Gas: 6},
		},
		{
			name: "keccak256",
			in:   Instruction{Op: vm.KECCAK256, MemOffset: 0, MemSize: 64},
			want: BreakdownEntry{Base: 30, Memory: 6, Dynamic: 12, Gas: 48},
		},
		{
			name: "calldatacopy",
			in:   Instruction{Op: vm.CALLDATACOPY, MemOffset: 0, MemSize: 100},
			want: BreakdownEntry{Base: 3, Memory: 12, Dynamic: 12, Gas: 27},
		},
		{
			name: "extcodecopy cold",
			in:   Instruction{Op: vm.EXTCODECOPY, Target: addr(stranger), MemOffset: 0, MemSize: 32},
			want: BreakdownEntry{Base: 100, Access: 2500, Memory: 3, Dynamic: 3, Gas: 2606},
		},
		{
			name: "log2",
			in:   Instruction{Op: vm.LOG2, MemOffset: 0, MemSize: 10},
			want: BreakdownEntry{Base: 375, Memory: 3, Dynamic: 2*375 + 10*8, Gas: 1208},
		},
		{
			name: "exp",
			in:   Instruction{Op: vm.EXP, Exponent: uint256.NewInt(256)},
			want: BreakdownEntry{Base: 10, Dynamic: 100, Gas: 110},
		},
		{
			name: "create2",
			in:   Instruction{Op: vm.CREATE2, MemOffset: 0, MemSize: 100},
			want: BreakdownEntry{Base: 32000, Memory: 12, Dynamic: 4*6 + 4*2, Gas: 32044},
		},
		{
			name: "create",
			in:   Instruction{Op: vm.CREATE, MemOffset: 0, MemSize: 100},
			want: BreakdownEntry{Base: 32000, Memory: 12, Dynamic: 4 * 2, Gas: 32020},
		},
		{
			name: "call with value to a new account",
			in:   Instruction{Op: vm.CALL, Target: addr(stranger), CallValue: true, NewAccount: true},
			want: BreakdownEntry{Base: 100, Access: 2500, Dynamic: 9000 + 25000, Gas: 36600},
		},
		{
			name: "staticcall into sha256",
			in: Instruction{
				Op:     vm.STATICCALL,
				Target: addr(common.BytesToAddress([]byte{0x02})),
				Input:  make([]byte, 32),
			},
			want: BreakdownEntry{Base: 100, Dynamic: 72, Gas: 172, Warm: true},
		},
		{
			name: "call with return buffer",
			in:   Instruction{Op: vm.DELEGATECALL, Target: addr(stranger), MemOffset: 0, MemSize: 64},
			want: BreakdownEntry{Base: 100, Access: 2500, Memory: 6, Gas: 2606},
		},
		{
			name: "selfdestruct to a new beneficiary",
			in:   Instruction{Op: vm.SELFDESTRUCT, Target: addr(stranger), CallValue: true, NewAccount: true},
			want: BreakdownEntry{Base: 5000, Access: 2600, Dynamic: 25000, Gas: 32600},
		},
		{
			name: "return",
			in:   Instruction{Op: vm.RETURN, MemOffset: 32, MemSize: 32},
			want: BreakdownEntry{Memory: 6, Gas: 6},
		},
	}

	tbl := table(t, "reference")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewEvaluator(tbl).Evaluate([]Instruction{tc.in})
			require.NoError(t, err)
			require.Len(t, res.Breakdown, 1)

			want := tc.want
			want.Op = tc.in.Op
			want.Name = tc.in.Op.String()
			if diff := cmp.Diff(want, res.Breakdown[0]); diff != "" {
				t.Errorf("breakdown mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, tc.want.Gas, res.GasUsed)
		})
	}
}

func TestEvaluateMemoryIsIncremental(t *testing.T) {
	trace := []Instruction{
		{Op: vm.MSTORE, MemOffset: 0, MemSize: 32},
		{Op: vm.MLOAD, MemOffset: 0, MemSize: 32},
		{Op: vm.MSTORE8, MemOffset: 1000, MemSize: 1},
		{Op: vm.MLOAD, MemOffset: 500, MemSize: 32},
	}
	res, err := NewEvaluator(table(t, "reference")).Evaluate(trace)
	require.NoError(t, err)

	total, err := vm.ExpansionCost(0, 1024)
	require.NoError(t, err)

	var memory uint64
	for _, e := range res.Breakdown {
		memory += e.Memory
	}
	require.Equal(t, total, memory)
	require.Zero(t, res.Breakdown[1].Memory)
	require.Zero(t, res.Breakdown[3].Memory)
}

func TestEvaluateCallMemoryRegion(t *testing.T) {
	// Arguments at [0, 32), return data at [64, 96): the return region
	// reaches further.
	want, err := vm.ExpansionCost(0, 96)
	require.NoError(t, err)

	res, err := NewEvaluator(table(t, "cancun")).Evaluate([]Instruction{
		{Op: vm.STATICCALL, Target: addr(stranger), MemOffset: 64, MemSize: 32},
		{Op: vm.MLOAD, MemOffset: 0, MemSize: 32},
	})
	require.NoError(t, err)
	require.Equal(t, want, res.Breakdown[0].Memory)
	require.Zero(t, res.Breakdown[1].Memory)
}

func TestEvaluateInvalidRange(t *testing.T) {
	trace := []Instruction{
		{Op: vm.MSTORE, MemOffset: 0, MemSize: 32},
		{Op: vm.MLOAD, MemOffset: math.MaxUint64, MemSize: 32},
	}
	res, err := NewEvaluator(table(t, "reference")).Evaluate(trace)
	require.Nil(t, res)

	var rangeErr *vm.InvalidRangeError
	require.True(t, errors.As(err, &rangeErr))
}

func TestStepRefundOverflow(t *testing.T) {
	tbl := table(t, "cancun")
	storage := NewStorageState()
	storage.SeedDirty(contract, slotS, uint256.NewInt(1), uint256.NewInt(0))

	// A pass whose counter lost the clearing refund of slotS.
	p := &pass{table: tbl, access: vm.NewAccessState(), memory: tbl.NewMemoryState(), storage: storage}
	in := sstore(slotS, 2)
	_, err := p.step(0, &in)

	var refundErr *vm.RefundOverflowError
	require.True(t, errors.As(err, &refundErr))
	require.Equal(t, uint64(4800), refundErr.Sub)
	require.Zero(t, refundErr.Counter)
}

func TestEvaluateSeededClearedSlot(t *testing.T) {
	tests := []struct {
		name       string
		schedule   string
		trace      []Instruction
		wantGas    uint64
		wantRemove uint64
		wantRefund uint64
		wantCapped uint64
	}{
		{
			name:       "recreate",
			schedule:   "london",
			trace:      []Instruction{sstore(slotS, 7)},
			wantGas:    2100 + 100,
			wantRemove: 4800,
		},
		{
			name:       "restore original",
			schedule:   "london",
			trace:      []Instruction{sstore(slotS, 5)},
			wantGas:    2100 + 100,
			wantRemove: 4800,
			wantRefund: 5000 - 2100 - 100,
			wantCapped: (2100 + 100) / 5,
		},
		{
			name:       "clear again",
			schedule:   "cancun",
			trace:      []Instruction{sstore(slotS, 0)},
			wantGas:    2100 + 100,
			wantRefund: 4800,
			wantCapped: (2100 + 100) / 5,
		},
		{
			name:       "untouched",
			schedule:   "london",
			trace:      []Instruction{sload(slotT)},
			wantGas:    2100,
			wantRefund: 4800,
			wantCapped: 2100 / 5,
		},
		{
			name:       "transition model",
			schedule:   "reference",
			trace:      []Instruction{sstore(slotS, 7)},
			wantGas:    20000,
			wantRefund: 4800,
			wantCapped: 20000 / 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewStorageState()
			storage.SeedDirty(contract, slotS, uint256.NewInt(5), uint256.NewInt(0))

			res, err := NewEvaluator(table(t, tt.schedule), WithStorage(storage)).Evaluate(tt.trace)
			require.NoError(t, err)
			require.Equal(t, tt.wantGas, res.GasUsed)
			require.Equal(t, tt.wantRemove, res.Breakdown[0].RefundRemoved)
			require.Equal(t, tt.wantRefund, res.RefundAccrued)
			require.Equal(t, tt.wantCapped, res.Refund)
		})
	}
}

func TestEvaluateWithAccessState(t *testing.T) {
	access := vm.NewAccessState()
	access.TouchSlot(contract, slotS)

	eval := NewEvaluator(table(t, "reference"), WithAccessState(access))
	res, err := eval.Evaluate([]Instruction{sload(slotS), sload(slotT)})
	require.NoError(t, err)
	require.Equal(t, uint64(100+2100), res.GasUsed)
	require.True(t, access.IsWarm(vm.SlotKey(contract, slotT)))

	// The caller's tracker is not reset between passes.
	res, err = eval.Evaluate([]Instruction{sload(slotT)})
	require.NoError(t, err)
	require.Equal(t, uint64(100), res.GasUsed)
}

func TestEvaluateFailureKeepsAccessState(t *testing.T) {
	access := vm.NewAccessState()
	access.TouchSlot(contract, slotS)
	precompile := vm.AddressKey(common.BytesToAddress([]byte{1}))

	eval := NewEvaluator(table(t, "reference"), WithAccessState(access))
	trace := []Instruction{sload(slotT), {Op: vm.BALANCE, Target: addr(stranger)}, {Op: 0x0c}}
	res, err := eval.Evaluate(trace)
	require.Nil(t, res)
	require.Error(t, err)

	addresses, slots := access.Len()
	require.Zero(t, addresses)
	require.Equal(t, 1, slots)
	require.False(t, access.IsWarm(vm.SlotKey(contract, slotT)))
	require.False(t, access.IsWarm(precompile))

	res, err = eval.Evaluate(trace[:2])
	require.NoError(t, err)
	require.Equal(t, uint64(2100+2600), res.GasUsed)
	require.True(t, access.IsWarm(vm.SlotKey(contract, slotT)))
	require.True(t, access.IsWarm(vm.AddressKey(stranger)))
	require.True(t, access.IsWarm(precompile))
}

func TestEvaluateWithTransaction(t *testing.T) {
	tx := &Transaction{
		From: sender,
		To:   addr(contract),
		Data: []byte{0, 1},
		AccessList: types.AccessList{
			{Address: stranger, StorageKeys: []common.Hash{slotS}},
		},
	}
	storage := NewStorageState()
	storage.Seed(contract, slotT, uint256.NewInt(1))

	trace := []Instruction{
		{Op: vm.SLOAD, Address: stranger, Slot: slotS},
		{Op: vm.BALANCE, Target: addr(contract)},
		{Op: vm.BALANCE, Target: addr(sender)},
		sstore(slotT, 0),
	}
	res, err := NewEvaluator(table(t, "reference"), WithTransaction(tx), WithStorage(storage)).Evaluate(trace)
	require.NoError(t, err)

	require.Equal(t, uint64(21000+16+4+2400+1900), res.IntrinsicGas)
	require.Equal(t, uint64(100+100+100+5000), res.GasUsed)
	require.Equal(t, res.IntrinsicGas+res.GasUsed, res.Total())
	require.Equal(t, uint64(4800), res.RefundAccrued)
	require.Equal(t, uint64(4800), res.Refund)
	require.Equal(t, res.Total()-4800, res.NetGas())
}

func TestEvaluateCalldataFloor(t *testing.T) {
	tx := &Transaction{From: sender, To: addr(contract), Data: make([]byte, 100)}
	for i := range tx.Data {
		tx.Data[i] = 0xff
	}

	res, err := NewEvaluator(table(t, "prague"), WithTransaction(tx)).Evaluate([]Instruction{{Op: vm.STOP}})
	require.NoError(t, err)
	require.Equal(t, uint64(21000+100*16), res.IntrinsicGas)
	require.Equal(t, uint64(21000+400*10), res.FloorGas)
	require.Equal(t, res.FloorGas, res.NetGas())
}

func TestByOpcode(t *testing.T) {
	res, err := NewEvaluator(table(t, "reference")).Evaluate([]Instruction{
		sload(slotS), sload(slotS), {Op: vm.ADD}, sload(slotT),
	})
	require.NoError(t, err)

	want := map[string]OpcodeStats{
		"SLOAD": {Count: 3, Gas: 2100 + 100 + 2100},
		"ADD":   {Count: 1, Gas: 3},
	}
	if diff := cmp.Diff(want, res.ByOpcode()); diff != "" {
		t.Fatalf("ByOpcode mismatch (-want +got):\n%s", diff)
	}

	order := SortedOpcodes(res.ByOpcode(), func(s OpcodeStats) uint64 { return s.Gas })
	require.Equal(t, []string{"SLOAD", "ADD"}, order)
}
