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
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestClassifyWrite(t *testing.T) {
	require.Equal(t, WriteNoop, ClassifyWrite(u(0), u(0)))
	require.Equal(t, WriteNoop, ClassifyWrite(u(5), u(5)))
	require.Equal(t, WriteSet, ClassifyWrite(u(0), u(5)))
	require.Equal(t, WriteReset, ClassifyWrite(u(5), u(7)))
	require.Equal(t, WriteClear, ClassifyWrite(u(5), u(0)))
	require.Equal(t, "clear", WriteClear.String())
}

func TestTransitionWriteCost(t *testing.T) {
	table := mustTable(t, "reference")

	tests := []struct {
		name          string
		current, next uint64
		cold          bool
		want          StorageCost
	}{
		{"noop warm", 5, 5, false, StorageCost{Gas: 100}},
		{"noop cold", 5, 5, true, StorageCost{Gas: 2100}},
		{"set", 0, 5, false, StorageCost{Gas: 20000}},
		{"set cold", 0, 5, true, StorageCost{Gas: 20000}},
		{"reset", 5, 7, false, StorageCost{Gas: 5000}},
		{"clear", 5, 0, true, StorageCost{Gas: 5000, RefundAdd: 4800}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// The original value plays no part in this model.
			for _, original := range []uint64{0, 5, 9} {
				got := table.StorageWriteCost(u(original), u(tc.current), u(tc.next), tc.cold)
				require.Equal(t, tc.want, got, "original %d", original)
			}
		})
	}
}

// Every (original, current, new) combination over {0, 1, 2}, priced by
// EIP-2200 with EIP-2929 and EIP-3529 on a warm slot.
func TestNetMeteredWriteCostLondon(t *testing.T) {
	table := mustTable(t, "london")

	tests := []struct {
		original, current, next uint64
		want                    StorageCost
	}{
		{0, 0, 0, StorageCost{Gas: 100}},
		{0, 0, 1, StorageCost{Gas: 20000}},
		{0, 1, 0, StorageCost{Gas: 100, RefundAdd: 19900}},
		{0, 1, 2, StorageCost{Gas: 100}},
		{0, 1, 1, StorageCost{Gas: 100}},
		{1, 0, 0, StorageCost{Gas: 100}},
		{1, 0, 1, StorageCost{Gas: 100, RefundAdd: 2800, RefundSub: 4800}},
		{1, 0, 2, StorageCost{Gas: 100, RefundSub: 4800}},
		{1, 1, 0, StorageCost{Gas: 2900, RefundAdd: 4800}},
		{1, 1, 1, StorageCost{Gas: 100}},
		{1, 1, 2, StorageCost{Gas: 2900}},
		{1, 2, 0, StorageCost{Gas: 100, RefundAdd: 4800}},
		{1, 2, 1, StorageCost{Gas: 100, RefundAdd: 2800}},
		{1, 2, 3, StorageCost{Gas: 100}},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d-%d-%d", tc.original, tc.current, tc.next), func(t *testing.T) {
			got := table.StorageWriteCost(u(tc.original), u(tc.current), u(tc.next), false)
			require.Equal(t, tc.want, got)

			cold := table.StorageWriteCost(u(tc.original), u(tc.current), u(tc.next), true)
			want := tc.want
			want.Gas += 2100
			require.Equal(t, want, cold)
		})
	}
}

func TestNetMeteredWriteCostBerlinRefund(t *testing.T) {
	table := mustTable(t, "berlin")

	got := table.StorageWriteCost(u(1), u(1), u(0), true)
	require.Equal(t, StorageCost{Gas: 2100 + 2900, RefundAdd: 15000}, got)
}

func TestStorageReadCost(t *testing.T) {
	table := mustTable(t, "reference")
	require.Equal(t, uint64(2100), table.StorageReadCost(true))
	require.Equal(t, uint64(100), table.StorageReadCost(false))
}
