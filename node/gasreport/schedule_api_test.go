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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

func TestEveryParameterHasADescription(t *testing.T) {
	for _, key := range vm.KnownKeys() {
		require.NotEmpty(t, paramDescriptions[key], key)
	}
}

func TestGasScheduleResponseForTable(t *testing.T) {
	table, err := ResolveTable("london", "", map[string]uint64{"ADD": 4})
	require.NoError(t, err)

	resp := GasScheduleResponseForTable(table)
	require.Equal(t, "london", resp.Name)
	require.Equal(t, vm.StorageModelNetMetered, resp.StorageModel)
	require.Len(t, resp.Opcodes, len(table.Opcodes()))
	require.Len(t, resp.Parameters, len(vm.KnownKeys()))

	require.Equal(t, GasParameter{Value: 4, Description: "Fixed cost per operation."}, resp.Opcodes["ADD"])
	require.Equal(t, uint64(4800), resp.Parameters[vm.GasKeySstoreClearRefund].Value)
	require.Equal(t, uint64(5), resp.Parameters[vm.GasKeyRefundQuotient].Value)

	_, ok := resp.Opcodes["PUSH0"]
	require.False(t, ok, "PUSH0 arrives with shanghai")
}

func TestOpcodeDescription(t *testing.T) {
	tests := []struct {
		name  string
		class vm.OpClass
		want  string
	}{
		{"none", 0, "Fixed cost per operation."},
		{"storage read", vm.ClassStorageRead, "Constant gas, plus cold or warm slot access."},
		{"keccak", vm.ClassMemory | vm.ClassHash, "Constant gas, plus memory expansion; KECCAK256_WORD per word."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, opcodeDescription(tt.class))
		})
	}
}
