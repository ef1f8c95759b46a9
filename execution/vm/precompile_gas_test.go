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
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func precompileAddr(i byte) common.Address {
	return common.BytesToAddress([]byte{i})
}

// modexpInput builds a MODEXP call with the given lengths and exponent bytes.
func modexpInput(baseLen, expLen, modLen uint64, exp []byte) []byte {
	input := make([]byte, 96)
	uint256.NewInt(baseLen).WriteToSlice(input[0:32])
	uint256.NewInt(expLen).WriteToSlice(input[32:64])
	uint256.NewInt(modLen).WriteToSlice(input[64:96])
	input = append(input, make([]byte, baseLen)...)
	input = append(input, exp...)
	return input
}

func TestPrecompileGas(t *testing.T) {
	blake := make([]byte, 213)
	binary.BigEndian.PutUint32(blake, 12)

	highBit := make([]byte, 32)
	highBit[0] = 0x80
	longExp := make([]byte, 64)
	longExp[31] = 0x01

	tests := []struct {
		name  string
		addr  byte
		input []byte
		want  uint64
	}{
		{"ecrecover", 0x01, nil, 3000},
		{"sha256 empty", 0x02, nil, 60},
		{"sha256 two words", 0x02, make([]byte, 33), 60 + 2*12},
		{"ripemd160", 0x03, make([]byte, 32), 600 + 120},
		{"identity", 0x04, make([]byte, 64), 15 + 2*3},
		{"modexp floor", 0x05, modexpInput(1, 1, 1, []byte{3}), 200},
		{"modexp high bit exponent", 0x05, modexpInput(64, 32, 64, highBit), 8 * 8 * 255 / 3},
		{"modexp long exponent", 0x05, modexpInput(32, 64, 32, longExp), 4 * 4 * 256 / 3},
		{"bn254 add", 0x06, nil, 150},
		{"bn254 mul", 0x07, nil, 6000},
		{"bn254 pairing", 0x08, make([]byte, 384), 45000 + 2*34000},
		{"blake2f", 0x09, blake, 12},
		{"blake2f malformed", 0x09, blake[:212], 0},
		{"point evaluation", 0x0a, nil, 50000},
	}

	table := mustTable(t, "cancun")
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gas, ok := table.PrecompileGas(precompileAddr(tc.addr), tc.input)
			require.True(t, ok)
			require.Equal(t, tc.want, gas)
		})
	}
}

func TestPrecompileActivation(t *testing.T) {
	tests := []struct {
		schedule string
		addr     byte
		active   bool
	}{
		{"berlin", 0x09, true},
		{"berlin", 0x0a, false},
		{"cancun", 0x0a, true},
		{"cancun", 0x0b, false},
		{"prague", 0x11, true},
		{"prague", 0x12, false},
		{"prague", 0x00, false},
	}
	for _, tc := range tests {
		table := mustTable(t, tc.schedule)
		require.Equal(t, tc.active, table.IsPrecompile(precompileAddr(tc.addr)), "%s %#x", tc.schedule, tc.addr)
	}

	table := mustTable(t, "prague")
	notPrecompile := common.HexToAddress("0x0100000000000000000000000000000000000001")
	_, ok := table.PrecompileGas(notPrecompile, nil)
	require.False(t, ok)

	name, ok := table.PrecompileName(precompileAddr(0x0f))
	require.True(t, ok)
	require.Equal(t, "BLS12_PAIRING_CHECK", name)

	gas, ok := table.PrecompileGas(precompileAddr(0x0f), make([]byte, 2*384))
	require.True(t, ok)
	require.Equal(t, uint64(37700+2*32600), gas)
}

func TestPrecompileOverrides(t *testing.T) {
	s, err := LoadSchedule("cancun")
	require.NoError(t, err)
	table := MustCostTable(s.WithOverrides(map[string]uint64{
		GasKeyPCEcrec:        1000,
		GasKeyPCSha256Base:   10,
		GasKeyPCModexpMinGas: 500,
	}))

	gas, _ := table.PrecompileGas(precompileAddr(0x01), nil)
	require.Equal(t, uint64(1000), gas)

	gas, _ = table.PrecompileGas(precompileAddr(0x02), make([]byte, 32))
	require.Equal(t, uint64(10+12), gas)

	gas, _ = table.PrecompileGas(precompileAddr(0x05), modexpInput(1, 1, 1, []byte{3}))
	require.Equal(t, uint64(500), gas)
}
