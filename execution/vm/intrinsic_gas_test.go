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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntrinsicGas(t *testing.T) {
	tests := []struct {
		name           string
		schedule       string
		data           []byte
		accessList     uint64
		storageKeys    uint64
		create         bool
		authorizations uint64
		wantGas        uint64
		wantFloor      uint64
	}{
		{
			name:      "plain transfer",
			schedule:  "cancun",
			wantGas:   21000,
			wantFloor: 21000,
		},
		{
			name:      "calldata",
			schedule:  "cancun",
			data:      []byte{0, 1, 0, 2},
			wantGas:   21000 + 2*16 + 2*4,
			wantFloor: 21000,
		},
		{
			name:      "calldata floor",
			schedule:  "prague",
			data:      []byte{0, 1, 0, 2},
			wantGas:   21000 + 2*16 + 2*4,
			wantFloor: 21000 + (4+3*2)*10,
		},
		{
			name:      "create with init code",
			schedule:  "shanghai",
			data:      make([]byte, 33),
			create:    true,
			wantGas:   53000 + 33*4 + 2*2,
			wantFloor: 21000,
		},
		{
			name:      "create before init code metering",
			schedule:  "london",
			data:      make([]byte, 33),
			create:    true,
			wantGas:   53000 + 33*4,
			wantFloor: 21000,
		},
		{
			name:        "access list",
			schedule:    "berlin",
			accessList:  2,
			storageKeys: 3,
			wantGas:     21000 + 2*2400 + 3*1900,
			wantFloor:   21000,
		},
		{
			name:           "authorizations",
			schedule:       "prague",
			authorizations: 2,
			wantGas:        21000 + 2*25000,
			wantFloor:      21000,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			table := mustTable(t, tc.schedule)
			gas, floor, err := IntrinsicGas(table, tc.data, tc.accessList, tc.storageKeys, tc.create, tc.authorizations)
			require.NoError(t, err)
			require.Equal(t, tc.wantGas, gas)
			require.Equal(t, tc.wantFloor, floor)
		})
	}
}

func TestIntrinsicGasOverflow(t *testing.T) {
	s, err := LoadSchedule("cancun")
	require.NoError(t, err)
	table := MustCostTable(s.WithOverrides(map[string]uint64{GasKeyTxAccessListKey: 1 << 62}))

	_, _, err = IntrinsicGas(table, nil, 0, 8, false, 0)
	require.ErrorIs(t, err, ErrGasUintOverflow)
}
