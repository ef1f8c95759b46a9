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

func TestOpCodeNames(t *testing.T) {
	tests := []struct {
		name string
		op   OpCode
	}{
		{"STOP", STOP},
		{"KECCAK256", KECCAK256},
		{"SHA3", KECCAK256},
		{"PREVRANDAO", DIFFICULTY},
		{"PUSH0", PUSH0},
		{"PUSH1", PUSH1},
		{"PUSH32", PUSH32},
		{"DUP16", DUP16},
		{"SWAP1", SWAP1},
		{"LOG4", LOG4},
		{"SELFDESTRUCT", SELFDESTRUCT},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			op, ok := OpCodeFromString(tc.name)
			require.True(t, ok)
			require.Equal(t, tc.op, op)
		})
	}

	_, ok := OpCodeFromString("PUSH33")
	require.False(t, ok)
}

func TestOpCodeString(t *testing.T) {
	require.Equal(t, "PUSH17", OpCode(0x70).String())
	require.Equal(t, "SWAP16", OpCode(0x9f).String())
	require.Equal(t, "opcode 0xef not defined", OpCode(0xef).String())
	require.False(t, OpCode(0xef).IsDefined())
	require.True(t, MCOPY.IsDefined())
}

func TestLogTopics(t *testing.T) {
	require.Equal(t, uint64(0), LOG0.LogTopics())
	require.Equal(t, uint64(3), LOG3.LogTopics())
	require.Equal(t, uint64(0), CALL.LogTopics())
}
