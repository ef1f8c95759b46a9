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
	"strings"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// GasParameter represents a single gas parameter with its value and description.
type GasParameter struct {
	Value       uint64 `json:"value"`
	Description string `json:"description"`
}

// GasScheduleResponse describes every opcode and parameter of a cost table.
type GasScheduleResponse struct {
	Name         string                  `json:"name"`
	StorageModel vm.StorageModel         `json:"storageModel"`
	Opcodes      map[string]GasParameter `json:"opcodes"`
	Parameters   map[string]GasParameter `json:"parameters"`
}

// paramDescriptions maps schedule parameters to their descriptions.
var paramDescriptions = map[string]string{
	// Storage
	vm.GasKeySloadCold:         "First access to a storage slot in the transaction (EIP-2929).",
	vm.GasKeySloadWarm:         "Access to a slot already touched in the transaction.",
	vm.GasKeySstoreSet:         "Writing a non-zero value to a slot that holds zero.",
	vm.GasKeySstoreReset:       "Changing a non-zero slot, including the cold slot surcharge under EIP-2200 metering.",
	vm.GasKeySstoreClearRefund: "Refund for clearing a non-zero slot to zero.",

	// Accounts and calls
	vm.GasKeyAccountCold:          "First access to an account in the transaction. Charged as the difference to the opcode's constant gas, or in full for SELFDESTRUCT.",
	vm.GasKeyCallValueXfer:        "CALL or CALLCODE that transfers a non-zero value.",
	vm.GasKeyCallNewAccount:       "CALL that sends value to an account that does not exist.",
	vm.GasKeyCreateBySelfDestruct: "SELFDESTRUCT sending a balance to an account that does not exist.",
	vm.GasKeySelfDestructRefund:   "Refund granted by SELFDESTRUCT. Zero since London.",

	// Memory and data
	vm.GasKeyMemory:        "Linear memory cost per 32-byte word.",
	vm.GasKeyMemoryQuadDiv: "Divisor of the quadratic memory term: words^2 / MEMORY_QUAD_DIV.",
	vm.GasKeyCopy:          "Per word copied by the *COPY instructions.",
	vm.GasKeyKeccak256Word: "Per word hashed by KECCAK256 and CREATE2.",
	vm.GasKeyLogTopic:      "Per topic of a LOG instruction.",
	vm.GasKeyLogData:       "Per byte of LOG data.",
	vm.GasKeyExpByte:       "Per significant byte of the EXP exponent.",
	vm.GasKeyInitCodeWord:  "Per word of init code run by CREATE and CREATE2 (EIP-3860).",

	// Accounting
	vm.GasKeyRefundQuotient: "The refund is capped at total gas divided by this value.",
	vm.GasKeyPrecompiles:    "Number of precompiled contracts active from address 0x01.",

	// Transaction
	vm.GasKeyTxBase:           "Base cost of a transaction.",
	vm.GasKeyTxCreateBase:     "Base cost of a contract creation transaction.",
	vm.GasKeyTxDataZero:       "Per zero byte of calldata.",
	vm.GasKeyTxDataNonZero:    "Per non-zero byte of calldata.",
	vm.GasKeyTxAccessListAddr: "Per address in the access list (EIP-2930).",
	vm.GasKeyTxAccessListKey:  "Per storage key in the access list (EIP-2930).",
	vm.GasKeyTxInitCodeWord:   "Per word of init code in a creation transaction.",
	vm.GasKeyTxFloorPerToken:  "Calldata floor per token, a zero byte being one token and a non-zero byte four (EIP-7623).",
	vm.GasKeyTxAuthCost:       "Per EIP-7702 authorization.",

	// Precompiles
	vm.GasKeyPCEcrec:               "ECRECOVER (0x01).",
	vm.GasKeyPCSha256Base:          "SHA256 (0x02) base cost.",
	vm.GasKeyPCSha256PerWord:       "SHA256 (0x02) per input word.",
	vm.GasKeyPCRipemd160Base:       "RIPEMD160 (0x03) base cost.",
	vm.GasKeyPCRipemd160PerWord:    "RIPEMD160 (0x03) per input word.",
	vm.GasKeyPCIdBase:              "Identity (0x04) base cost.",
	vm.GasKeyPCIdPerWord:           "Identity (0x04) per input word.",
	vm.GasKeyPCModexpMinGas:        "Lower bound of MODEXP (0x05) under EIP-2565.",
	vm.GasKeyPCBn254Add:            "BN254 point addition (0x06).",
	vm.GasKeyPCBn254Mul:            "BN254 scalar multiplication (0x07).",
	vm.GasKeyPCBn254PairingBase:    "BN254 pairing check (0x08) base cost.",
	vm.GasKeyPCBn254PairingPerPair: "BN254 pairing check (0x08) per pair.",
	vm.GasKeyPCBlake2fBase:         "BLAKE2F (0x09) base cost.",
	vm.GasKeyPCBlake2fPerRound:     "BLAKE2F (0x09) per round.",
	vm.GasKeyPCKzgPointEvaluation:  "KZG point evaluation (0x0a).",
	vm.GasKeyPCBls12G1Add:          "BLS12-381 G1 addition (0x0b).",
	vm.GasKeyPCBls12G1MsmMulGas:    "BLS12-381 G1 multi-scalar multiplication (0x0c) per point.",
	vm.GasKeyPCBls12G2Add:          "BLS12-381 G2 addition (0x0d).",
	vm.GasKeyPCBls12G2MsmMulGas:    "BLS12-381 G2 multi-scalar multiplication (0x0e) per point.",
	vm.GasKeyPCBls12PairingBase:    "BLS12-381 pairing check (0x0f) base cost.",
	vm.GasKeyPCBls12PairingPerPair: "BLS12-381 pairing check (0x0f) per pair.",
	vm.GasKeyPCBls12MapFpToG1:      "BLS12-381 map field element to G1 (0x10).",
	vm.GasKeyPCBls12MapFp2ToG2:     "BLS12-381 map extension field element to G2 (0x11).",
}

var classNotes = []struct {
	class vm.OpClass
	note  string
}{
	{vm.ClassStorageRead, "cold or warm slot access"},
	{vm.ClassStorageWrite, "the storage write transition"},
	{vm.ClassAccount, "the cold account surcharge"},
	{vm.ClassMemory, "memory expansion"},
	{vm.ClassCopy, "COPY per word"},
	{vm.ClassHash, "KECCAK256_WORD per word"},
	{vm.ClassLog, "LOG_TOPIC per topic and LOG_DATA per byte"},
	{vm.ClassExp, "EXP_BYTE per exponent byte"},
	{vm.ClassCreate, "INIT_CODE_WORD per init code word"},
	{vm.ClassCall, "value transfer, new account and precompile charges"},
}

func opcodeDescription(cl vm.OpClass) string {
	var notes []string
	for _, cn := range classNotes {
		if cl.Has(cn.class) {
			notes = append(notes, cn.note)
		}
	}
	if len(notes) == 0 {
		return "Fixed cost per operation."
	}
	return "Constant gas, plus " + strings.Join(notes, "; ") + "."
}

// GasScheduleResponseForTable returns every opcode and parameter of the table
// with its effective value and a description.
func GasScheduleResponseForTable(t *vm.CostTable) *GasScheduleResponse {
	ops := t.Opcodes()
	keys := vm.KnownKeys()

	response := &GasScheduleResponse{
		Name:         t.Name(),
		StorageModel: t.StorageModel(),
		Opcodes:      make(map[string]GasParameter, len(ops)),
		Parameters:   make(map[string]GasParameter, len(keys)),
	}

	for _, op := range ops {
		gas, _ := t.BaseCost(op)
		cl, _ := t.Class(op)
		response.Opcodes[op.String()] = GasParameter{
			Value:       gas,
			Description: opcodeDescription(cl),
		}
	}

	for _, name := range keys {
		desc := paramDescriptions[name]
		if desc == "" {
			desc = "Gas parameter " + name + "."
		}
		response.Parameters[name] = GasParameter{
			Value:       t.Param(name),
			Description: desc,
		}
	}

	return response
}
