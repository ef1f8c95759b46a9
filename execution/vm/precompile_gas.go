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
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// Precompile gas key constants.
// Fixed-gas precompiles use PC_<name> as a single total key.
// Variable-gas precompiles use PC_<name>_<param> for each formula parameter.
const (
	GasKeyPCEcrec              = "PC_ECREC"
	GasKeyPCBn254Add           = "PC_BN254_ADD"
	GasKeyPCBn254Mul           = "PC_BN254_MUL"
	GasKeyPCKzgPointEvaluation = "PC_KZG_POINT_EVALUATION"
	GasKeyPCBls12G1Add         = "PC_BLS12_G1ADD"
	GasKeyPCBls12G2Add         = "PC_BLS12_G2ADD"
	GasKeyPCBls12MapFpToG1     = "PC_BLS12_MAP_FP_TO_G1"
	GasKeyPCBls12MapFp2ToG2    = "PC_BLS12_MAP_FP2_TO_G2"

	GasKeyPCSha256Base    = "PC_SHA256_BASE"
	GasKeyPCSha256PerWord = "PC_SHA256_PER_WORD"

	GasKeyPCRipemd160Base    = "PC_RIPEMD160_BASE"
	GasKeyPCRipemd160PerWord = "PC_RIPEMD160_PER_WORD"

	GasKeyPCIdBase    = "PC_ID_BASE"
	GasKeyPCIdPerWord = "PC_ID_PER_WORD"

	GasKeyPCModexpMinGas = "PC_MODEXP_MIN_GAS"

	GasKeyPCBn254PairingBase    = "PC_BN254_PAIRING_BASE"
	GasKeyPCBn254PairingPerPair = "PC_BN254_PAIRING_PER_PAIR"

	GasKeyPCBlake2fBase     = "PC_BLAKE2F_BASE"
	GasKeyPCBlake2fPerRound = "PC_BLAKE2F_PER_ROUND"

	GasKeyPCBls12PairingBase    = "PC_BLS12_PAIRING_CHECK_BASE"
	GasKeyPCBls12PairingPerPair = "PC_BLS12_PAIRING_CHECK_PER_PAIR"

	GasKeyPCBls12G1MsmMulGas = "PC_BLS12_G1MSM_MUL_GAS"
	GasKeyPCBls12G2MsmMulGas = "PC_BLS12_G2MSM_MUL_GAS"
)

// EIP-2537 prices as activated in Prague.
const (
	bls12G1AddGas          = 375
	bls12G2AddGas          = 600
	bls12G1MulGas          = 12000
	bls12G2MulGas          = 22500
	bls12PairingBaseGas    = 37700
	bls12PairingPerPairGas = 32600
	bls12MapFpToG1Gas      = 5500
	bls12MapFp2ToG2Gas     = 23800
)

func init() {
	registerKeys(map[string]uint64{
		GasKeyPCEcrec:               params.EcrecoverGas,
		GasKeyPCBn254Add:            params.Bn256AddGasIstanbul,
		GasKeyPCBn254Mul:            params.Bn256ScalarMulGasIstanbul,
		GasKeyPCKzgPointEvaluation:  params.BlobTxPointEvaluationPrecompileGas,
		GasKeyPCBls12G1Add:          bls12G1AddGas,
		GasKeyPCBls12G2Add:          bls12G2AddGas,
		GasKeyPCBls12MapFpToG1:      bls12MapFpToG1Gas,
		GasKeyPCBls12MapFp2ToG2:     bls12MapFp2ToG2Gas,
		GasKeyPCSha256Base:          params.Sha256BaseGas,
		GasKeyPCSha256PerWord:       params.Sha256PerWordGas,
		GasKeyPCRipemd160Base:       params.Ripemd160BaseGas,
		GasKeyPCRipemd160PerWord:    params.Ripemd160PerWordGas,
		GasKeyPCIdBase:              params.IdentityBaseGas,
		GasKeyPCIdPerWord:           params.IdentityPerWordGas,
		GasKeyPCModexpMinGas:        200,
		GasKeyPCBn254PairingBase:    params.Bn256PairingBaseGasIstanbul,
		GasKeyPCBn254PairingPerPair: params.Bn256PairingPerPointGasIstanbul,
		GasKeyPCBlake2fBase:         0,
		GasKeyPCBlake2fPerRound:     1,
		GasKeyPCBls12PairingBase:    bls12PairingBaseGas,
		GasKeyPCBls12PairingPerPair: bls12PairingPerPairGas,
		GasKeyPCBls12G1MsmMulGas:    bls12G1MulGas,
		GasKeyPCBls12G2MsmMulGas:    bls12G2MulGas,
	})
}

// precompileNames is indexed by the last byte of the precompile address.
var precompileNames = [...]string{
	0x01: "ECREC",
	0x02: "SHA256",
	0x03: "RIPEMD160",
	0x04: "ID",
	0x05: "MODEXP",
	0x06: "BN254_ADD",
	0x07: "BN254_MUL",
	0x08: "BN254_PAIRING",
	0x09: "BLAKE2F",
	0x0a: "KZG_POINT_EVALUATION",
	0x0b: "BLS12_G1ADD",
	0x0c: "BLS12_G1MSM",
	0x0d: "BLS12_G2ADD",
	0x0e: "BLS12_G2MSM",
	0x0f: "BLS12_PAIRING_CHECK",
	0x10: "BLS12_MAP_FP_TO_G1",
	0x11: "BLS12_MAP_FP2_TO_G2",
}

// PrecompileName returns the name of the precompile at addr if it is active
// under the table's PRECOMPILES count.
func (t *CostTable) PrecompileName(addr common.Address) (string, bool) {
	for _, b := range addr[:common.AddressLength-1] {
		if b != 0 {
			return "", false
		}
	}
	idx := uint64(addr[common.AddressLength-1])
	if idx == 0 || idx > t.Param(GasKeyPrecompiles) || idx >= uint64(len(precompileNames)) {
		return "", false
	}
	return precompileNames[idx], true
}

// IsPrecompile reports whether addr is an active precompile.
func (t *CostTable) IsPrecompile(addr common.Address) bool {
	_, ok := t.PrecompileName(addr)
	return ok
}

// PrecompileGas returns the execution gas of calling the precompile at addr
// with input. ok is false when addr is not an active precompile.
func (t *CostTable) PrecompileGas(addr common.Address, input []byte) (gas uint64, ok bool) {
	name, ok := t.PrecompileName(addr)
	if !ok {
		return 0, false
	}
	return precompileGas(t, name, input), true
}

func precompileGas(t *CostTable, name string, input []byte) uint64 {
	switch name {
	// Fixed-gas precompiles: single total key
	case "ECREC", "BN254_ADD", "BN254_MUL", "BLS12_G1ADD", "BLS12_G2ADD",
		"BLS12_MAP_FP_TO_G1", "BLS12_MAP_FP2_TO_G2", "KZG_POINT_EVALUATION":
		return t.Param("PC_" + name)

	// Variable-gas precompiles: formula parameters
	case "SHA256":
		return precompileBasePerWord(t, GasKeyPCSha256Base, GasKeyPCSha256PerWord, input)
	case "RIPEMD160":
		return precompileBasePerWord(t, GasKeyPCRipemd160Base, GasKeyPCRipemd160PerWord, input)
	case "ID":
		return precompileBasePerWord(t, GasKeyPCIdBase, GasKeyPCIdPerWord, input)
	case "MODEXP":
		return precompileModexp(t, input)
	case "BN254_PAIRING":
		return precompileBasePerPair(t, GasKeyPCBn254PairingBase, GasKeyPCBn254PairingPerPair, input, 192)
	case "BLAKE2F":
		return precompileBlake2f(t, input)
	case "BLS12_PAIRING_CHECK":
		return precompileBasePerPair(t, GasKeyPCBls12PairingBase, GasKeyPCBls12PairingPerPair, input, 384)
	case "BLS12_G1MSM":
		return precompileMsm(t, GasKeyPCBls12G1MsmMulGas, input, 160)
	case "BLS12_G2MSM":
		return precompileMsm(t, GasKeyPCBls12G2MsmMulGas, input, 288)
	}

	return 0
}

// precompileBasePerWord computes base + perWord * ceil(len(input)/32).
// Used by SHA256, RIPEMD160, IDENTITY.
func precompileBasePerWord(t *CostTable, baseKey, perWordKey string, input []byte) uint64 {
	words := toWordSize(uint64(len(input)))
	return t.Param(baseKey) + t.Param(perWordKey)*words
}

// precompileBasePerPair computes base + perPair * (len(input) / pairSize).
func precompileBasePerPair(t *CostTable, baseKey, perPairKey string, input []byte, pairSize int) uint64 {
	pairs := uint64(len(input) / pairSize)
	return t.Param(baseKey) + t.Param(perPairKey)*pairs
}

// precompileBlake2f computes base + perRound * rounds, where rounds is read
// from input[0:4]. Malformed input fails before any work is charged.
func precompileBlake2f(t *CostTable, input []byte) uint64 {
	if len(input) != 213 {
		return 0
	}
	rounds := uint64(binary.BigEndian.Uint32(input[0:4]))
	return t.Param(GasKeyPCBlake2fBase) + t.Param(GasKeyPCBlake2fPerRound)*rounds
}

// precompileMsm computes k * mulGas for k points.
// TODO: apply the EIP-2537 MSM discount table; without it this is an upper
// bound for k > 1.
func precompileMsm(t *CostTable, mulGasKey string, input []byte, pointSize int) uint64 {
	k := uint64(len(input) / pointSize)
	return k * t.Param(mulGasKey)
}

// precompileModexp implements the EIP-2565 pricing formula with the
// PC_MODEXP_MIN_GAS floor.
func precompileModexp(t *CostTable, input []byte) uint64 {
	header := rightPad(input, 96)
	baseLen := new(uint256.Int).SetBytes(header[0:32])
	expLen := new(uint256.Int).SetBytes(header[32:64])
	modLen := new(uint256.Int).SetBytes(header[64:96])
	minGas := t.Param(GasKeyPCModexpMinGas)

	// Lengths beyond 32 bits are unpayable.
	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() ||
		baseLen.Uint64() > math.MaxUint32 || expLen.Uint64() > math.MaxUint32 || modLen.Uint64() > math.MaxUint32 {
		return math.MaxUint64
	}
	bLen, eLen, mLen := baseLen.Uint64(), expLen.Uint64(), modLen.Uint64()

	// The first 32 bytes of the exponent decide its adjusted length.
	var expHead uint256.Int
	if uint64(len(input)) > 96+bLen {
		body := input[96+bLen:]
		headLen := min(eLen, 32)
		expHead.SetBytes(rightPad(body, int(headLen))[:headLen])
	}

	var adjExpLen uint64
	if bitLen := uint64(expHead.BitLen()); bitLen > 0 {
		adjExpLen = bitLen - 1
	}
	if eLen > 32 {
		adjExpLen += 8 * (eLen - 32)
	}
	adjExpLen = max(adjExpLen, 1)

	words := (max(bLen, mLen) + 7) / 8
	complexity := new(uint256.Int).Mul(uint256.NewInt(words), uint256.NewInt(words))
	gas := new(uint256.Int).Mul(complexity, uint256.NewInt(adjExpLen))
	gas.Div(gas, uint256.NewInt(3))
	if !gas.IsUint64() {
		return math.MaxUint64
	}
	return max(gas.Uint64(), minGas)
}

// rightPad returns data extended with zero bytes to at least n bytes.
func rightPad(data []byte, n int) []byte {
	if len(data) >= n {
		return data
	}
	padded := make([]byte, n)
	copy(padded, data)
	return padded
}
