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
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

// perWord returns words(size) * gasKey's value. Sizes past the largest
// addressable memory are rejected.
func (t *CostTable) perWord(key string, size uint64) (uint64, error) {
	if size > maxMemorySize {
		return 0, ErrGasUintOverflow
	}
	gas, overflow := math.SafeMul(toWordSize(size), t.Param(key))
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// CopyGas is the per-word charge of CALLDATACOPY, CODECOPY, EXTCODECOPY,
// RETURNDATACOPY and MCOPY.
func (t *CostTable) CopyGas(size uint64) (uint64, error) {
	return t.perWord(GasKeyCopy, size)
}

// HashGas is the per-word charge of KECCAK256 and of hashing CREATE2 init code.
func (t *CostTable) HashGas(size uint64) (uint64, error) {
	return t.perWord(GasKeyKeccak256Word, size)
}

// InitCodeGas is the EIP-3860 per-word charge of CREATE and CREATE2.
func (t *CostTable) InitCodeGas(size uint64) (uint64, error) {
	return t.perWord(GasKeyInitCodeWord, size)
}

// LogGas is the topic and data charge of a LOGn instruction.
func (t *CostTable) LogGas(topics, size uint64) (uint64, error) {
	gas, overflow := math.SafeMul(topics, t.Param(GasKeyLogTopic))
	if overflow {
		return 0, ErrGasUintOverflow
	}
	dataGas, overflow := math.SafeMul(size, t.Param(GasKeyLogData))
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = math.SafeAdd(gas, dataGas); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// ExpGas is the per-byte charge of EXP's exponent. A nil exponent is zero.
func (t *CostTable) ExpGas(exponent *uint256.Int) (uint64, error) {
	if exponent == nil {
		return 0, nil
	}
	expByteLen := uint64((exponent.BitLen() + 7) / 8)
	gas, overflow := math.SafeMul(expByteLen, t.Param(GasKeyExpByte))
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// AccountAccessGas returns the EIP-2929 surcharge for touching a cold account.
// The constant gas of account opcodes already covers a warm access, so the
// surcharge is ACCOUNT_COLD less that base. SELFDESTRUCT has no warm price in
// its base and pays the full cold cost.
func (t *CostTable) AccountAccessGas(op OpCode, base uint64, cold bool) uint64 {
	if !cold {
		return 0
	}
	if op == SELFDESTRUCT {
		return t.Param(GasKeyAccountCold)
	}
	return subFloor(t.Param(GasKeyAccountCold), base)
}

// CallGas returns the value transfer and account creation charges of a
// call-family instruction. Only CALL can create an account, and only when it
// carries value.
func (t *CostTable) CallGas(op OpCode, transfersValue, newAccount bool) uint64 {
	var gas uint64
	if transfersValue && (op == CALL || op == CALLCODE) {
		gas += t.Param(GasKeyCallValueXfer)
	}
	if op == CALL && transfersValue && newAccount {
		gas += t.Param(GasKeyCallNewAccount)
	}
	return gas
}

// SelfDestructGas returns the beneficiary creation charge and the refund of a
// SELFDESTRUCT. A beneficiary is only created when the destroyed contract
// holds a balance.
func (t *CostTable) SelfDestructGas(hasBalance, newAccount bool) (gas, refund uint64) {
	if hasBalance && newAccount {
		gas = t.Param(GasKeyCreateBySelfDestruct)
	}
	return gas, t.Param(GasKeySelfDestructRefund)
}
