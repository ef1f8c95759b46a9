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
	"github.com/ethereum/go-ethereum/params"
)

// Intrinsic gas keys.
const (
	GasKeyTxBase           = "TX_BASE"
	GasKeyTxCreateBase     = "TX_CREATE_BASE"
	GasKeyTxDataZero       = "TX_DATA_ZERO"
	GasKeyTxDataNonZero    = "TX_DATA_NONZERO"
	GasKeyTxAccessListAddr = "TX_ACCESS_LIST_ADDR"
	GasKeyTxAccessListKey  = "TX_ACCESS_LIST_KEY"
	GasKeyTxInitCodeWord   = "TX_INIT_CODE_WORD"
	GasKeyTxFloorPerToken  = "TX_FLOOR_PER_TOKEN"
	GasKeyTxAuthCost       = "TX_AUTH_COST"
)

// Defaults follow Cancun: no calldata floor and no authorizations yet.
func init() {
	registerKeys(map[string]uint64{
		GasKeyTxBase:           params.TxGas,
		GasKeyTxCreateBase:     params.TxGasContractCreation,
		GasKeyTxDataZero:       params.TxDataZeroGas,
		GasKeyTxDataNonZero:    params.TxDataNonZeroGasEIP2028,
		GasKeyTxAccessListAddr: params.TxAccessListAddressGas,
		GasKeyTxAccessListKey:  params.TxAccessListStorageKeyGas,
		GasKeyTxInitCodeWord:   params.InitCodeWordGas,
		GasKeyTxFloorPerToken:  0,
		GasKeyTxAuthCost:       0,
	})
}

// IntrinsicKeys lists the intrinsic gas parameters.
var IntrinsicKeys = []string{
	GasKeyTxBase, GasKeyTxCreateBase, GasKeyTxDataZero, GasKeyTxDataNonZero,
	GasKeyTxAccessListAddr, GasKeyTxAccessListKey, GasKeyTxInitCodeWord,
	GasKeyTxFloorPerToken, GasKeyTxAuthCost,
}

// HasIntrinsicOverrides returns true if any intrinsic gas keys are set.
func (g *GasSchedule) HasIntrinsicOverrides() bool {
	if g == nil || g.Overrides == nil {
		return false
	}

	for _, key := range IntrinsicKeys {
		if _, ok := g.Overrides[key]; ok {
			return true
		}
	}

	return false
}

// IntrinsicGas computes the gas a transaction pays before its first
// instruction, and the EIP-7623 calldata floor it must pay at minimum. A zero
// TX_FLOOR_PER_TOKEN leaves the floor at the base cost, which never binds.
func IntrinsicGas(
	t *CostTable,
	data []byte,
	accessListLen, storageKeysLen uint64,
	isContractCreation bool,
	authorizationsLen uint64,
) (gas uint64, floorGas uint64, err error) {
	// Set the starting gas for the raw transaction
	if isContractCreation {
		gas = t.Param(GasKeyTxCreateBase)
	} else {
		gas = t.Param(GasKeyTxBase)
	}
	floorGas = t.Param(GasKeyTxBase)

	var overflow bool
	add := func(n, per uint64) {
		if overflow {
			return
		}
		var product uint64
		if product, overflow = math.SafeMul(n, per); overflow {
			return
		}
		gas, overflow = math.SafeAdd(gas, product)
	}

	// Bump the required gas by the amount of transactional data
	dataLen := uint64(len(data))
	if dataLen > 0 {
		// Zero and non-zero bytes are priced differently
		var nz uint64
		for _, b := range data {
			if b != 0 {
				nz++
			}
		}
		add(nz, t.Param(GasKeyTxDataNonZero))
		add(dataLen-nz, t.Param(GasKeyTxDataZero))

		if isContractCreation {
			add(toWordSize(dataLen), t.Param(GasKeyTxInitCodeWord))
		}

		tokenLen := dataLen + 3*nz
		dataGas, mulOverflow := math.SafeMul(tokenLen, t.Param(GasKeyTxFloorPerToken))
		if mulOverflow {
			return 0, 0, ErrGasUintOverflow
		}
		if floorGas, mulOverflow = math.SafeAdd(floorGas, dataGas); mulOverflow {
			return 0, 0, ErrGasUintOverflow
		}
	}

	add(accessListLen, t.Param(GasKeyTxAccessListAddr))
	add(storageKeysLen, t.Param(GasKeyTxAccessListKey))
	add(authorizationsLen, t.Param(GasKeyTxAuthCost))

	if overflow {
		return 0, 0, ErrGasUintOverflow
	}
	return gas, floorGas, nil
}
