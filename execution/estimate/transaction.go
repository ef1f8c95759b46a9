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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ethpandaops/gasestimate/execution/vm"
)

// Transaction is the envelope of a trace. When given, the evaluator charges
// intrinsic gas and applies the transaction-start warming rules.
type Transaction struct {
	From common.Address
	// To is nil for contract creation.
	To             *common.Address
	Data           []byte
	AccessList     types.AccessList
	Authorizations uint64
	// Coinbase is warmed at start when set (EIP-3651).
	Coinbase *common.Address
}

// IsCreate reports whether the transaction deploys a contract.
func (tx *Transaction) IsCreate() bool { return tx.To == nil }

// IntrinsicGas returns the intrinsic gas and the calldata floor of tx.
func (tx *Transaction) IntrinsicGas(table *vm.CostTable) (gas, floor uint64, err error) {
	return vm.IntrinsicGas(
		table,
		tx.Data,
		uint64(len(tx.AccessList)),
		uint64(tx.AccessList.StorageKeys()),
		tx.IsCreate(),
		tx.Authorizations,
	)
}

func (tx *Transaction) warm(access *vm.AccessState) {
	access.PrePopulate(tx.From, tx.To, tx.AccessList)
	if tx.Coinbase != nil {
		access.TouchAddress(*tx.Coinbase)
	}
}
