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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AccessKey identifies something that can be warmed: an account, or a storage
// slot of an account. Slot keys are independent of their account's key.
type AccessKey struct {
	Address common.Address
	Slot    common.Hash
	HasSlot bool
}

// AddressKey returns the access key of an account.
func AddressKey(addr common.Address) AccessKey {
	return AccessKey{Address: addr}
}

// SlotKey returns the access key of a storage slot.
func SlotKey(addr common.Address, slot common.Hash) AccessKey {
	return AccessKey{Address: addr, Slot: slot, HasSlot: true}
}

type slotRef struct {
	addr common.Address
	slot common.Hash
}

// AccessState tracks the EIP-2929 warm sets of a single transaction. It is not
// safe for concurrent use; every evaluation owns its own instance.
type AccessState struct {
	addresses mapset.Set[common.Address]
	slots     mapset.Set[slotRef]
}

// NewAccessState returns an empty tracker.
func NewAccessState() *AccessState {
	return &AccessState{
		addresses: mapset.NewThreadUnsafeSet[common.Address](),
		slots:     mapset.NewThreadUnsafeSet[slotRef](),
	}
}

// Touch marks key as warm and reports whether it already was.
func (a *AccessState) Touch(key AccessKey) (alreadyWarm bool) {
	if key.HasSlot {
		return !a.slots.Add(slotRef{key.Address, key.Slot})
	}
	return !a.addresses.Add(key.Address)
}

// TouchAddress marks an account as warm and reports whether it already was.
func (a *AccessState) TouchAddress(addr common.Address) bool {
	return a.Touch(AddressKey(addr))
}

// TouchSlot marks a storage slot as warm and reports whether it already was.
func (a *AccessState) TouchSlot(addr common.Address, slot common.Hash) bool {
	return a.Touch(SlotKey(addr, slot))
}

// IsWarm reports whether key has been touched, without touching it.
func (a *AccessState) IsWarm(key AccessKey) bool {
	if key.HasSlot {
		return a.slots.Contains(slotRef{key.Address, key.Slot})
	}
	return a.addresses.Contains(key.Address)
}

// Reset clears both warm sets.
func (a *AccessState) Reset() {
	a.addresses.Clear()
	a.slots.Clear()
}

// Len returns the number of warm accounts and warm slots.
func (a *AccessState) Len() (addresses, slots int) {
	return a.addresses.Cardinality(), a.slots.Cardinality()
}

// Copy returns an independent snapshot.
func (a *AccessState) Copy() *AccessState {
	return &AccessState{
		addresses: a.addresses.Clone(),
		slots:     a.slots.Clone(),
	}
}

// Merge warms every account and slot that is warm in other.
func (a *AccessState) Merge(other *AccessState) {
	a.addresses = a.addresses.Union(other.addresses)
	a.slots = a.slots.Union(other.slots)
}

// WarmPrecompiles warms the first n precompile addresses (0x01..n).
func (a *AccessState) WarmPrecompiles(n uint64) {
	for i := uint64(1); i <= n; i++ {
		a.addresses.Add(common.BytesToAddress([]byte{byte(i)}))
	}
}

// PrePopulate applies the transaction-start warming rules: the sender, the
// recipient (nil for contract creation) and every access list entry.
func (a *AccessState) PrePopulate(sender common.Address, to *common.Address, accessList types.AccessList) {
	a.addresses.Add(sender)
	if to != nil {
		a.addresses.Add(*to)
	}
	for _, el := range accessList {
		a.addresses.Add(el.Address)
		for _, key := range el.StorageKeys {
			a.slots.Add(slotRef{el.Address, key})
		}
	}
}
