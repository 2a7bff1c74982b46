package usd

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	balancePrefix = 'b'
	supplyKey     = 's'
)

func Symbol() string {
	return "USD"
}

func Decimals() int {
	return 6
}

func TotalSupply() int {
	return getInt(storage.GetReadOnlyContext(), supplyKey)
}

func BalanceOf(account interop.Hash160) int {
	return getInt(storage.GetReadOnlyContext(), balanceKey(account))
}

// Transfer is a NEP-17 standard transfer. It can be invoked by the owner of
// the funds or by the owning contract itself.
func Transfer(from, to interop.Hash160, amount int, data any) bool {
	if len(from) != interop.Hash160Len || len(to) != interop.Hash160Len {
		panic("bad script hashes")
	}
	if amount < 0 {
		panic("negative amount")
	}

	if !runtime.CheckWitness(from) && !runtime.GetCallingScriptHash().Equals(from) {
		return false
	}

	ctx := storage.GetContext()

	fromBalance := getInt(ctx, balanceKey(from))
	if fromBalance < amount {
		return false
	}

	if fromBalance == amount {
		storage.Delete(ctx, balanceKey(from))
	} else {
		storage.Put(ctx, balanceKey(from), fromBalance-amount)
	}
	storage.Put(ctx, balanceKey(to), getInt(ctx, balanceKey(to))+amount)

	runtime.Notify("Transfer", from, to, amount)
	postPayment(from, to, amount, data)

	return true
}

// Mint creates amount of tokens on the given account out of thin air. The
// token is for tests only, so minting is open to anyone.
func Mint(to interop.Hash160, amount int) {
	if len(to) != interop.Hash160Len {
		panic("bad script hash")
	}
	if amount <= 0 {
		panic("non positive amount")
	}

	ctx := storage.GetContext()
	storage.Put(ctx, balanceKey(to), getInt(ctx, balanceKey(to))+amount)
	storage.Put(ctx, supplyKey, getInt(ctx, supplyKey)+amount)

	var from interop.Hash160
	runtime.Notify("Transfer", from, to, amount)
	postPayment(from, to, amount, nil)
}

// postPayment calls onNEP17Payment on contract recipients as the NEP-17
// standard requires.
func postPayment(from, to interop.Hash160, amount int, data any) {
	if management.GetContract(to) != nil {
		contract.Call(to, "onNEP17Payment", contract.All, from, amount, data)
	}
}

func balanceKey(account interop.Hash160) []byte {
	return append([]byte{balancePrefix}, account...)
}

func getInt(ctx storage.Context, key any) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}
