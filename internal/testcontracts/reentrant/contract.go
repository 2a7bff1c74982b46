package reentrant

import (
	"github.com/nadipdir/kipubank-contract/common"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Observation is the bank state seen from inside a payout callback.
type Observation struct {
	Balance int
	Total   int
}

const (
	bankKey = 'b'
	obsKey  = 'o'
)

// SetBank arms the contract: from now on every incoming NEP-17 payment
// re-enters the given bank contract and records the state it observes.
func SetBank(bank interop.Hash160) {
	if len(bank) != interop.Hash160Len {
		panic("bad script hash")
	}

	storage.Put(storage.GetContext(), bankKey, bank)
}

func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	ctx := storage.GetContext()
	bank := storage.Get(ctx, bankKey)
	if bank == nil {
		return
	}

	var (
		h  = bank.(interop.Hash160)
		me = runtime.GetExecutingScriptHash()
	)
	common.SetSerialized(ctx, obsKey, Observation{
		Balance: contract.Call(h, "balanceOf", contract.ReadOnly, me).(int),
		Total:   contract.Call(h, "totalDeposits", contract.ReadOnly).(int),
	})
}

// Observed returns the bank state recorded during the latest payment. Both
// fields are -1 if no payment was observed yet.
func Observed() Observation {
	data := storage.Get(storage.GetReadOnlyContext(), obsKey)
	if data == nil {
		return Observation{Balance: -1, Total: -1}
	}

	return std.Deserialize(data.([]byte)).(Observation)
}

func Verify() bool {
	return true
}
