package exchange

import (
	"github.com/nadipdir/kipubank-contract/common"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// Rate is a fixed conversion price applied to every swap.
type Rate struct {
	Num int
	Den int
}

const rateKey = 'r'

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}

	common.SetSerialized(storage.GetContext(), rateKey, Rate{Num: 1, Den: 1})
}

// SetRate sets the conversion rate: every swap returns amountIn*num/den of
// the output token. A zero numerator makes swaps return nothing.
func SetRate(num, den int) {
	if num < 0 {
		panic("negative rate numerator")
	}
	if den <= 0 {
		panic("non positive rate denominator")
	}

	common.SetSerialized(storage.GetContext(), rateKey, Rate{Num: num, Den: den})
}

// SwapTokenInForTokenOut converts amountIn of the first path token, which
// must already be under the exchange's control, into the last path token at
// the configured rate and pays the result to the recipient.
func SwapTokenInForTokenOut(recipient interop.Hash160, amountIn, amountOutMin int, path []interop.Hash160, deadline int) int {
	if len(path) < 2 {
		panic("invalid swap path")
	}
	if amountIn <= 0 {
		panic("non positive input amount")
	}

	rate := getRate(storage.GetReadOnlyContext())
	out := amountIn * rate.Num / rate.Den
	if out < amountOutMin {
		panic("insufficient output amount")
	}

	if out > 0 {
		me := runtime.GetExecutingScriptHash()
		tokenOut := path[len(path)-1]
		transferred := contract.Call(tokenOut, "transfer",
			contract.All, me, recipient, out, nil).(bool)
		if !transferred {
			panic("failed to transfer output token, aborting")
		}
	}

	return out
}

// OnNEP17Payment accepts any token, swap input and reserves alike.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
}

func getRate(ctx storage.Context) Rate {
	data := storage.Get(ctx, rateKey)
	if data == nil {
		return Rate{Num: 1, Den: 1}
	}

	return std.Deserialize(data.([]byte)).(Rate)
}
