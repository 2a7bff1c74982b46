package bankconst

const (
	// BalancePrefix is the storage prefix bank balances are stored under,
	// followed by the account script hash.
	BalancePrefix = byte('a')

	// SwapMethod is the conversion method of the exchange contract. It takes
	// a recipient, an input amount, a minimum output amount, a token path and
	// a deadline; the input tokens must already be under the exchange's
	// control when it is invoked.
	SwapMethod = "swapTokenInForTokenOut"

	// DefaultSwapMinOut is the minimum conversion output the bank requires
	// unless the owner configures another value. Zero means any non-zero
	// exchange output is accepted.
	DefaultSwapMinOut = 0
)
