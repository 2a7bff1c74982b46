package bank

import (
	"github.com/nadipdir/kipubank-contract/common"
	"github.com/nadipdir/kipubank-contract/contracts/bank/bankconst"
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	ownerKey         = 'o'
	stableTokenKey   = 's'
	exchangeKey      = 'x'
	bankCapKey       = 'c'
	withdrawLimitKey = 'l'
	totalDepositsKey = 't'
	swapMinOutKey    = 'm'
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		owner         interop.Hash160
		stableToken   interop.Hash160
		exchange      interop.Hash160
		bankCap       int
		withdrawLimit int
	})

	if len(args.owner) != interop.Hash160Len {
		panic("incorrect length of owner script hash")
	}
	if len(args.stableToken) != interop.Hash160Len {
		panic("incorrect length of stable token script hash")
	}
	if len(args.exchange) != interop.Hash160Len {
		panic("incorrect length of exchange script hash")
	}
	if args.bankCap <= 0 {
		panic("non positive bank cap")
	}
	if args.withdrawLimit <= 0 {
		panic("non positive withdrawal limit")
	}

	storage.Put(ctx, ownerKey, args.owner)
	storage.Put(ctx, stableTokenKey, args.stableToken)
	storage.Put(ctx, exchangeKey, args.exchange)
	storage.Put(ctx, bankCapKey, args.bankCap)
	storage.Put(ctx, withdrawLimitKey, args.withdrawLimit)
	storage.Put(ctx, swapMinOutKey, bankconst.DefaultSwapMinOut)

	runtime.Log("bank contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by the contract owner.
func Update(nefFile, manifest []byte, data any) {
	ctx := storage.GetReadOnlyContext()
	common.CheckOwnerWitness(getOwner(ctx))

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, nefFile, manifest, common.AppendVersion(data))
	runtime.Log("bank contract updated")
}

// Deposit accepts the stable token from the depositor and credits the bank
// balance of the depositor 1:1. The transfer must be witnessed by the
// depositor. No conversion happens on this path.
//
// It produces Deposit notification.
func Deposit(from interop.Hash160, amount int) {
	if amount <= 0 {
		panic("non positive deposit amount")
	}

	ctx := storage.GetContext()
	stableToken := getStableToken(ctx)

	pull(stableToken, from, amount)
	credit(ctx, from, stableToken, amount, amount)
}

// DepositGas accepts GAS from the depositor, converts it to the stable token
// through the exchange contract and credits the bank balance of the depositor
// with the amount the exchange actually returned. The transfer must be
// witnessed by the depositor.
//
// It produces Deposit notification carrying the original GAS amount next to
// the credited stable amount.
func DepositGas(from interop.Hash160, amount int) {
	if amount <= 0 {
		panic("non positive deposit amount")
	}

	me := runtime.GetExecutingScriptHash()
	if !gas.Transfer(from, me, amount, nil) {
		panic("failed to transfer GAS, aborting")
	}

	ctx := storage.GetContext()
	swapAndCredit(ctx, from, interop.Hash160(gas.Hash), amount)
}

// DepositToken accepts the given NEP-17 token from the depositor, converts it
// to the stable token through the exchange contract and credits the bank
// balance of the depositor with the amount the exchange actually returned.
// The stable token itself is not allowed here, use Deposit for it. The
// transfer must be witnessed by the depositor.
//
// It produces Deposit notification carrying the original token and amount
// next to the credited stable amount.
func DepositToken(from, token interop.Hash160, amount int) {
	if len(token) != interop.Hash160Len {
		panic("incorrect length of token script hash")
	}
	if amount <= 0 {
		panic("non positive deposit amount")
	}

	if token.Equals(gas.Hash) {
		panic("wrong deposit method for GAS")
	}

	ctx := storage.GetContext()
	if token.Equals(getStableToken(ctx)) {
		panic("wrong deposit method for the stable token")
	}

	pull(token, from, amount)
	swapAndCredit(ctx, from, token, amount)
}

// Withdraw transfers the requested amount of the stable token from the bank
// back to the depositor and debits the depositor's bank balance. It can be
// invoked only by the depositor. Amount must be positive, not exceed the
// per-transaction withdrawal limit and not exceed the depositor's balance.
//
// Bank state is settled strictly before the outbound transfer, so a
// recipient re-entering the contract during the payout observes the already
// debited balance.
//
// It produces Withdrawal notification.
func Withdraw(from interop.Hash160, amount int) {
	common.CheckWitness(from)

	if amount <= 0 {
		panic("non positive withdrawal amount")
	}

	ctx := storage.GetContext()

	limit := common.GetInt(ctx, withdrawLimitKey)
	if amount > limit {
		panic("withdrawal over limit: limit " + std.Itoa(limit, 10) +
			", want " + std.Itoa(amount, 10))
	}

	balance := getBalance(ctx, from)
	if amount > balance {
		panic("insufficient balance: have " + std.Itoa(balance, 10) +
			", want " + std.Itoa(amount, 10))
	}

	newBalance := balance - amount
	key := append([]byte{bankconst.BalancePrefix}, from...)
	if newBalance == 0 {
		storage.Delete(ctx, key)
	} else {
		storage.Put(ctx, key, newBalance)
	}
	storage.Put(ctx, totalDepositsKey, common.GetInt(ctx, totalDepositsKey)-amount)

	me := runtime.GetExecutingScriptHash()
	transferred := contract.Call(getStableToken(ctx), "transfer",
		contract.All, me, from, amount, nil).(bool)
	if !transferred {
		panic("failed to transfer stable token, aborting")
	}

	runtime.Notify("Withdrawal", from, amount, newBalance)
}

// SweepGas transfers all GAS held by the contract to the owner. It can be
// invoked only by the contract owner.
func SweepGas() {
	ctx := storage.GetContext()
	owner := getOwner(ctx)
	common.CheckOwnerWitness(owner)

	me := runtime.GetExecutingScriptHash()
	amount := gas.BalanceOf(me)
	if amount == 0 {
		return
	}

	if !gas.Transfer(me, owner, amount, nil) {
		panic("failed to transfer GAS, aborting")
	}
	runtime.Log("GAS swept to the owner")
}

// SweepToken transfers the whole contract balance of the given NEP-17 token
// to the owner. It can be invoked only by the contract owner. Sweeping the
// stable token reduces the recorded deposit total first, so that the total
// never exceeds the remaining custody.
func SweepToken(token interop.Hash160) {
	if len(token) != interop.Hash160Len {
		panic("incorrect length of token script hash")
	}

	ctx := storage.GetContext()
	owner := getOwner(ctx)
	common.CheckOwnerWitness(owner)

	me := runtime.GetExecutingScriptHash()
	amount := contract.Call(token, "balanceOf", contract.ReadOnly, me).(int)
	if amount == 0 {
		return
	}

	if token.Equals(getStableToken(ctx)) {
		total := common.GetInt(ctx, totalDepositsKey)
		if amount >= total {
			total = 0
		} else {
			total -= amount
		}
		storage.Put(ctx, totalDepositsKey, total)
	}

	transferred := contract.Call(token, "transfer",
		contract.All, me, owner, amount, nil).(bool)
	if !transferred {
		panic("failed to transfer funds, aborting")
	}
	runtime.Log("token swept to the owner")
}

// SetSwapMinOut sets the minimum stable token output required from a single
// conversion. It can be invoked only by the contract owner. The value is
// zero by default, which leaves conversions without any slippage bound.
func SetSwapMinOut(value int) {
	if value < 0 {
		panic("negative minimum swap output")
	}

	ctx := storage.GetContext()
	common.CheckOwnerWitness(getOwner(ctx))

	storage.Put(ctx, swapMinOutKey, value)
	runtime.Log("minimum swap output updated")
}

// OnNEP17Payment is a callback for NEP-17 transfers into the contract. Any
// token is accepted and no bank balance is credited: value pushed here
// outside of the deposit methods only raises custody above the recorded
// total. Use Deposit, DepositGas or DepositToken to get credited.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	if amount <= 0 {
		common.AbortWithMessage("amount must be positive")
	}
}

// BalanceOf returns the bank balance of the given account in stable token
// units.
func BalanceOf(account interop.Hash160) int {
	return getBalance(storage.GetReadOnlyContext(), account)
}

// TotalDeposits returns the sum of all bank balances in stable token units.
func TotalDeposits() int {
	return common.GetInt(storage.GetReadOnlyContext(), totalDepositsKey)
}

// BankCap returns the maximum value TotalDeposits is allowed to reach.
func BankCap() int {
	return common.GetInt(storage.GetReadOnlyContext(), bankCapKey)
}

// WithdrawLimit returns the maximum amount a single Withdraw can debit.
func WithdrawLimit() int {
	return common.GetInt(storage.GetReadOnlyContext(), withdrawLimitKey)
}

// StableToken returns the script hash of the token all bank balances are
// denominated in.
func StableToken() interop.Hash160 {
	return getStableToken(storage.GetReadOnlyContext())
}

// Exchange returns the script hash of the exchange contract used for deposit
// conversions.
func Exchange() interop.Hash160 {
	return storage.Get(storage.GetReadOnlyContext(), exchangeKey).(interop.Hash160)
}

// Owner returns the script hash of the contract owner.
func Owner() interop.Hash160 {
	return getOwner(storage.GetReadOnlyContext())
}

// SwapMinOut returns the minimum stable token output required from a single
// conversion.
func SwapMinOut() int {
	return common.GetInt(storage.GetReadOnlyContext(), swapMinOutKey)
}

// Verify checks whether carrier transaction is signed by the contract owner.
func Verify() bool {
	return runtime.CheckWitness(getOwner(storage.GetReadOnlyContext()))
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// swapAndCredit converts amount of token already held by the contract into
// the stable token via the exchange contract and credits the depositor with
// the result. The exchange output is not trusted as a return value, it is
// measured as the growth of stable custody over the recorded total.
func swapAndCredit(ctx storage.Context, depositor, token interop.Hash160, amount int) {
	var (
		me          = runtime.GetExecutingScriptHash()
		stableToken = getStableToken(ctx)
		exchange    = storage.Get(ctx, exchangeKey).(interop.Hash160)
	)

	// the exchange spends exactly what was handed over to it
	transferred := contract.Call(token, "transfer",
		contract.All, me, exchange, amount, nil).(bool)
	if !transferred {
		panic("failed to transfer funds to the exchange, aborting")
	}

	contract.Call(exchange, bankconst.SwapMethod, contract.All,
		me, amount, common.GetInt(ctx, swapMinOutKey),
		[]interop.Hash160{token, stableToken}, runtime.GetTime())

	custody := contract.Call(stableToken, "balanceOf", contract.ReadOnly, me).(int)
	received := custody - common.GetInt(ctx, totalDepositsKey)
	if received <= 0 {
		panic("exchange returned no stable token")
	}

	credit(ctx, depositor, token, amount, received)
}

// credit is the only way a bank balance grows. stableAmount must already be
// under the contract's custody and not yet reflected in the recorded total.
func credit(ctx storage.Context, depositor, srcAsset interop.Hash160, srcAmount, stableAmount int) {
	total := common.GetInt(ctx, totalDepositsKey)
	bankCap := common.GetInt(ctx, bankCapKey)

	newTotal := total + stableAmount
	if newTotal > bankCap {
		panic("deposit exceeds bank cap: cap " + std.Itoa(bankCap, 10) +
			", total " + std.Itoa(total, 10) +
			", deposit " + std.Itoa(stableAmount, 10))
	}

	newBalance := getBalance(ctx, depositor) + stableAmount
	storage.Put(ctx, append([]byte{bankconst.BalancePrefix}, depositor...), newBalance)
	storage.Put(ctx, totalDepositsKey, newTotal)

	runtime.Notify("Deposit", depositor, srcAsset, srcAmount, stableAmount, newBalance)
}

// pull transfers amount of token from the depositor to the contract. The
// token contract checks the depositor's witness itself.
func pull(token, from interop.Hash160, amount int) {
	me := runtime.GetExecutingScriptHash()
	transferred := contract.Call(token, "transfer",
		contract.All, from, me, amount, nil).(bool)
	if !transferred {
		panic("failed to transfer funds, aborting")
	}
}

func getBalance(ctx storage.Context, account interop.Hash160) int {
	return common.GetInt(ctx, append([]byte{bankconst.BalancePrefix}, account...))
}

func getStableToken(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, stableTokenKey).(interop.Hash160)
}

func getOwner(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, ownerKey).(interop.Hash160)
}
