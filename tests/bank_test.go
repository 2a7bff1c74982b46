package tests

import (
	"path"
	"testing"

	"github.com/nadipdir/kipubank-contract/common"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

const (
	bankPath      = "../contracts/bank"
	usdPath       = "../internal/testcontracts/usd"
	tokenPath     = "../internal/testcontracts/token"
	exchangePath  = "../internal/testcontracts/exchange"
	reentrantPath = "../internal/testcontracts/reentrant"
)

const (
	testBankCap       = 1_000_000
	testWithdrawLimit = 1_000

	exchangeReserve = 1_000_000_000
)

type bankEnv struct {
	executor *neotest.Executor

	bank     *neotest.ContractInvoker
	usd      *neotest.ContractInvoker
	token    *neotest.ContractInvoker
	exchange *neotest.ContractInvoker

	bankHash     util.Uint160
	usdHash      util.Uint160
	tokenHash    util.Uint160
	exchangeHash util.Uint160
}

func deployTestContract(t *testing.T, e *neotest.Executor, srcPath string, args any) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, srcPath, path.Join(srcPath, "config.yml"))
	e.DeployContract(t, c, args)
	return c.Hash
}

// newBankEnv deploys the stable token, an unrelated token, the mock exchange
// and the bank itself. The committee account is the bank owner, the exchange
// is pre-funded with a stable token reserve and converts 1:1 until the rate
// is changed.
func newBankEnv(t *testing.T) *bankEnv {
	e := newExecutor(t)

	usdHash := deployTestContract(t, e, usdPath, nil)
	tokenHash := deployTestContract(t, e, tokenPath, nil)
	exchangeHash := deployTestContract(t, e, exchangePath, nil)

	args := make([]any, 5)
	args[0] = e.CommitteeHash
	args[1] = usdHash
	args[2] = exchangeHash
	args[3] = int64(testBankCap)
	args[4] = int64(testWithdrawLimit)
	bankHash := deployTestContract(t, e, bankPath, args)

	env := &bankEnv{
		executor:     e,
		bank:         e.CommitteeInvoker(bankHash),
		usd:          e.CommitteeInvoker(usdHash),
		token:        e.CommitteeInvoker(tokenHash),
		exchange:     e.CommitteeInvoker(exchangeHash),
		bankHash:     bankHash,
		usdHash:      usdHash,
		tokenHash:    tokenHash,
		exchangeHash: exchangeHash,
	}
	env.usd.Invoke(t, stackitem.Null{}, "mint", exchangeHash, int64(exchangeReserve))

	return env
}

func (env *bankEnv) setRate(t *testing.T, num, den int64) {
	env.exchange.Invoke(t, stackitem.Null{}, "setRate", num, den)
}

func (env *bankEnv) mintUSD(t *testing.T, to util.Uint160, amount int64) {
	env.usd.Invoke(t, stackitem.Null{}, "mint", to, amount)
}

func (env *bankEnv) usdBalance(t *testing.T, acc util.Uint160) int64 {
	s, err := env.usd.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func (env *bankEnv) bankBalance(t *testing.T, acc util.Uint160) int64 {
	s, err := env.bank.TestInvoke(t, "balanceOf", acc)
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func (env *bankEnv) totalDeposits(t *testing.T) int64 {
	s, err := env.bank.TestInvoke(t, "totalDeposits")
	require.NoError(t, err)
	return s.Pop().BigInt().Int64()
}

func TestBank_Config(t *testing.T) {
	env := newBankEnv(t)

	env.bank.Invoke(t, int64(testBankCap), "bankCap")
	env.bank.Invoke(t, int64(testWithdrawLimit), "withdrawLimit")
	env.bank.Invoke(t, env.usdHash.BytesBE(), "stableToken")
	env.bank.Invoke(t, env.exchangeHash.BytesBE(), "exchange")
	env.bank.Invoke(t, env.executor.CommitteeHash.BytesBE(), "owner")
	env.bank.Invoke(t, int64(0), "swapMinOut")
	env.bank.Invoke(t, int64(common.Version), "version")

	testVerify(t, env.bank)
}

func TestBank_DepositStable(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.mintUSD(t, userHash, 500)

	h := env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "deposit", userHash, int64(500))

	require.EqualValues(t, 500, env.bankBalance(t, userHash))
	require.EqualValues(t, 500, env.totalDeposits(t))
	require.EqualValues(t, 0, env.usdBalance(t, userHash))
	require.EqualValues(t, 500, env.usdBalance(t, env.bankHash))

	// the pull produces the token's Transfer first, then the bank reports
	// the credit
	env.executor.CheckTxNotificationEvent(t, h, 1, state.NotificationEvent{
		ScriptHash: env.bankHash,
		Name:       "Deposit",
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.NewByteArray(userHash.BytesBE()),
			stackitem.NewByteArray(env.usdHash.BytesBE()),
			stackitem.Make(500),
			stackitem.Make(500),
			stackitem.Make(500),
		}),
	})
}

func TestBank_DepositRejectsNonPositive(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)

	env.bank.WithSigners(user).InvokeFail(t, "non positive deposit amount",
		"deposit", user.ScriptHash(), int64(0))
	env.bank.WithSigners(user).InvokeFail(t, "non positive deposit amount",
		"deposit", user.ScriptHash(), int64(-5))
}

func TestBank_DepositOverCap(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.mintUSD(t, userHash, 2_000_000)

	env.bank.WithSigners(user).InvokeFail(t,
		"deposit exceeds bank cap: cap 1000000, total 0, deposit 1000001",
		"deposit", userHash, int64(1_000_001))
	require.EqualValues(t, 0, env.totalDeposits(t))
	require.EqualValues(t, 0, env.bankBalance(t, userHash))
	require.EqualValues(t, 2_000_000, env.usdBalance(t, userHash))

	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "deposit", userHash, int64(1_000_000))
	env.bank.WithSigners(user).InvokeFail(t,
		"deposit exceeds bank cap: cap 1000000, total 1000000, deposit 1",
		"deposit", userHash, int64(1))
}

func TestBank_DepositGas(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	// 5 GAS become 500 stable units
	env.setRate(t, 1, 1_000_000)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "depositGas", userHash, int64(5_0000_0000))

	require.EqualValues(t, 500, env.bankBalance(t, userHash))
	require.EqualValues(t, 500, env.totalDeposits(t))
	require.EqualValues(t, 500, env.usdBalance(t, env.bankHash))

	gasHash, err := env.executor.Chain.GetNativeContractScriptHash(nativenames.Gas)
	require.NoError(t, err)
	gasInv := env.executor.CommitteeInvoker(gasHash)
	s, err := gasInv.TestInvoke(t, "balanceOf", env.exchangeHash)
	require.NoError(t, err)
	require.EqualValues(t, 5_0000_0000, s.Pop().BigInt().Int64())
}

func TestBank_DepositToken(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.token.Invoke(t, stackitem.Null{}, "mint", userHash, int64(1000))

	env.setRate(t, 2, 1)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "depositToken", userHash, env.tokenHash, int64(100))

	require.EqualValues(t, 200, env.bankBalance(t, userHash))
	require.EqualValues(t, 200, env.totalDeposits(t))
	require.EqualValues(t, 200, env.usdBalance(t, env.bankHash))

	s, err := env.token.TestInvoke(t, "balanceOf", userHash)
	require.NoError(t, err)
	require.EqualValues(t, 900, s.Pop().BigInt().Int64())
	s, err = env.token.TestInvoke(t, "balanceOf", env.exchangeHash)
	require.NoError(t, err)
	require.EqualValues(t, 100, s.Pop().BigInt().Int64())
}

func TestBank_DepositTokenRejectsStable(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.mintUSD(t, userHash, 100)

	env.bank.WithSigners(user).InvokeFail(t, "wrong deposit method for the stable token",
		"depositToken", userHash, env.usdHash, int64(100))
	require.EqualValues(t, 100, env.usdBalance(t, userHash))

	gasHash, err := env.executor.Chain.GetNativeContractScriptHash(nativenames.Gas)
	require.NoError(t, err)
	env.bank.WithSigners(user).InvokeFail(t, "wrong deposit method for GAS",
		"depositToken", userHash, gasHash, int64(100))
}

func TestBank_SwapReturnsNothing(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.token.Invoke(t, stackitem.Null{}, "mint", userHash, int64(1000))

	env.setRate(t, 0, 1)
	env.bank.WithSigners(user).InvokeFail(t, "exchange returned no stable token",
		"depositToken", userHash, env.tokenHash, int64(100))

	// the fault rolls the pull back together with the bookkeeping
	require.EqualValues(t, 0, env.totalDeposits(t))
	require.EqualValues(t, 0, env.bankBalance(t, userHash))
	s, err := env.token.TestInvoke(t, "balanceOf", userHash)
	require.NoError(t, err)
	require.EqualValues(t, 1000, s.Pop().BigInt().Int64())
}

func TestBank_SwapMinOut(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.token.Invoke(t, stackitem.Null{}, "mint", userHash, int64(1000))

	env.bank.WithSigners(user).InvokeFail(t, common.ErrOwnerWitnessFailed,
		"setSwapMinOut", int64(1000))

	env.bank.Invoke(t, stackitem.Null{}, "setSwapMinOut", int64(1000))
	env.bank.Invoke(t, int64(1000), "swapMinOut")

	// 1:1 rate yields 100, below the required 1000
	env.bank.WithSigners(user).InvokeFail(t, "insufficient output amount",
		"depositToken", userHash, env.tokenHash, int64(100))

	env.setRate(t, 20, 1)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "depositToken", userHash, env.tokenHash, int64(100))
	require.EqualValues(t, 2000, env.bankBalance(t, userHash))
}

func TestBank_Withdraw(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.mintUSD(t, userHash, 5000)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "deposit", userHash, int64(500))

	h := env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "withdraw", userHash, int64(200))

	require.EqualValues(t, 300, env.bankBalance(t, userHash))
	require.EqualValues(t, 300, env.totalDeposits(t))
	require.EqualValues(t, 4700, env.usdBalance(t, userHash))
	require.EqualValues(t, 300, env.usdBalance(t, env.bankHash))

	env.executor.CheckTxNotificationEvent(t, h, 1, state.NotificationEvent{
		ScriptHash: env.bankHash,
		Name:       "Withdrawal",
		Item: stackitem.NewArray([]stackitem.Item{
			stackitem.NewByteArray(userHash.BytesBE()),
			stackitem.Make(200),
			stackitem.Make(300),
		}),
	})
}

func TestBank_WithdrawValidation(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.mintUSD(t, userHash, 5000)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "deposit", userHash, int64(500))

	env.bank.WithSigners(user).InvokeFail(t, "non positive withdrawal amount",
		"withdraw", userHash, int64(0))

	env.bank.WithSigners(user).InvokeFail(t, "insufficient balance: have 500, want 501",
		"withdraw", userHash, int64(501))

	// no state was touched by the failed attempts
	require.EqualValues(t, 500, env.bankBalance(t, userHash))
	require.EqualValues(t, 500, env.totalDeposits(t))

	// a stranger cannot debit somebody else's balance
	stranger := env.executor.NewAccount(t)
	env.bank.WithSigners(stranger).InvokeFail(t, common.ErrWitnessFailed,
		"withdraw", userHash, int64(100))
}

func TestBank_WithdrawOverLimit(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()

	env.mintUSD(t, userHash, 5000)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "deposit", userHash, int64(5000))

	env.bank.WithSigners(user).InvokeFail(t, "withdrawal over limit: limit 1000, want 1001",
		"withdraw", userHash, int64(1001))
	require.EqualValues(t, 5000, env.bankBalance(t, userHash))
	require.EqualValues(t, 5000, env.totalDeposits(t))

	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "withdraw", userHash, int64(1000))
	require.EqualValues(t, 4000, env.bankBalance(t, userHash))
}

func TestBank_TotalMatchesBalanceSum(t *testing.T) {
	env := newBankEnv(t)
	alice := env.executor.NewAccount(t)
	bob := env.executor.NewAccount(t)

	env.mintUSD(t, alice.ScriptHash(), 1000)
	env.token.Invoke(t, stackitem.Null{}, "mint", bob.ScriptHash(), int64(1000))

	env.bank.WithSigners(alice).Invoke(t, stackitem.Null{}, "deposit", alice.ScriptHash(), int64(700))
	env.setRate(t, 3, 1)
	env.bank.WithSigners(bob).Invoke(t, stackitem.Null{}, "depositToken", bob.ScriptHash(), env.tokenHash, int64(100))
	env.bank.WithSigners(alice).Invoke(t, stackitem.Null{}, "withdraw", alice.ScriptHash(), int64(150))

	sum := env.bankBalance(t, alice.ScriptHash()) + env.bankBalance(t, bob.ScriptHash())
	require.EqualValues(t, sum, env.totalDeposits(t))
	require.EqualValues(t, sum, env.usdBalance(t, env.bankHash))
}

func TestBank_SweepToken(t *testing.T) {
	env := newBankEnv(t)
	user := env.executor.NewAccount(t)
	userHash := user.ScriptHash()
	ownerHash := env.executor.CommitteeHash

	env.mintUSD(t, userHash, 500)
	env.bank.WithSigners(user).Invoke(t, stackitem.Null{}, "deposit", userHash, int64(500))

	env.bank.Invoke(t, stackitem.Null{}, "sweepToken", env.usdHash)

	require.EqualValues(t, 0, env.totalDeposits(t))
	require.EqualValues(t, 0, env.usdBalance(t, env.bankHash))
	require.EqualValues(t, 500, env.usdBalance(t, ownerHash))
}

func TestBank_SweepTokenUnauthorized(t *testing.T) {
	env := newBankEnv(t)
	stranger := env.executor.NewAccount(t)

	env.bank.WithSigners(stranger).InvokeFail(t, common.ErrOwnerWitnessFailed,
		"sweepToken", env.usdHash)
	env.bank.WithSigners(stranger).InvokeFail(t, common.ErrOwnerWitnessFailed,
		"sweepGas")
}

func TestBank_SweepGas(t *testing.T) {
	env := newBankEnv(t)
	e := env.executor

	gasHash, err := e.Chain.GetNativeContractScriptHash(nativenames.Gas)
	require.NoError(t, err)
	gasInv := e.CommitteeInvoker(gasHash).WithSigners(e.Validator)
	gasInv.Invoke(t, true, "transfer",
		e.Validator.ScriptHash(), env.bankHash, int64(10_0000_0000), nil)

	env.bank.Invoke(t, stackitem.Null{}, "sweepGas")

	s, err := gasInv.TestInvoke(t, "balanceOf", env.bankHash)
	require.NoError(t, err)
	require.EqualValues(t, 0, s.Pop().BigInt().Int64())
}

// A recipient with a payment hook must observe the already debited balances
// when it re-enters the bank during a withdrawal payout.
func TestBank_WithdrawReentrancy(t *testing.T) {
	env := newBankEnv(t)
	e := env.executor

	rHash := deployTestContract(t, e, reentrantPath, nil)
	rSigner := neotest.NewContractSigner(rHash, func(tx *transaction.Transaction) []any {
		return nil
	})
	rInv := e.CommitteeInvoker(rHash)

	env.mintUSD(t, rHash, 1000)
	rInv.Invoke(t, stackitem.Null{}, "setBank", env.bankHash)

	bankInv := env.bank.WithSigners(e.Committee, rSigner)
	bankInv.Invoke(t, stackitem.Null{}, "deposit", rHash, int64(500))
	bankInv.Invoke(t, stackitem.Null{}, "withdraw", rHash, int64(200))

	rInv.Invoke(t, stackitem.NewStruct([]stackitem.Item{
		stackitem.Make(300),
		stackitem.Make(300),
	}), "observed")

	require.EqualValues(t, 300, env.bankBalance(t, rHash))
	require.EqualValues(t, 300, env.totalDeposits(t))
}
