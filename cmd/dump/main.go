package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/nadipdir/kipubank-contract/contracts/bank/bankconst"
	"github.com/nadipdir/kipubank-contract/rpc/bank"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// bankState is the JSON layout of a dumped bank.
type bankState struct {
	Block         uint32              `json:"block"`
	Contract      string              `json:"contract"`
	Owner         string              `json:"owner"`
	StableToken   string              `json:"stableToken"`
	Exchange      string              `json:"exchange"`
	BankCap       *big.Int            `json:"bankCap"`
	WithdrawLimit *big.Int            `json:"withdrawLimit"`
	SwapMinOut    *big.Int            `json:"swapMinOut"`
	TotalDeposits *big.Int            `json:"totalDeposits"`
	Accounts      map[string]*big.Int `json:"accounts"`
}

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	bankContract := flag.String("contract", "", "Script hash of the bank contract (LE hex)")
	outFile := flag.String("out", "bank-state.json", "Path to the output file")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *bankContract == "":
		log.Fatal("missing bank contract hash")
	}

	h, err := util.Uint160DecodeStringLE(*bankContract)
	if err != nil {
		log.Fatal(fmt.Errorf("decode bank contract hash: %w", err))
	}

	err = _dump(*neoRPCEndpoint, h, *outFile)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("bank state is successfully dumped to '%s'\n", *outFile)
}

func _dump(neoBlockchainRPCEndpoint string, bankContract util.Uint160, outFile string) error {
	b, err := newRemoteBlockChain(neoBlockchainRPCEndpoint)
	if err != nil {
		return fmt.Errorf("init remote blockchain: %w", err)
	}

	defer b.close()

	reader := bank.NewReader(invoker.New(b.rpc, nil), bankContract)

	st := bankState{
		Block:    b.currentBlock,
		Contract: bankContract.StringLE(),
		Accounts: map[string]*big.Int{},
	}

	owner, err := reader.Owner()
	if err != nil {
		return fmt.Errorf("read owner: %w", err)
	}
	st.Owner = address.Uint160ToString(owner)

	stableToken, err := reader.StableToken()
	if err != nil {
		return fmt.Errorf("read stable token: %w", err)
	}
	st.StableToken = stableToken.StringLE()

	exchange, err := reader.Exchange()
	if err != nil {
		return fmt.Errorf("read exchange: %w", err)
	}
	st.Exchange = exchange.StringLE()

	st.BankCap, err = reader.BankCap()
	if err != nil {
		return fmt.Errorf("read bank cap: %w", err)
	}

	st.WithdrawLimit, err = reader.WithdrawLimit()
	if err != nil {
		return fmt.Errorf("read withdrawal limit: %w", err)
	}

	st.SwapMinOut, err = reader.SwapMinOut()
	if err != nil {
		return fmt.Errorf("read minimum swap output: %w", err)
	}

	st.TotalDeposits, err = reader.TotalDeposits()
	if err != nil {
		return fmt.Errorf("read total deposits: %w", err)
	}

	err = b.iterateContractStorage(bankContract, func(key, value []byte) error {
		if len(key) != 1+util.Uint160Size || key[0] != bankconst.BalancePrefix {
			return nil
		}

		acc, err := util.Uint160DecodeBytesBE(key[1:])
		if err != nil {
			return fmt.Errorf("decode account key: %w", err)
		}

		st.Accounts[address.Uint160ToString(acc)] = bigint.FromBytes(value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("iterate bank contract storage: %w", err)
	}

	data, err := json.MarshalIndent(st, "", " ")
	if err != nil {
		return fmt.Errorf("encode bank state: %w", err)
	}

	err = os.WriteFile(outFile, data, 0600)
	if err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	return nil
}
