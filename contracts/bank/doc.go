/*
Package bank implements a custodial token bank contract.

The bank accepts value in three forms: GAS, the stable NEP-17 token configured
at deploy time and any other NEP-17 token. Everything that is not the stable
token is converted into it through an external exchange contract, and the
amount the exchange actually returned is credited to the depositor's bank
balance. The conversion output is never taken from a return value: the bank
measures how much its stable custody grew over the recorded deposit total.

Withdrawals pay the stable token back to the depositor and are bounded by a
per-transaction limit. The sum of all balances is tracked as a deposit total
which a deposit may never push over the configured bank cap. Bank state is
always settled before any outbound transfer, so re-entering the contract
during a payout observes already debited balances.

The contract owner may sweep stray GAS or token balances out of the contract.
Sweeping the stable token reduces the recorded deposit total before the
transfer so that the total never exceeds the remaining custody.

By default conversions carry no minimum output requirement (the exchange may
return arbitrarily little); the owner can tighten this with SetSwapMinOut.

# Contract notifications

Deposit notification. Produced on every successful deposit. Asset and
assetAmount describe what the depositor brought in, amount is the credited
stable token value.

	Deposit:
	  - name: account
	    type: Hash160
	  - name: asset
	    type: Hash160
	  - name: assetAmount
	    type: Integer
	  - name: amount
	    type: Integer
	  - name: balance
	    type: Integer

Withdrawal notification. Produced on every successful withdrawal.

	Withdrawal:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: balance
	    type: Integer
*/
package bank
