package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// Project turns raw account_tx entries into the payment history of address.
// Only Payments whose Amount is in XRP are kept, in input order. Failed
// payments report a zero amount since nothing was delivered.
func Project(address string, entries []xrpl.AccountTxEntry) []Transaction {
	out := make([]Transaction, 0, len(entries))
	for _, entry := range entries {
		tx, ok := entry.Transaction()
		if !ok || tx.TransactionType != xrpl.TransactionPayment {
			continue
		}
		if !tx.SentAmount().IsNative() {
			continue
		}

		direction := Received
		if tx.Account == address {
			direction = Sent
		}

		amount := decimal.Zero
		if entry.Meta.Succeeded() {
			amount = deliveredXRP(entry.Meta.DeliveredAmount, tx.SentAmount())
		}

		out = append(out, Transaction{
			Account:     tx.Account,
			Destination: tx.Destination,
			Hash:        tx.Hash,
			Direction:   direction,
			Timestamp:   LedgerTime(tx.Date),
			Result:      entry.Meta.TransactionResult,
			Amount:      amount,
		})
	}
	return out
}

// deliveredXRP prefers delivered_amount, which old ledgers report as
// "unavailable", over the nominal amount.
func deliveredXRP(delivered, nominal xrpl.Amount) decimal.Decimal {
	if v, err := delivered.XRP(); err == nil {
		return v
	}
	if v, err := nominal.XRP(); err == nil {
		return v
	}
	return decimal.Zero
}
