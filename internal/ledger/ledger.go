// Package ledger reads the state of an account from the XRP Ledger: its
// balance, its recent XRP payments and the network reserve.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryLimit is the number of transactions requested per history sync.
const HistoryLimit = 20

// rippleEpoch is 2000-01-01T00:00:00Z in Unix seconds; ledger times count
// seconds from it.
const rippleEpoch = 946684800

// Direction tells whether the account sent or received a payment.
type Direction string

const (
	Sent     Direction = "Sent"
	Received Direction = "Received"
)

// Balance is an account balance in XRP. Known is false when the account
// does not exist on the ledger or the fetch failed.
type Balance struct {
	Address string
	Amount  decimal.Decimal
	Known   bool
}

// UnknownBalance is the balance of an unfunded or unreachable account.
func UnknownBalance(address string) Balance {
	return Balance{Address: address}
}

func (b Balance) String() string {
	if !b.Known {
		return "unknown"
	}
	return b.Amount.String()
}

// Transaction is one XRP payment of an account's history.
type Transaction struct {
	Account     string          `json:"account"`
	Destination string          `json:"destination"`
	Hash        string          `json:"hash"`
	Direction   Direction       `json:"direction"`
	Timestamp   time.Time       `json:"date"`
	Result      string          `json:"transactionResult"`
	Amount      decimal.Decimal `json:"amount"`
}

// Succeeded reports whether the payment applied.
func (t Transaction) Succeeded() bool { return t.Result == "tesSUCCESS" }

// Reserve is the base reserve of the network in XRP.
type Reserve struct {
	Amount decimal.Decimal
	Known  bool
}

func (r Reserve) String() string {
	if !r.Known {
		return "unknown"
	}
	return r.Amount.String()
}

// LedgerTime converts seconds since the ledger epoch to a UTC time.
func LedgerTime(seconds int64) time.Time {
	return time.Unix(seconds+rippleEpoch, 0).UTC()
}

// Ledger fetches account state. Failures never abort a read: every method
// returns the unknown or empty value together with the error, and "account
// not found" is not an error at all.
type Ledger interface {
	Balance(ctx context.Context, address string) (Balance, error)
	History(ctx context.Context, address string) ([]Transaction, error)
	Reserve(ctx context.Context) (Reserve, error)
}
