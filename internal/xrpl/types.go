package xrpl

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Transaction result codes used by the service.
const (
	ResultSuccess        = "tesSUCCESS"
	TransactionPayment   = "Payment"
	LedgerIndexValidated = "validated"
	LedgerIndexCurrent   = "current"
)

// ErrUnrecognizedEvent is returned for stream payloads that do not carry the
// fields of a transaction notification.
var ErrUnrecognizedEvent = errors.New("unrecognized transaction event")

// AccountRoot is the account_data object of account_info.
type AccountRoot struct {
	Account  string `json:"Account"`
	Balance  string `json:"Balance"`
	Sequence uint32 `json:"Sequence"`
}

// AccountInfoResult is the result of account_info.
type AccountInfoResult struct {
	AccountData        AccountRoot `json:"account_data"`
	LedgerCurrentIndex uint32      `json:"ledger_current_index"`
	LedgerIndex        uint32      `json:"ledger_index"`
	Validated          bool        `json:"validated"`
}

// TxJSON holds the transaction fields the service reads or writes.
type TxJSON struct {
	TransactionType    string  `json:"TransactionType"`
	Account            string  `json:"Account"`
	Destination        string  `json:"Destination,omitempty"`
	Amount             Amount  `json:"Amount"`
	DeliverMax         *Amount `json:"DeliverMax,omitempty"`
	DestinationTag     *uint32 `json:"DestinationTag,omitempty"`
	Fee                string  `json:"Fee,omitempty"`
	Sequence           uint32  `json:"Sequence,omitempty"`
	LastLedgerSequence uint32  `json:"LastLedgerSequence,omitempty"`
	SigningPubKey      string  `json:"SigningPubKey,omitempty"`
	Hash               string  `json:"hash,omitempty"`
	Date               int64   `json:"date,omitempty"`
}

// SentAmount is Amount, or DeliverMax under api_version 2.
func (t TxJSON) SentAmount() Amount {
	if !t.Amount.IsZero() || t.DeliverMax == nil {
		return t.Amount
	}
	return *t.DeliverMax
}

// Meta is the subset of transaction metadata the service reads.
type Meta struct {
	TransactionResult string `json:"TransactionResult"`
	DeliveredAmount   Amount `json:"delivered_amount"`
}

// Succeeded reports whether the transaction applied with tesSUCCESS.
func (m Meta) Succeeded() bool { return m.TransactionResult == ResultSuccess }

// AccountTxEntry is one element of account_tx transactions. Under
// api_version 1 the transaction is in "tx" and carries its own hash; under
// api_version 2 it is in "tx_json" with the hash alongside.
type AccountTxEntry struct {
	Tx        *TxJSON `json:"tx,omitempty"`
	TxJSON    *TxJSON `json:"tx_json,omitempty"`
	Hash      string  `json:"hash,omitempty"`
	Meta      Meta    `json:"meta"`
	Validated bool    `json:"validated"`
}

// Transaction returns the normalized transaction of the entry.
func (e AccountTxEntry) Transaction() (TxJSON, bool) {
	return pickTx(e.Tx, e.TxJSON, e.Hash)
}

// AccountTxResult is the result of account_tx.
type AccountTxResult struct {
	Account      string           `json:"account"`
	Transactions []AccountTxEntry `json:"transactions"`
}

// ValidatedLedger is server_info's view of the last validated ledger.
// Amounts are already in XRP.
type ValidatedLedger struct {
	Seq            uint32          `json:"seq"`
	BaseFeeXRP     decimal.Decimal `json:"base_fee_xrp"`
	ReserveBaseXRP decimal.Decimal `json:"reserve_base_xrp"`
	ReserveIncXRP  decimal.Decimal `json:"reserve_inc_xrp"`
}

// ServerInfoResult is the result of server_info.
type ServerInfoResult struct {
	Info struct {
		BuildVersion    string           `json:"build_version"`
		LoadFactor      float64          `json:"load_factor"`
		ValidatedLedger *ValidatedLedger `json:"validated_ledger"`
	} `json:"info"`
}

// LedgerCurrentResult is the result of ledger_current.
type LedgerCurrentResult struct {
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

// SignResult is the result of sign.
type SignResult struct {
	TxBlob string `json:"tx_blob"`
	TxJSON TxJSON `json:"tx_json"`
}

// SubmitResult is the result of submit.
type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultMessage string `json:"engine_result_message"`
	TxJSON              TxJSON `json:"tx_json"`
}

// TxResult is the result of tx.
type TxResult struct {
	Hash        string `json:"hash"`
	Meta        Meta   `json:"meta"`
	Validated   bool   `json:"validated"`
	LedgerIndex uint32 `json:"ledger_index"`
}

// TransactionEvent is a validated "transaction" stream message.
type TransactionEvent struct {
	Transaction TxJSON
	Meta        Meta
	Validated   bool
	LedgerIndex uint32
}

type transactionEventWire struct {
	Type        string  `json:"type"`
	Transaction *TxJSON `json:"transaction,omitempty"`
	TxJSON      *TxJSON `json:"tx_json,omitempty"`
	Hash        string  `json:"hash,omitempty"`
	Meta        *Meta   `json:"meta,omitempty"`
	Validated   bool    `json:"validated"`
	LedgerIndex uint32  `json:"ledger_index"`
}

// ParseTransactionEvent decodes a transaction stream payload. Payloads
// missing the transaction, its type, its sender or the result code are
// rejected with ErrUnrecognizedEvent.
func ParseTransactionEvent(payload []byte) (TransactionEvent, error) {
	var wire transactionEventWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return TransactionEvent{}, fmt.Errorf("%w: %v", ErrUnrecognizedEvent, err)
	}
	if wire.Type != "" && wire.Type != EventTransaction {
		return TransactionEvent{}, fmt.Errorf("%w: type %q", ErrUnrecognizedEvent, wire.Type)
	}
	tx, ok := pickTx(wire.Transaction, wire.TxJSON, wire.Hash)
	if !ok || tx.TransactionType == "" || tx.Account == "" {
		return TransactionEvent{}, fmt.Errorf("%w: missing transaction", ErrUnrecognizedEvent)
	}
	if wire.Meta == nil || wire.Meta.TransactionResult == "" {
		return TransactionEvent{}, fmt.Errorf("%w: missing meta", ErrUnrecognizedEvent)
	}
	return TransactionEvent{
		Transaction: tx,
		Meta:        *wire.Meta,
		Validated:   wire.Validated,
		LedgerIndex: wire.LedgerIndex,
	}, nil
}

func pickTx(v1, v2 *TxJSON, hash string) (TxJSON, bool) {
	var tx TxJSON
	switch {
	case v1 != nil:
		tx = *v1
	case v2 != nil:
		tx = *v2
	default:
		return TxJSON{}, false
	}
	if tx.Hash == "" {
		tx.Hash = hash
	}
	return tx, true
}
