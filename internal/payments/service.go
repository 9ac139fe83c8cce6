package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

const (
	// ledgerOffset is how many ledgers a submitted payment stays valid for.
	ledgerOffset = 20
	// defaultPollInterval is the wait between validation checks.
	defaultPollInterval = time.Second
	codeTxnNotFound     = "txnNotFound"
)

var (
	feeCushion = decimal.RequireFromString("1.2")
	maxFeeXRP  = decimal.NewFromInt(2)
	minBaseFee = decimal.RequireFromString("0.00001")
	dropsScale = decimal.NewFromInt(xrpl.DropsPerXRP)
)

// Selection provides the account payments are sent from.
type Selection interface {
	Selected() (account.Account, bool)
}

// Refresher resynchronizes the selected account after a submission.
type Refresher interface {
	RefreshBalance(ctx context.Context)
	RefreshTransactions(ctx context.Context)
}

// Request describes an XRP payment. DestinationTag is the raw user input;
// empty means no tag.
type Request struct {
	Amount         decimal.Decimal
	Destination    string
	DestinationTag string
}

// Result is the validated outcome of a payment.
type Result struct {
	Hash        string `json:"hash"`
	Result      string `json:"result"`
	LedgerIndex uint32 `json:"ledger_index"`
	Fee         string `json:"fee"`
	Sequence    uint32 `json:"sequence"`
}

// Submitter builds, signs and submits payments from the selected account.
type Submitter struct {
	dialer       xrpl.Dialer
	selection    Selection
	refresher    Refresher
	signer       Signer
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewSubmitter constructs a payment submitter. A zero pollInterval uses one second.
func NewSubmitter(dialer xrpl.Dialer, selection Selection, refresher Refresher, signer Signer, logger *slog.Logger, pollInterval time.Duration) *Submitter {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Submitter{
		dialer:       dialer,
		selection:    selection,
		refresher:    refresher,
		signer:       signer,
		logger:       logger.With("component", "payments"),
		pollInterval: pollInterval,
	}
}

// SendXRP sends req from the selected account and waits for validation.
// Without a selection, or with invalid input, it fails before touching the
// network. Otherwise the session is released and balance and history are
// refreshed whatever the outcome; failures are returned as *SubmissionError.
func (s *Submitter) SendXRP(ctx context.Context, req Request) (Result, error) {
	acct, ok := s.selection.Selected()
	if !ok {
		return Result{}, ErrNoAccountSelected
	}
	payment, err := BuildPayment(acct.Address, req)
	if err != nil {
		return Result{}, err
	}

	session := s.dialer.NewSession()
	res, err := s.submit(ctx, session, acct, payment)

	if derr := session.Disconnect(); derr != nil {
		s.logger.Debug("disconnect failed", "error", derr)
	}
	refreshCtx := context.WithoutCancel(ctx)
	s.refresher.RefreshBalance(refreshCtx)
	s.refresher.RefreshTransactions(refreshCtx)

	if err != nil {
		s.logger.Error("payment failed", "account", acct.Address, "destination", req.Destination, "amount", req.Amount.String(), "error", err)
		return res, err
	}
	s.logger.Info("payment validated", "account", acct.Address, "destination", req.Destination, "amount", req.Amount.String(), "hash", res.Hash)
	return res, nil
}

func (s *Submitter) submit(ctx context.Context, session xrpl.Session, acct account.Account, payment xrpl.TxJSON) (Result, error) {
	if err := session.Connect(ctx); err != nil {
		return Result{}, &SubmissionError{Step: StepConnect, Err: err}
	}
	if err := s.autofill(ctx, session, &payment); err != nil {
		return Result{}, &SubmissionError{Step: StepAutofill, Err: err}
	}

	signed, err := s.signer.Sign(ctx, session, acct, payment)
	if err != nil {
		return Result{}, &SubmissionError{Step: StepSign, Err: err}
	}
	res := Result{Hash: signed.TxJSON.Hash, Fee: payment.Fee, Sequence: payment.Sequence}

	var submitted xrpl.SubmitResult
	if err := session.Request(ctx, xrpl.CommandSubmit, xrpl.Params{"tx_blob": signed.TxBlob}, &submitted); err != nil {
		return res, &SubmissionError{Step: StepSubmit, Hash: res.Hash, Err: err}
	}
	if submitted.TxJSON.Hash != "" {
		res.Hash = submitted.TxJSON.Hash
	}
	res.Result = submitted.EngineResult
	if neverApplies(submitted.EngineResult) {
		return res, &SubmissionError{Step: StepSubmit, Hash: res.Hash, Result: submitted.EngineResult, Err: errors.New(submitted.EngineResultMessage)}
	}

	final, err := s.waitValidated(ctx, session, res.Hash, payment.LastLedgerSequence)
	if err != nil {
		return res, &SubmissionError{Step: StepValidate, Hash: res.Hash, Err: err}
	}
	res.Result = final.Meta.TransactionResult
	res.LedgerIndex = final.LedgerIndex
	if !final.Meta.Succeeded() {
		return res, &SubmissionError{Step: StepValidate, Hash: res.Hash, Result: res.Result}
	}
	return res, nil
}

// autofill sets Sequence, Fee and LastLedgerSequence from the node.
func (s *Submitter) autofill(ctx context.Context, session xrpl.Session, tx *xrpl.TxJSON) error {
	var info xrpl.AccountInfoResult
	if err := session.Request(ctx, xrpl.CommandAccountInfo, xrpl.Params{
		"account":      tx.Account,
		"ledger_index": xrpl.LedgerIndexCurrent,
	}, &info); err != nil {
		return fmt.Errorf("sequence: %w", err)
	}
	tx.Sequence = info.AccountData.Sequence

	var server xrpl.ServerInfoResult
	if err := session.Request(ctx, xrpl.CommandServerInfo, nil, &server); err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	tx.Fee = feeDrops(server)

	var current xrpl.LedgerCurrentResult
	if err := session.Request(ctx, xrpl.CommandLedgerCurrent, nil, &current); err != nil {
		return fmt.Errorf("ledger bounds: %w", err)
	}
	tx.LastLedgerSequence = current.LedgerCurrentIndex + ledgerOffset
	return nil
}

// feeDrops scales the base fee by the server load and a cushion, capped
// at two XRP.
func feeDrops(server xrpl.ServerInfoResult) string {
	base := minBaseFee
	if vl := server.Info.ValidatedLedger; vl != nil && vl.BaseFeeXRP.IsPositive() {
		base = vl.BaseFeeXRP
	}
	load := decimal.NewFromInt(1)
	if server.Info.LoadFactor > 0 {
		load = decimal.NewFromFloat(server.Info.LoadFactor)
	}
	fee := decimal.Min(base.Mul(load).Mul(feeCushion), maxFeeXRP)
	return fee.Mul(dropsScale).Ceil().StringFixed(0)
}

// waitValidated polls tx until it is validated or the last validated
// ledger moves past lastLedger.
func (s *Submitter) waitValidated(ctx context.Context, session xrpl.Session, hash string, lastLedger uint32) (xrpl.TxResult, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		var tx xrpl.TxResult
		err := session.Request(ctx, xrpl.CommandTx, xrpl.Params{"transaction": hash}, &tx)
		switch {
		case err == nil && tx.Validated:
			return tx, nil
		case err != nil && !isTxnNotFound(err):
			return xrpl.TxResult{}, err
		}

		var server xrpl.ServerInfoResult
		if err := session.Request(ctx, xrpl.CommandServerInfo, nil, &server); err != nil {
			return xrpl.TxResult{}, err
		}
		if vl := server.Info.ValidatedLedger; vl != nil && vl.Seq > lastLedger {
			return xrpl.TxResult{}, ErrExpired
		}

		select {
		case <-ctx.Done():
			return xrpl.TxResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isTxnNotFound(err error) bool {
	var nodeErr *xrpl.NodeError
	return errors.As(err, &nodeErr) && nodeErr.Code == codeTxnNotFound
}

// neverApplies reports engine results that keep a transaction out of any
// ledger: malformed, failed locally or rejected by the server.
func neverApplies(result string) bool {
	for _, prefix := range []string{"tem", "tef", "tel"} {
		if strings.HasPrefix(result, prefix) {
			return true
		}
	}
	return false
}

// BuildPayment validates req and returns the unsigned Payment from source.
func BuildPayment(source string, req Request) (xrpl.TxJSON, error) {
	if !req.Amount.IsPositive() {
		return xrpl.TxJSON{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	drops, err := xrpl.XRPToDrops(req.Amount)
	if err != nil {
		return xrpl.TxJSON{}, fmt.Errorf("%w: %v", ErrInvalidPayment, err)
	}
	if !xrpl.ValidAddress(req.Destination) {
		return xrpl.TxJSON{}, fmt.Errorf("%w: destination %q is not an account address", ErrInvalidPayment, req.Destination)
	}

	tx := xrpl.TxJSON{
		TransactionType: xrpl.TransactionPayment,
		Account:         source,
		Destination:     req.Destination,
		Amount:          xrpl.XRP(drops),
	}
	if tag := strings.TrimSpace(req.DestinationTag); tag != "" {
		v, err := strconv.ParseUint(tag, 10, 32)
		if err != nil {
			return xrpl.TxJSON{}, fmt.Errorf("%w: destination tag %q", ErrInvalidPayment, req.DestinationTag)
		}
		t := uint32(v)
		tx.DestinationTag = &t
	}
	return tx, nil
}
