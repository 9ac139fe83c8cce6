package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// ErrReserveUnavailable is returned when server_info carries no validated
// ledger, e.g. while the node is still syncing.
var ErrReserveUnavailable = errors.New("validated ledger not available")

// NodeLedger reads account state from a node. Every call opens its own
// session and closes it before returning.
type NodeLedger struct {
	dialer xrpl.Dialer
	logger *slog.Logger
}

// NewNodeLedger returns a Ledger backed by sessions from dialer.
func NewNodeLedger(dialer xrpl.Dialer, logger *slog.Logger) *NodeLedger {
	return &NodeLedger{dialer: dialer, logger: logger.With("component", "ledger")}
}

// Balance fetches the validated XRP balance of address.
func (l *NodeLedger) Balance(ctx context.Context, address string) (Balance, error) {
	var info xrpl.AccountInfoResult
	err := l.query(ctx, xrpl.CommandAccountInfo, xrpl.Params{
		"account":      address,
		"ledger_index": xrpl.LedgerIndexValidated,
	}, &info)
	if xrpl.IsAccountNotFound(err) {
		l.logger.Info("account not found on ledger", "address", address)
		return UnknownBalance(address), nil
	}
	if err != nil {
		l.logger.Warn("fetch balance failed", "address", address, "error", err)
		return UnknownBalance(address), fmt.Errorf("fetch balance of %s: %w", address, err)
	}

	amount, err := xrpl.DropsToXRP(info.AccountData.Balance)
	if err != nil {
		l.logger.Warn("invalid balance from node", "address", address, "error", err)
		return UnknownBalance(address), fmt.Errorf("fetch balance of %s: %w", address, err)
	}
	return Balance{Address: address, Amount: amount, Known: true}, nil
}

// History fetches the most recent XRP payments of address, newest first.
func (l *NodeLedger) History(ctx context.Context, address string) ([]Transaction, error) {
	var result xrpl.AccountTxResult
	err := l.query(ctx, xrpl.CommandAccountTx, xrpl.Params{
		"account":          address,
		"ledger_index_min": -1,
		"ledger_index_max": -1,
		"limit":            HistoryLimit,
		"forward":          false,
	}, &result)
	if err != nil {
		if xrpl.IsAccountNotFound(err) {
			l.logger.Info("account not found on ledger", "address", address)
		} else {
			l.logger.Warn("fetch transactions failed", "address", address, "error", err)
		}
		return []Transaction{}, fmt.Errorf("fetch transactions of %s: %w", address, err)
	}
	return Project(address, result.Transactions), nil
}

// Reserve fetches the base reserve of the last validated ledger.
func (l *NodeLedger) Reserve(ctx context.Context) (Reserve, error) {
	var result xrpl.ServerInfoResult
	if err := l.query(ctx, xrpl.CommandServerInfo, nil, &result); err != nil {
		l.logger.Warn("fetch reserve failed", "error", err)
		return Reserve{}, fmt.Errorf("fetch reserve: %w", err)
	}
	vl := result.Info.ValidatedLedger
	if vl == nil {
		l.logger.Warn("fetch reserve failed", "error", ErrReserveUnavailable)
		return Reserve{}, ErrReserveUnavailable
	}
	return Reserve{Amount: vl.ReserveBaseXRP, Known: true}, nil
}

func (l *NodeLedger) query(ctx context.Context, command string, params xrpl.Params, out any) error {
	session := l.dialer.NewSession()
	defer func() {
		if err := session.Disconnect(); err != nil {
			l.logger.Debug("disconnect failed", "command", command, "error", err)
		}
	}()

	if err := session.Connect(ctx); err != nil {
		return err
	}
	return session.Request(ctx, command, params, out)
}
