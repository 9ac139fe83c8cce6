package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/congo-pay/xrp_wallet/internal/logging"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
	"github.com/congo-pay/xrp_wallet/internal/xrpl/xrpltest"
)

func TestNodeLedgerBalance(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		s.Handle(xrpl.CommandAccountInfo, func(p xrpl.Params) (any, error) {
			if p["ledger_index"] != xrpl.LedgerIndexValidated {
				t.Errorf("expected validated ledger, got %v", p["ledger_index"])
			}
			return map[string]any{"account_data": map[string]any{"Account": p["account"], "Balance": "123456789"}}, nil
		})
	})
	l := NewNodeLedger(dialer, logging.Discard())

	bal, err := l.Balance(context.Background(), "rFunded")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Known || bal.Amount.String() != "123.456789" || bal.Address != "rFunded" {
		t.Fatalf("unexpected balance %+v", bal)
	}
	if dialer.Open() != 0 || len(dialer.Sessions()) != 1 {
		t.Fatalf("expected one released session, open=%d", dialer.Open())
	}
}

func TestNodeLedgerBalanceOfUnfundedAccountIsUnknown(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		s.Fail(xrpl.CommandAccountInfo, &xrpl.NodeError{Command: xrpl.CommandAccountInfo, Code: "actNotFound", Number: 19})
	})
	l := NewNodeLedger(dialer, logging.Discard())

	bal, err := l.Balance(context.Background(), "rNew")
	if err != nil {
		t.Fatalf("expected no error for unfunded account, got %v", err)
	}
	if bal.Known || bal.String() != "unknown" {
		t.Fatalf("expected unknown balance, got %+v", bal)
	}
	if dialer.Open() != 0 {
		t.Fatal("session leaked")
	}
}

func TestNodeLedgerBalanceReportsOtherFailures(t *testing.T) {
	boom := errors.New("boom")
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) { s.FailConnect(boom) })
	l := NewNodeLedger(dialer, logging.Discard())

	bal, err := l.Balance(context.Background(), "rAny")
	if bal.Known {
		t.Fatalf("expected unknown balance, got %+v", bal)
	}
	var netErr *xrpl.NetworkError
	if !errors.As(err, &netErr) || !errors.Is(err, boom) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestNodeLedgerHistory(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		s.Handle(xrpl.CommandAccountTx, func(p xrpl.Params) (any, error) {
			if p["limit"] != HistoryLimit || p["forward"] != false || p["ledger_index_min"] != -1 || p["ledger_index_max"] != -1 {
				t.Errorf("unexpected account_tx params %v", p)
			}
			return map[string]any{"account": p["account"], "transactions": []any{
				map[string]any{
					"tx":   map[string]any{"TransactionType": "Payment", "Account": "rOther", "Destination": "rMe", "Amount": "1000000", "hash": "H"},
					"meta": map[string]any{"TransactionResult": "tesSUCCESS", "delivered_amount": "1000000"},
				},
			}}, nil
		})
	})
	l := NewNodeLedger(dialer, logging.Discard())

	txs, err := l.History(context.Background(), "rMe")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txs) != 1 || txs[0].Hash != "H" || txs[0].Direction != Received {
		t.Fatalf("unexpected history %+v", txs)
	}
	if dialer.Open() != 0 {
		t.Fatal("session leaked")
	}
}

func TestNodeLedgerHistoryFailureIsEmpty(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		s.Fail(xrpl.CommandAccountTx, &xrpl.NodeError{Command: xrpl.CommandAccountTx, Code: "tooBusy"})
	})
	l := NewNodeLedger(dialer, logging.Discard())

	txs, err := l.History(context.Background(), "rMe")
	if err == nil {
		t.Fatal("expected error")
	}
	if txs == nil || len(txs) != 0 {
		t.Fatalf("expected empty history, got %#v", txs)
	}
	if dialer.Open() != 0 {
		t.Fatal("session leaked")
	}
}

func TestNodeLedgerReserve(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		s.Respond(xrpl.CommandServerInfo, map[string]any{"info": map[string]any{
			"validated_ledger": map[string]any{"seq": 10, "base_fee_xrp": 0.00001, "reserve_base_xrp": 10, "reserve_inc_xrp": 2},
		}})
	})
	l := NewNodeLedger(dialer, logging.Discard())

	r, err := l.Reserve(context.Background())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !r.Known || r.String() != "10" {
		t.Fatalf("unexpected reserve %+v", r)
	}
}

func TestNodeLedgerReserveWithoutValidatedLedger(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		s.Respond(xrpl.CommandServerInfo, map[string]any{"info": map[string]any{"build_version": "2.0.0"}})
	})
	l := NewNodeLedger(dialer, logging.Discard())

	r, err := l.Reserve(context.Background())
	if !errors.Is(err, ErrReserveUnavailable) || r.Known {
		t.Fatalf("expected unavailable reserve, got %+v %v", r, err)
	}
}

func TestInMemoryLedger(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	bal, err := l.Balance(ctx, "rA")
	if err != nil || bal.Known {
		t.Fatalf("expected unfunded account, got %+v %v", bal, err)
	}

	SeedBalance(l, "rA", "15.5")
	bal, _ = l.Balance(ctx, "rA")
	if !bal.Known || bal.String() != "15.5" {
		t.Fatalf("unexpected seeded balance %+v", bal)
	}
	if Calls(l, "balance", "rA") != 2 {
		t.Fatalf("expected 2 balance reads, got %d", Calls(l, "balance", "rA"))
	}

	FailWith(l, errors.New("down"))
	if _, err := l.History(ctx, "rA"); err == nil {
		t.Fatal("expected failure")
	}
}
