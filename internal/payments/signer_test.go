package payments

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/logging"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
	"github.com/congo-pay/xrp_wallet/internal/xrpl/xrpltest"
)

// seed of the genesis account, derived from "masterpassphrase"
const sourceSeed = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"

func preparedPayment(t *testing.T) xrpl.TxJSON {
	t.Helper()
	tx, err := BuildPayment(source, Request{Amount: tenXRP(), Destination: destination, DestinationTag: "42"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tx.Fee = "12"
	tx.Sequence = 7
	tx.LastLedgerSequence = currentIndex + ledgerOffset
	return tx
}

func TestLocalSignerSignsWithAccountKey(t *testing.T) {
	acct := account.Account{Address: source, Seed: sourceSeed}

	res, err := LocalSigner{}.Sign(context.Background(), nil, acct, preparedPayment(t))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.EqualFold(res.TxJSON.SigningPubKey, sourceKey) {
		t.Fatalf("expected genesis public key, got %s", res.TxJSON.SigningPubKey)
	}
	if _, err := hex.DecodeString(res.TxBlob); err != nil || res.TxBlob == "" {
		t.Fatalf("expected hex blob, got %q", res.TxBlob)
	}
	if len(res.TxJSON.Hash) != 64 {
		t.Fatalf("expected transaction hash, got %q", res.TxJSON.Hash)
	}
	if res.TxJSON.Amount.Drops != "10000000" || *res.TxJSON.DestinationTag != 42 {
		t.Fatalf("payment fields changed while signing: %+v", res.TxJSON)
	}
}

func TestLocalSignerRejectsSeedOfAnotherAccount(t *testing.T) {
	acct := account.Account{Address: source, Seed: "sp6JS7f14BuwFY8Mw6bTtLKWauoUs"}
	if _, err := (LocalSigner{}).Sign(context.Background(), nil, acct, preparedPayment(t)); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected key mismatch, got %v", err)
	}
}

func TestLocalSignerRejectsMalformedSeed(t *testing.T) {
	acct := account.Account{Address: source, Seed: "not-a-seed"}
	if _, err := (LocalSigner{}).Sign(context.Background(), nil, acct, preparedPayment(t)); err == nil {
		t.Fatal("expected error for malformed seed")
	}
}

func TestSendXRPWithLocalSignerKeepsSeedInProcess(t *testing.T) {
	dialer := xrpltest.NewDialer(func(s *xrpltest.Session) {
		node(s)
		s.Fail(xrpl.CommandSign, &xrpl.NodeError{Command: xrpl.CommandSign, Code: "notSupported", Message: "Operation not supported."})
	})
	w := &fakeWallet{selected: &account.Account{Address: source, Seed: sourceSeed}}
	submitter := NewSubmitter(dialer, w, w, LocalSigner{}, logging.Discard(), time.Millisecond)

	res, err := submitter.SendXRP(context.Background(), Request{Amount: tenXRP(), Destination: destination})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Result != "tesSUCCESS" {
		t.Fatalf("unexpected result %+v", res)
	}

	session := dialer.Sessions()[0]
	if n := len(session.Calls(xrpl.CommandSign)); n != 0 {
		t.Fatalf("expected no sign request to the node, got %d", n)
	}
	for _, call := range session.Calls("") {
		if _, ok := call.Params["secret"]; ok {
			t.Fatalf("%s request carried the seed", call.Command)
		}
		for _, v := range call.Params {
			if str, ok := v.(string); ok && str == sourceSeed {
				t.Fatalf("%s request carried the seed", call.Command)
			}
		}
	}
	if blob, _ := session.Calls(xrpl.CommandSubmit)[0].Params["tx_blob"].(string); blob == "" || blob == "12000022" {
		t.Fatalf("expected locally signed blob, got %q", blob)
	}
}
