package payments

import (
	"context"
	"fmt"

	"github.com/Peersyst/xrpl-go/xrpl/wallet"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// Signer signs a prepared transaction with the credentials of acct. The
// session is connected and may be used for the call.
type Signer interface {
	Sign(ctx context.Context, session xrpl.Session, acct account.Account, tx xrpl.TxJSON) (xrpl.SignResult, error)
}

// LocalSigner derives the key pair from the account seed and signs in
// process. Nothing is sent to the node.
type LocalSigner struct{}

func (LocalSigner) Sign(_ context.Context, _ xrpl.Session, acct account.Account, tx xrpl.TxJSON) (xrpl.SignResult, error) {
	w, err := wallet.FromSeed(acct.Seed, "")
	if err != nil {
		return xrpl.SignResult{}, fmt.Errorf("derive keys: %w", err)
	}
	if derived := string(w.ClassicAddress); derived != acct.Address {
		return xrpl.SignResult{}, fmt.Errorf("%w: seed belongs to %s", ErrKeyMismatch, derived)
	}

	blob, hash, err := w.Sign(flatten(tx))
	if err != nil {
		return xrpl.SignResult{}, fmt.Errorf("sign: %w", err)
	}
	tx.SigningPubKey = w.PublicKey
	tx.Hash = hash
	return xrpl.SignResult{TxBlob: blob, TxJSON: tx}, nil
}

// flatten renders a payment in the field map the binary codec encodes.
func flatten(tx xrpl.TxJSON) map[string]interface{} {
	m := map[string]interface{}{
		"TransactionType":    tx.TransactionType,
		"Account":            tx.Account,
		"Destination":        tx.Destination,
		"Amount":             tx.Amount.Drops,
		"Fee":                tx.Fee,
		"Sequence":           tx.Sequence,
		"LastLedgerSequence": tx.LastLedgerSequence,
	}
	if tx.DestinationTag != nil {
		m["DestinationTag"] = *tx.DestinationTag
	}
	return m
}

// NodeSigner signs with the node's sign command. The seed leaves the
// process, so it is only suitable for a node the operator controls, with
// signing enabled.
type NodeSigner struct{}

func (NodeSigner) Sign(ctx context.Context, session xrpl.Session, acct account.Account, tx xrpl.TxJSON) (xrpl.SignResult, error) {
	var res xrpl.SignResult
	err := session.Request(ctx, xrpl.CommandSign, xrpl.Params{
		"tx_json": tx,
		"secret":  acct.Seed,
	}, &res)
	if err != nil {
		return xrpl.SignResult{}, err
	}
	if res.TxBlob == "" {
		return xrpl.SignResult{}, fmt.Errorf("sign returned no blob")
	}

	signer, err := xrpl.AddressFromPublicKey(res.TxJSON.SigningPubKey)
	if err != nil {
		return xrpl.SignResult{}, fmt.Errorf("signing key: %w", err)
	}
	if signer != acct.Address {
		return xrpl.SignResult{}, fmt.Errorf("%w: key of %s", ErrKeyMismatch, signer)
	}
	return res, nil
}
