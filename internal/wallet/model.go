package wallet

import (
	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/ledger"
	"github.com/congo-pay/xrp_wallet/internal/live"
)

// AccountView is an account as shown to the UI. The seed never leaves the service.
type AccountView struct {
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

// State is the UI view of the wallet: the selected account with its
// balance, history and the network reserve. Unknown amounts are null.
type State struct {
	State          string               `json:"state"`
	Selected       *AccountView         `json:"selected"`
	Balance        *string              `json:"balance"`
	Reserve        *string              `json:"reserve"`
	Transactions   []ledger.Transaction `json:"transactions"`
	SubscribeError string               `json:"subscribe_error,omitempty"`
}

func viewOf(a account.Account) AccountView {
	return AccountView{Address: a.Address, Label: a.Label}
}

func stateOf(s live.Snapshot) State {
	out := State{
		State:          s.State.String(),
		Transactions:   s.Transactions,
		SubscribeError: s.SubscribeError,
	}
	if s.Selected != nil {
		v := viewOf(*s.Selected)
		out.Selected = &v
	}
	if s.Balance.Known {
		v := s.Balance.Amount.String()
		out.Balance = &v
	}
	if s.Reserve.Known {
		v := s.Reserve.Amount.String()
		out.Reserve = &v
	}
	return out
}
