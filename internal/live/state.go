package live

import (
	"fmt"

	"github.com/congo-pay/xrp_wallet/internal/account"
	"github.com/congo-pay/xrp_wallet/internal/ledger"
)

// State is the subscription state of the Controller.
type State int

const (
	// Idle: no account selected, no subscription.
	Idle State = iota
	// Subscribing: an account is selected and its subscription is being set up.
	Subscribing
	// Live: subscribed with a listener attached; events are relayed.
	Live
	// Degraded: an account is selected but subscribing failed or the
	// connection was lost. Manual refreshes still work; live updates resume
	// on the next selection.
	Degraded
)

var stateNames = [...]string{"idle", "subscribing", "live", "degraded"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Snapshot is a copy of everything the Controller exposes.
type Snapshot struct {
	State          State
	Selected       *account.Account
	Balance        ledger.Balance
	Transactions   []ledger.Transaction
	Reserve        ledger.Reserve
	SubscribeError string
}
