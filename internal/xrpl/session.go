// Package xrpl talks to an XRP Ledger node over its websocket API. It defines
// the Session contract the rest of the service depends on, the wire shapes of
// the commands and streams it uses, and a gorilla/websocket backed Client.
package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
)

// Command names and stream types of the node API.
const (
	CommandAccountInfo   = "account_info"
	CommandAccountTx     = "account_tx"
	CommandServerInfo    = "server_info"
	CommandSubscribe     = "subscribe"
	CommandUnsubscribe   = "unsubscribe"
	CommandSign          = "sign"
	CommandSubmit        = "submit"
	CommandTx            = "tx"
	CommandLedgerCurrent = "ledger_current"

	EventTransaction = "transaction"
	// EventDisconnected is emitted by a session whose connection was lost
	// without Disconnect being called. The payload is a DisconnectEvent.
	EventDisconnected = "disconnected"
)

// DisconnectEvent is the payload of EventDisconnected.
type DisconnectEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ParseDisconnectEvent decodes an EventDisconnected payload into an error
// matching ErrConnectionLost.
func ParseDisconnectEvent(payload []byte) error {
	var ev DisconnectEvent
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Error == "" {
		return ErrConnectionLost
	}
	return fmt.Errorf("%w: %s", ErrConnectionLost, ev.Error)
}

// Params are the command specific fields merged into a request.
type Params map[string]any

// Handler receives the raw payload of a stream message.
type Handler func(payload json.RawMessage)

// ListenerID identifies a registered Handler for removal.
type ListenerID uint64

// Session is a connection handle to a node: request/response calls plus
// account subscriptions delivered to registered listeners.
type Session interface {
	// Connect opens the connection. It is a no-op when already connected.
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// Request sends command with params and decodes the result into out,
	// which may be nil.
	Request(ctx context.Context, command string, params Params, out any) error

	Subscribe(ctx context.Context, accounts ...string) error
	Unsubscribe(ctx context.Context, accounts ...string) error

	On(eventType string, h Handler) ListenerID
	RemoveListener(eventType string, id ListenerID)
}

// Dialer hands out fresh, unconnected sessions for one-shot queries.
type Dialer interface {
	NewSession() Session
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func() Session

// NewSession calls f.
func (f DialerFunc) NewSession() Session { return f() }
