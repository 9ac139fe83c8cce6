package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// KindPaymentSent is emitted when a payment from the selected account validates.
	KindPaymentSent = "payment_sent"
	// KindPaymentReceived is emitted when a payment to the selected account validates.
	KindPaymentReceived = "payment_received"
	// KindPaymentFailed is emitted for any transaction event that did not succeed.
	KindPaymentFailed = "payment_failed"
	// KindTransactionSucceeded is emitted for other validated transactions
	// of the selected account, such as trust lines or offers.
	KindTransactionSucceeded = "transaction_succeeded"
)

// Message describes a notification payload.
type Message struct {
	Kind        string    `json:"kind"`
	Destination string    `json:"account"`
	Body        string    `json:"body"`
	Hash        string    `json:"hash,omitempty"`
	At          time.Time `json:"at"`
}

// Sent builds the notification for a validated outgoing payment.
func Sent(account, amount, hash string) Message {
	return Message{Kind: KindPaymentSent, Destination: account, Body: "Successfully sent " + amount, Hash: hash, At: time.Now().UTC()}
}

// Received builds the notification for a validated incoming payment.
func Received(account, amount, hash string) Message {
	return Message{Kind: KindPaymentReceived, Destination: account, Body: "Successfully received " + amount, Hash: hash, At: time.Now().UTC()}
}

// Failed builds the notification for a transaction that did not succeed.
func Failed(account, hash string) Message {
	return Message{Kind: KindPaymentFailed, Destination: account, Body: "Failed", Hash: hash, At: time.Now().UTC()}
}

// Succeeded builds the notification for a validated transaction that moved
// no displayable amount.
func Succeeded(account, txType, hash string) Message {
	return Message{Kind: KindTransactionSucceeded, Destination: account, Body: txType + " succeeded", Hash: hash, At: time.Now().UTC()}
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "account", message.Destination, "body", message.Body, "hash", message.Hash)
	return nil
}

// Multi sends every message to all notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
