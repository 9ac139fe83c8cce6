package xrpl

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound matches a NodeError reporting that the requested
	// account does not exist in the queried ledger. Unfunded accounts stay in
	// this state until their first incoming payment.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNotConnected is returned by requests issued on a closed session.
	ErrNotConnected = errors.New("session not connected")

	// ErrConnectionLost reports a connection the node or the network closed.
	ErrConnectionLost = errors.New("connection to node lost")
)

const codeAccountNotFound = "actNotFound"

// NetworkError reports a failure of the transport to the node.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("xrpl %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NodeError is an error response returned by the node for a request.
type NodeError struct {
	Command string
	Code    string
	Number  int
	Message string
}

func (e *NodeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("xrpl %s: %s (%s)", e.Command, e.Code, e.Message)
	}
	return fmt.Sprintf("xrpl %s: %s", e.Command, e.Code)
}

// Is reports actNotFound responses as ErrAccountNotFound.
func (e *NodeError) Is(target error) bool {
	return target == ErrAccountNotFound && e.Code == codeAccountNotFound
}

// IsAccountNotFound is shorthand for errors.Is(err, ErrAccountNotFound).
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
