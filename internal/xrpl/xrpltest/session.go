// Package xrpltest provides an in-memory xrpl.Session whose command
// responses are scripted by tests.
package xrpltest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// Responder produces the result (or error) of a command.
type Responder func(params xrpl.Params) (any, error)

// Call records a request received by a Session.
type Call struct {
	Command string
	Params  xrpl.Params
}

// Accounts returns the "accounts" parameter of subscribe/unsubscribe calls.
func (c Call) Accounts() []string {
	accounts, _ := c.Params["accounts"].([]string)
	return accounts
}

// Session is a scriptable xrpl.Session.
type Session struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	responders  map[string]Responder
	calls       []Call
	listeners   map[string]map[xrpl.ListenerID]xrpl.Handler
	nextID      xrpl.ListenerID
	connects    int
	disconnects int
}

// NewSession returns a disconnected session where subscribe and
// unsubscribe succeed and every other command is unknown.
func NewSession() *Session {
	s := &Session{
		responders: make(map[string]Responder),
		listeners:  make(map[string]map[xrpl.ListenerID]xrpl.Handler),
	}
	ok := func(xrpl.Params) (any, error) { return map[string]any{}, nil }
	s.responders[xrpl.CommandSubscribe] = ok
	s.responders[xrpl.CommandUnsubscribe] = ok
	return s
}

// Handle installs r as the responder for command.
func (s *Session) Handle(command string, r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders[command] = r
}

// Respond makes command always succeed with result.
func (s *Session) Respond(command string, result any) {
	s.Handle(command, func(xrpl.Params) (any, error) { return result, nil })
}

// Fail makes command always fail with err.
func (s *Session) Fail(command string, err error) {
	s.Handle(command, func(xrpl.Params) (any, error) { return nil, err })
}

// FailConnect makes Connect return err until cleared with nil.
func (s *Session) FailConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectErr = err
}

func (s *Session) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return &xrpl.NetworkError{Op: "connect", Err: s.connectErr}
	}
	if !s.connected {
		s.connected = true
		s.connects++
	}
	return nil
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		s.connected = false
		s.disconnects++
	}
	return nil
}

func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Request(ctx context.Context, command string, params xrpl.Params, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return &xrpl.NetworkError{Op: command, Err: xrpl.ErrNotConnected}
	}
	s.calls = append(s.calls, Call{Command: command, Params: params})
	r, ok := s.responders[command]
	s.mu.Unlock()

	if !ok {
		return &xrpl.NodeError{Command: command, Code: "unknownCmd"}
	}
	result, err := r(params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode scripted %s result: %w", command, err)
	}
	return json.Unmarshal(b, out)
}

func (s *Session) Subscribe(ctx context.Context, accounts ...string) error {
	return s.Request(ctx, xrpl.CommandSubscribe, xrpl.Params{"accounts": accounts}, nil)
}

func (s *Session) Unsubscribe(ctx context.Context, accounts ...string) error {
	return s.Request(ctx, xrpl.CommandUnsubscribe, xrpl.Params{"accounts": accounts}, nil)
}

func (s *Session) On(eventType string, h xrpl.Handler) xrpl.ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.listeners[eventType] == nil {
		s.listeners[eventType] = make(map[xrpl.ListenerID]xrpl.Handler)
	}
	s.listeners[eventType][s.nextID] = h
	return s.nextID
}

func (s *Session) RemoveListener(eventType string, id xrpl.ListenerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners[eventType], id)
}

// Emit delivers payload, JSON encoded, to the listeners of eventType.
func (s *Session) Emit(eventType string, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	ids := make([]xrpl.ListenerID, 0, len(s.listeners[eventType]))
	for id := range s.listeners[eventType] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]xrpl.Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.listeners[eventType][id])
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(b)
	}
}

// Drop simulates the node closing the connection: the session becomes
// disconnected and EventDisconnected listeners are notified with reason.
func (s *Session) Drop(reason string) {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	s.Emit(xrpl.EventDisconnected, xrpl.DisconnectEvent{Type: xrpl.EventDisconnected, Error: reason})
}

// Listeners returns the number of handlers registered for eventType.
func (s *Session) Listeners(eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[eventType])
}

// Calls returns the recorded requests for command, or all when empty.
func (s *Session) Calls(command string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if command == "" || c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

// Connects returns how many times the session went from closed to open.
func (s *Session) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Disconnects returns how many times an open session was closed.
func (s *Session) Disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

// Dialer hands out a new scripted Session per call.
type Dialer struct {
	mu        sync.Mutex
	configure func(*Session)
	sessions  []*Session
}

// NewDialer returns a Dialer applying configure to every new session.
func NewDialer(configure func(*Session)) *Dialer {
	return &Dialer{configure: configure}
}

func (d *Dialer) NewSession() xrpl.Session {
	s := NewSession()
	if d.configure != nil {
		d.configure(s)
	}
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s
}

// Sessions returns every session handed out so far.
func (d *Dialer) Sessions() []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Session(nil), d.sessions...)
}

// Open counts sessions that are still connected.
func (d *Dialer) Open() int {
	n := 0
	for _, s := range d.Sessions() {
		if s.IsConnected() {
			n++
		}
	}
	return n
}
