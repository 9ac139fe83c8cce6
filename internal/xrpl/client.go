package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	closeGracePeriod = time.Second
	typeResponse     = "response"
	statusError      = "error"
)

// envelope is the part of every node message needed to route it.
type envelope struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

type reply struct {
	msg envelope
	err error
}

// Client is a Session over the node's websocket API. Responses are matched
// to requests by id; every other message is dispatched by its type to the
// registered listeners in arrival order.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	pending   map[string]chan reply
	listeners map[string]map[ListenerID]Handler
	nextID    ListenerID
	// closing is the connection Disconnect is shutting down; its read
	// failure is expected and not reported.
	closing *websocket.Conn

	writeMu sync.Mutex
}

// NewClient builds an unconnected client for the node at url.
func NewClient(url string, logger *slog.Logger) *Client {
	return &Client{
		url:       url,
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:    logger.With("component", "xrpl", "url", url),
		listeners: make(map[string]map[ListenerID]Handler),
	}
}

// NewDialer returns a Dialer producing a new Client per session.
func NewDialer(url string, logger *slog.Logger) Dialer {
	return DialerFunc(func() Session { return NewClient(url, logger) })
}

// Connect dials the node unless a connection is already open.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return &NetworkError{Op: "connect", Err: err}
	}
	c.conn = conn
	c.pending = make(map[string]chan reply)
	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection. Pending requests fail with a NetworkError.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.closing = conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	c.writeMu.Unlock()

	c.drop(conn, &NetworkError{Op: "request", Err: ErrNotConnected})
	return nil
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Request sends a command and waits for its response.
func (c *Client) Request(ctx context.Context, command string, params Params, out any) error {
	id := uuid.NewString()
	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = command

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", command, err)
	}

	ch := make(chan reply, 1)
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return &NetworkError{Op: command, Err: ErrNotConnected}
	}
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return &NetworkError{Op: command, Err: err}
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", command, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return r.err
		}
		if r.msg.Status == statusError {
			return &NodeError{
				Command: command,
				Code:    r.msg.Error,
				Number:  r.msg.ErrorCode,
				Message: r.msg.ErrorMessage,
			}
		}
		if out == nil || len(r.msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(r.msg.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", command, err)
		}
		return nil
	}
}

// Subscribe asks the node to stream transactions affecting accounts.
func (c *Client) Subscribe(ctx context.Context, accounts ...string) error {
	return c.Request(ctx, CommandSubscribe, Params{"accounts": accounts}, nil)
}

// Unsubscribe stops the transaction stream for accounts.
func (c *Client) Unsubscribe(ctx context.Context, accounts ...string) error {
	return c.Request(ctx, CommandUnsubscribe, Params{"accounts": accounts}, nil)
}

// On registers h for stream messages of eventType.
func (c *Client) On(eventType string, h Handler) ListenerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	if c.listeners[eventType] == nil {
		c.listeners[eventType] = make(map[ListenerID]Handler)
	}
	c.listeners[eventType][c.nextID] = h
	return c.nextID
}

// RemoveListener unregisters a handler. Unknown ids are ignored.
func (c *Client) RemoveListener(eventType string, id ListenerID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners[eventType], id)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			cause := &NetworkError{Op: "read", Err: err}
			if c.drop(conn, cause) {
				c.reportLost(conn, cause)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("discarding undecodable message", "error", err)
			continue
		}
		if env.Type == typeResponse || (env.Type == "" && env.ID != "") {
			c.resolve(env)
			continue
		}
		c.dispatch(env.Type, data)
	}
}

func (c *Client) resolve(env envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	delete(c.pending, env.ID)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request", "id", env.ID)
		return
	}
	ch <- reply{msg: env}
}

func (c *Client) dispatch(eventType string, data []byte) {
	c.mu.Lock()
	ids := make([]ListenerID, 0, len(c.listeners[eventType]))
	for id := range c.listeners[eventType] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, c.listeners[eventType][id])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(json.RawMessage(data))
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// reportLost emits EventDisconnected for conn unless Disconnect closed it.
func (c *Client) reportLost(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	expected := c.closing == conn
	c.mu.Unlock()
	if expected {
		return
	}
	c.logger.Warn("connection lost", "error", cause)
	payload, err := json.Marshal(DisconnectEvent{Type: EventDisconnected, Error: cause.Error()})
	if err != nil {
		return
	}
	c.dispatch(EventDisconnected, payload)
}

// drop tears down conn if it is still the active connection and fails
// every request waiting on it. It reports whether conn was active.
func (c *Client) drop(conn *websocket.Conn, cause error) bool {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return false
	}
	pending := c.pending
	c.conn = nil
	c.pending = nil
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: cause}
	}
	if err := conn.Close(); err != nil {
		c.logger.Debug("close connection", "error", err)
	}
	return true
}
