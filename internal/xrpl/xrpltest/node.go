package xrpltest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/congo-pay/xrp_wallet/internal/xrpl"
)

// Node is a websocket server answering subscribe and unsubscribe the way a
// node does, for tests that run a real xrpl.Client.
type Node struct {
	srv *httptest.Server

	mu         sync.Mutex
	conns      map[*websocket.Conn]struct{}
	subscribes int
}

// NewNode starts a Node that is shut down when the test ends.
func NewNode(t *testing.T) *Node {
	t.Helper()
	n := &Node{conns: make(map[*websocket.Conn]struct{})}
	upgrader := websocket.Upgrader{}
	n.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n.mu.Lock()
		n.conns[conn] = struct{}{}
		n.mu.Unlock()
		defer n.forget(conn)
		n.serve(conn)
	}))
	t.Cleanup(func() {
		n.HangUp()
		n.srv.Close()
	})
	return n
}

// URL is the websocket address of the node.
func (n *Node) URL() string {
	return "ws" + strings.TrimPrefix(n.srv.URL, "http")
}

// HangUp closes every open connection from the server side.
func (n *Node) HangUp() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for conn := range n.conns {
		_ = conn.Close()
		delete(n.conns, conn)
	}
}

// Subscribes counts subscribe commands received.
func (n *Node) Subscribes() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subscribes
}

func (n *Node) forget(conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.conns[conn]; ok {
		_ = conn.Close()
		delete(n.conns, conn)
	}
}

func (n *Node) serve(conn *websocket.Conn) {
	for {
		var req map[string]any
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		id := req["id"]
		switch req["command"] {
		case xrpl.CommandSubscribe, xrpl.CommandUnsubscribe:
			if req["command"] == xrpl.CommandSubscribe {
				n.mu.Lock()
				n.subscribes++
				n.mu.Unlock()
			}
			_ = conn.WriteJSON(map[string]any{"id": id, "type": "response", "status": "success", "result": map[string]any{}})
		default:
			_ = conn.WriteJSON(map[string]any{"id": id, "type": "response", "status": "error", "error": "unknownCmd"})
		}
	}
}
