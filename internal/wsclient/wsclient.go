// Package wsclient backs the `ws_dial`/`ws_send`/`ws_recv` intrinsics
// with the same opaque-handle pattern as internal/sqlstore.
package wsclient

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Store is a registry of open client websocket connections.
type Store struct {
	mu      sync.Mutex
	next    int64
	conns   map[int64]*websocket.Conn
	sendMus map[int64]*sync.Mutex
}

// New returns an empty handle table.
func New() *Store {
	return &Store{
		conns:   make(map[int64]*websocket.Conn),
		sendMus: make(map[int64]*sync.Mutex),
	}
}

// Dial opens a client websocket connection to url and returns its handle.
func (st *Store) Dial(url string) (int64, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return 0, fmt.Errorf("ws_dial: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.next++
	h := st.next
	st.conns[h] = conn
	st.sendMus[h] = &sync.Mutex{}
	return h, nil
}

func (st *Store) get(handle int64) (*websocket.Conn, *sync.Mutex, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	conn, ok := st.conns[handle]
	if !ok {
		return nil, nil, fmt.Errorf("ws: handle %d is not open", handle)
	}
	return conn, st.sendMus[handle], nil
}

// Send writes msg as a single text frame.
func (st *Store) Send(handle int64, msg string) error {
	conn, mu, err := st.get(handle)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return fmt.Errorf("ws_send: %w", err)
	}
	return nil
}

// Recv blocks for the next text frame and returns it.
func (st *Store) Recv(handle int64) (string, error) {
	conn, _, err := st.get(handle)
	if err != nil {
		return "", err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("ws_recv: %w", err)
	}
	return string(data), nil
}
