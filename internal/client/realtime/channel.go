// Package realtime bridges the socket connection and the conversation
// store. The Channel is a thin emit/on/off event transport; the Adapter
// owns the join/teardown lifecycle; the Typist debounces typing signals.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatly-app/chatly-tui/internal/client/debug"
)

const writeWait = 10 * time.Second

// Events of the realtime contract.
const (
	EventJoinChat       = "joinChat"
	EventSendMessage    = "sendMessage"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventReceiveMessage = "receiveMessage"
)

// Handler receives the raw payload of one inbound event.
type Handler func(data json.RawMessage)

// Channel is the bidirectional event transport. Delivery is at-most-once
// and best-effort; a failed emit is not retried.
type Channel interface {
	Emit(event string, v any) error
	On(event string, h Handler) (off func())
	Close() error
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSChannel implements Channel over a websocket.
type WSChannel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]map[int]Handler
	nextID   int

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the socket endpoint. The token authenticates the
// upgrade request.
func Dial(ctx context.Context, url, token string) (*WSChannel, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}

	ch := &WSChannel{
		conn:     conn,
		handlers: make(map[string]map[int]Handler),
		done:     make(chan struct{}),
	}
	go ch.readLoop()
	return ch, nil
}

func (c *WSChannel) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			debug.Log("realtime: read loop ended: %v", err)
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			debug.Log("realtime: bad frame: %v", err)
			continue
		}
		c.dispatch(f)
	}
}

func (c *WSChannel) dispatch(f frame) {
	c.mu.RLock()
	handlers := make([]Handler, 0, len(c.handlers[f.Event]))
	for _, h := range c.handlers[f.Event] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		h(f.Data)
	}
}

func (c *WSChannel) Emit(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *WSChannel) On(event string, h Handler) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	c.handlers[event][id] = h
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers[event], id)
		c.mu.Unlock()
	}
}

func (c *WSChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

// Done is closed when the connection is gone, however it ended.
func (c *WSChannel) Done() <-chan struct{} {
	return c.done
}
