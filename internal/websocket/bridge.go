// Package websocket pushes each connected participant a fresh copy of their
// table view whenever the table changes, and accepts submissions over the
// same connection.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/nfrund/tavern/internal/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second
	// Outbound frames buffered per client before it is dropped.
	sendBuffer = 16
)

// Viewer computes what user should currently see.
type Viewer func(ctx context.Context, user domain.User) (any, error)

// InboundHandler processes a frame sent by user. The returned error is
// reported back to that client only.
type InboundHandler func(ctx context.Context, user domain.User, frame []byte) error

// Client is one open connection.
type Client struct {
	ID   string
	User domain.User
	conn *websocket.Conn
	send chan []byte
}

// Bridge tracks the open connections.
type Bridge struct {
	viewer  Viewer
	inbound InboundHandler

	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	refresh    chan struct{}
	done       chan struct{}

	// AcceptOptions is passed to websocket.Accept.
	AcceptOptions *websocket.AcceptOptions
}

// NewBridge creates a bridge. Call Run before accepting connections.
func NewBridge(viewer Viewer, inbound InboundHandler) *Bridge {
	return &Bridge{
		viewer:     viewer,
		inbound:    inbound,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		refresh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Run manages client lifecycle until ctx ends, then closes every connection.
func (b *Bridge) Run(ctx context.Context) {
	slog.Info("Websocket bridge runner started")
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				delete(b.clients, c)
				close(c.send)
			}
			b.mu.Unlock()
			return

		case c := <-b.register:
			b.mu.Lock()
			b.clients[c] = struct{}{}
			b.mu.Unlock()
			slog.Info("Client registered", "client_id", c.ID, "uid", c.User.UID)
			go b.push(ctx, c)

		case c := <-b.unregister:
			b.drop(c)

		case <-b.refresh:
			for _, c := range b.snapshot() {
				go b.push(ctx, c)
			}
		}
	}
}

// Refresh asks Run to recompute every client's view. Calls made while a
// refresh is already queued are merged.
func (b *Bridge) Refresh() {
	select {
	case b.refresh <- struct{}{}:
	default:
	}
}

// Count returns the number of open connections.
func (b *Bridge) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Accept upgrades the request and serves user until the connection closes.
func (b *Bridge) Accept(w http.ResponseWriter, r *http.Request, user domain.User) error {
	conn, err := websocket.Accept(w, r, b.AcceptOptions)
	if err != nil {
		return err
	}

	c := &Client{ID: uuid.NewString(), User: user, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case b.register <- c:
	case <-b.done:
		return conn.Close(websocket.StatusGoingAway, "server shutting down")
	}

	go b.writePump(c)
	b.readPump(r.Context(), c)
	return nil
}

func (b *Bridge) snapshot() []*Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Client, 0, len(b.clients))
	for c := range b.clients {
		out = append(out, c)
	}
	return out
}

func (b *Bridge) drop(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
		slog.Info("Client unregistered", "client_id", c.ID, "uid", c.User.UID)
	}
}

// push computes the client's view and queues it.
func (b *Bridge) push(ctx context.Context, c *Client) {
	view, err := b.viewer(ctx, c.User)
	if err != nil {
		slog.Error("Failed to compute view", "client_id", c.ID, "uid", c.User.UID, "error", err)
		b.enqueue(c, Frame{Kind: FrameError, Error: err.Error()})
		return
	}
	b.enqueue(c, Frame{Kind: FrameView, View: view})
}

func (b *Bridge) enqueue(c *Client, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("Failed to encode frame", "client_id", c.ID, "error", err)
		return
	}

	b.mu.RLock()
	_, open := b.clients[c]
	if open {
		select {
		case c.send <- data:
		default:
			open = false
		}
	}
	b.mu.RUnlock()

	if !open {
		slog.Warn("Client send queue unavailable, dropping connection", "client_id", c.ID)
		b.drop(c)
	}
}

func (b *Bridge) readPump(ctx context.Context, c *Client) {
	defer func() {
		select {
		case b.unregister <- c:
		case <-b.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		_, frame, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("WebSocket closed normally by client", "client_id", c.ID)
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				slog.Error("WebSocket read error", "client_id", c.ID, "error", err)
			}
			return
		}
		if b.inbound == nil {
			continue
		}
		if err := b.inbound(ctx, c.User, frame); err != nil {
			b.enqueue(c, Frame{Kind: FrameError, Error: err.Error()})
		}
	}
}

func (b *Bridge) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.Error("WebSocket write error", "client_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				slog.Debug("WebSocket ping failed", "client_id", c.ID, "error", err)
				return
			}
		}
	}
}
