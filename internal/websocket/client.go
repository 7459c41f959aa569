package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	dateLayout     = "2006-01-02"
)

// Subscription narrows the calendar changes a client receives to events
// starting within [Start, End]. Sending an empty subscription clears it.
type Subscription struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s Subscription) valid() bool {
	start, err1 := time.Parse(dateLayout, s.Start)
	end, err2 := time.Parse(dateLayout, s.End)
	return err1 == nil && err2 == nil && !end.Before(start)
}

// Client is one connected subscriber.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu  sync.Mutex
	sub *Subscription
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Subscribe replaces the client's window. An empty subscription receives
// everything again; a malformed one is rejected.
func (c *Client) Subscribe(s Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Start == "" && s.End == "" {
		c.sub = nil
		return true
	}
	if !s.valid() {
		return false
	}
	c.sub = &s
	return true
}

// wants reports whether msg falls in the client's window. Messages without
// a start date always pass. Dates compare as strings in YYYY-MM-DD form.
func (c *Client) wants(msg Message) bool {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub == nil {
		return true
	}
	date, ok := msg.Extra["start_date"].(string)
	if !ok || date == "" {
		return true
	}
	return date >= sub.Start && date <= sub.End
}

// Run blocks until the connection ends, then unregisters the client.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

// readLoop accepts subscription updates. Anything that does not decode as
// one is ignored.
func (c *Client) readLoop(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != ws.MessageText {
			continue
		}
		var s Subscription
		if err := json.Unmarshal(data, &s); err != nil {
			c.hub.logger.Debug("ignoring client message", "error", err)
			continue
		}
		if !c.Subscribe(s) {
			c.hub.logger.Debug("ignoring invalid subscription", "start", s.Start, "end", s.End)
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
