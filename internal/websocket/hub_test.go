package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

// mockClient has a send channel but no connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("ClientCount = %d, want 2", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}

	hub.Unregister(c2)
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount = %d, want 0", got)
	}
}

func TestCalendarEventChanged(t *testing.T) {
	hub := NewHub(nil)
	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)

	hub.CalendarEventChanged("updated", 42, "2024-06-01")

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != "calendar_event_updated" {
			t.Errorf("type = %q, want %q", got.Type, "calendar_event_updated")
		}
		if got.Entity != EventEntity || got.Action != "updated" || got.ID != 42 {
			t.Errorf("message = %+v", got)
		}
		if got.Extra["start_date"] != "2024-06-01" {
			t.Errorf("start_date = %v", got.Extra["start_date"])
		}
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.CalendarEventChanged("deleted", 1, "2024-06-01")
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.CalendarEventChanged("created", int64(i+1), "2024-06-01")
	}
	// Dropped rather than blocking.
	hub.CalendarEventChanged("created", 999, "2024-06-01")

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.CalendarEventChanged("created", id, "2024-06-01")
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i))
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for hub.ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	hub.CalendarEventChanged("created", 7, "2024-06-03")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "calendar_event_created" || got.ID != 7 {
		t.Errorf("message = %+v", got)
	}

	conn.Close(ws.StatusNormalClosure, "")
	for hub.ClientCount() != 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never unregistered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubscriptionFilter(t *testing.T) {
	hub := NewHub(slog.Default())
	june := mockClient(hub)
	all := mockClient(hub)
	hub.Register(june)
	hub.Register(all)
	defer hub.Unregister(june)
	defer hub.Unregister(all)

	if !june.Subscribe(Subscription{Start: "2024-06-01", End: "2024-06-30"}) {
		t.Fatal("valid subscription rejected")
	}
	for _, bad := range []Subscription{
		{Start: "2024-06-30", End: "2024-06-01"},
		{Start: "June", End: "2024-06-30"},
		{Start: "2024-06-01"},
	} {
		if june.Subscribe(bad) {
			t.Errorf("Subscribe(%+v) accepted", bad)
		}
	}

	hub.CalendarEventChanged("created", 1, "2024-07-04")
	hub.CalendarEventChanged("created", 2, "2024-06-30")
	hub.Broadcast(NewMessage(EventEntity, "deleted", 3, nil))

	if got := receive(t, june); got.ID != 2 {
		t.Errorf("june first message id = %d, want 2", got.ID)
	}
	if got := receive(t, june); got.ID != 3 {
		t.Errorf("june second message id = %d, want 3", got.ID)
	}
	if n := len(all.send); n != 3 {
		t.Errorf("unfiltered client buffered %d, want 3", n)
	}

	june.Subscribe(Subscription{})
	hub.CalendarEventChanged("updated", 4, "2025-01-01")
	if got := receive(t, june); got.ID != 4 {
		t.Errorf("after clearing, id = %d, want 4", got.ID)
	}
}

func TestSubscribeOverConnection(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(HandleWebSocket(hub, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	if err := conn.Write(ctx, ws.MessageText, []byte(`{"start":"2024-07-01","end":"2024-07-31"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	subscribed := func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			c.mu.Lock()
			ok := c.sub != nil
			c.mu.Unlock()
			if ok {
				return true
			}
		}
		return false
	}
	for !subscribed() {
		select {
		case <-ctx.Done():
			t.Fatal("subscription never applied")
		case <-time.After(5 * time.Millisecond):
		}
	}

	hub.CalendarEventChanged("created", 1, "2024-06-15")
	hub.CalendarEventChanged("created", 2, "2024-07-15")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("first delivered id = %d, want 2", got.ID)
	}
}
