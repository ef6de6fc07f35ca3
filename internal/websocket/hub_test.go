package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, communityID, userID string) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		communityID: communityID,
		userID:      userID,
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

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Errorf("unexpected message %s", data)
	default:
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "c1", "u1")
	c2 := mockClient(hub, "c1", "u2")
	c3 := mockClient(hub, "c2", "u3")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount("c1"); got != 2 {
		t.Fatalf("expected 2 clients in c1, got %d", got)
	}
	if got := hub.ClientCount("c2"); got != 1 {
		t.Fatalf("expected 1 client in c2, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
	hub.Unregister(c3)

	if got := hub.ClientCount("c1"); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "c1", "u1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount("c1"); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastStaysInCommunity(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "c1", "u1")
	c2 := mockClient(hub, "c1", "u2")
	outsider := mockClient(hub, "c2", "u3")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(outsider)

	hub.Broadcast("c1", NewMessage("quest", "claimed", "q1", map[string]any{"status": "in_progress"}))

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got.Type != "quest_claimed" {
			t.Errorf("type = %s, want quest_claimed", got.Type)
		}
		if got.ID != "q1" {
			t.Errorf("id = %s, want q1", got.ID)
		}
		if got.Extra["status"] != "in_progress" {
			t.Errorf("extra = %v", got.Extra)
		}
	}
	expectNothing(t, outsider)
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	target := mockClient(hub, "c1", "u1")
	other := mockClient(hub, "c1", "u2")
	hub.Register(target)
	hub.Register(other)

	hub.SendToUser("c1", "u1", NewMessage("notification", "created", "n1", nil))

	if got := receive(t, target); got.Type != "notification_created" {
		t.Errorf("type = %s, want notification_created", got.Type)
	}
	expectNothing(t, other)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast("c1", NewMessage("quest", "created", "q1", nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "c1", "u1")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast("c1", NewMessage("test", "fill", "", nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast("c1", NewMessage("test", "dropped", "", nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("quest", "completed", "q5", nil)
	if msg.Type != "quest_completed" {
		t.Errorf("expected type quest_completed, got %s", msg.Type)
	}
	if msg.Entity != "quest" {
		t.Errorf("expected entity quest, got %s", msg.Entity)
	}
	if msg.Action != "completed" {
		t.Errorf("expected action completed, got %s", msg.Action)
	}
	if msg.ID != "q5" {
		t.Errorf("expected id q5, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			community := "c1"
			if i%2 == 0 {
				community = "c2"
			}
			c := mockClient(hub, community, "u")
			hub.Register(c)
			hub.Broadcast(community, NewMessage("test", "concurrent", "", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	if got := hub.ClientCount("c1") + hub.ClientCount("c2"); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
