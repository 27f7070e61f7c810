package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, orderID uuid.UUID) *Client {
	return &Client{
		hub:     hub,
		orderID: orderID,
		send:    make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orderID := uuid.New()
	client := mockClient(hub, orderID)

	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[orderID] == nil {
		t.Fatal("order room not created")
	}
	if !hub.rooms[orderID][client] {
		t.Fatal("client not registered in order room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orderID := uuid.New()
	client := mockClient(hub, orderID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[orderID] != nil {
		t.Fatal("order room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleOrder(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	order1 := uuid.New()
	order2 := uuid.New()

	client1 := mockClient(hub, order1)
	client2 := mockClient(hub, order2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to order1 only
	testPayload := json.RawMessage(`{"bill_id":2}`)
	event := Event{
		Type:    EventBillPaid,
		Payload: testPayload,
	}
	hub.BroadcastToOrder(order1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventBillPaid {
			t.Errorf("expected type %q, got %q", EventBillPaid, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload %s, got %s", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different order")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	orderID := uuid.New()
	client1 := mockClient(hub, orderID)
	client2 := mockClient(hub, orderID)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToOrder(orderID, NewEvent(EventPaymentPartial, map[string]any{
		"bill_id":   1,
		"remainder": "20.00",
	}))

	for i, client := range []*Client{client1, client2} {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal message: %v", i+1, err)
			}
			if received.Type != EventPaymentPartial {
				t.Errorf("client%d: expected type %q, got %q", i+1, EventPaymentPartial, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestNewEventMarshalsPayload(t *testing.T) {
	event := NewEvent(EventOrderSettled, map[string]string{"order_id": "abc"})
	if event.Type != EventOrderSettled {
		t.Errorf("type: got %q, want %q", event.Type, EventOrderSettled)
	}
	var payload map[string]string
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["order_id"] != "abc" {
		t.Errorf("payload order_id: got %q", payload["order_id"])
	}
}

func TestBroadcastToEmptyRoomDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	done := make(chan struct{})
	go func() {
		hub.BroadcastToOrder(uuid.New(), NewEvent(EventBillPaid, nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("broadcast to empty room blocked")
	}
}
