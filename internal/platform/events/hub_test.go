package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, 8)}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c-1", TopicApprovals)

	hub.Register(client)
	if hub.ClientCount() != 1 || hub.TopicCount(TopicApprovals) != 1 {
		t.Fatalf("expected 1 client on approvals, got %d/%d", hub.ClientCount(), hub.TopicCount(TopicApprovals))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount(TopicApprovals) != 0 {
		t.Fatalf("expected hub to be empty, got %d/%d", hub.ClientCount(), hub.TopicCount(TopicApprovals))
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send channel to be closed")
	}

	// second unregister is a no-op
	hub.Unregister(client)
}

func TestHub_PublishRoutesByTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	approvals := newClient("a", TopicApprovals)
	discharges := newClient("d", TopicDischarges)
	hub.Register(approvals)
	hub.Register(discharges)

	if err := hub.Publish(context.Background(), New(DoctorApproved, "doctor", "d-1", "", nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-approvals.Send:
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("invalid message: %v", err)
		}
		if e.Type != DoctorApproved || e.EntityID != "d-1" {
			t.Errorf("unexpected event %+v", e)
		}
	default:
		t.Fatal("expected approvals subscriber to receive the event")
	}

	select {
	case msg := <-discharges.Send:
		t.Fatalf("discharges subscriber should not receive approval events, got %s", msg)
	default:
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newClient("c", TopicApprovals)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{TopicDischarges, TopicApprovals}})
	if len(client.Topics) != 2 {
		t.Errorf("expected 2 topics without duplicates, got %v", client.Topics)
	}
	if hub.TopicCount(TopicDischarges) != 1 {
		t.Error("expected subscription to discharges")
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{TopicApprovals}})
	if hub.TopicCount(TopicApprovals) != 0 {
		t.Error("expected approvals subscription removed")
	}
	if len(client.Topics) != 1 || client.Topics[0] != TopicDischarges {
		t.Errorf("expected [discharges], got %v", client.Topics)
	}

	hub.ProcessMessage(client, ClientMessage{Action: "bogus", Topics: []string{TopicAccounts}})
	if hub.TopicCount(TopicAccounts) != 0 {
		t.Error("unknown action must be ignored")
	}
}

func TestHub_SlowClientDropsEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := &Client{ID: "slow", Topics: []string{TopicAppointments}, Send: make(chan []byte, 1)}
	hub.Register(client)

	for i := 0; i < 3; i++ {
		_ = hub.Publish(context.Background(), New(AppointmentBooked, "appointment", "x", "", nil))
	}
	if hub.Dropped() != 2 {
		t.Errorf("expected 2 dropped events, got %d", hub.Dropped())
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient("c", TopicApprovals)
			hub.Register(c)
			_ = hub.Publish(context.Background(), Event{Type: DoctorApproved})
			hub.Unregister(c)
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestStreamHandler_RequiresWebSocket(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sh := NewStreamHandler(hub, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := sh.Connect(c); err == nil && rec.Code == http.StatusSwitchingProtocols {
		t.Error("expected plain HTTP request not to be upgraded")
	}
	if hub.ClientCount() != 0 {
		t.Error("no client should be registered")
	}
}

func TestStreamHandler_FullUpgradeReceivesEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sh := NewStreamHandler(hub, nil)

	e := echo.New()
	e.GET("/events", sh.Connect)
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events?topics=" + TopicDischarges
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount(TopicDischarges) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = hub.Publish(context.Background(), New(PatientDischarged, "patient", "p-9", "", nil))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("invalid event: %v", err)
	}
	if got.Type != PatientDischarged || got.EntityID != "p-9" {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestStreamHandler_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sh := NewStreamHandler(hub, []string{"https://hospital.example"})

	e := echo.New()
	e.GET("/events", sh.Connect)
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := gorillawebsocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatal("expected handshake to fail for a foreign origin")
	}
}
