package relay_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tradechat/internal/config"
	"tradechat/internal/dto"
	"tradechat/internal/relay"
	"tradechat/internal/store"
	"tradechat/internal/topic"
	"tradechat/internal/transport"
	"tradechat/internal/wire"
)

func newTestRelay(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	st := relay.NewStore()
	st.Seed(dto.Conversation{
		ID:      "42",
		Partner: dto.Partner{ID: 9, Name: "ann"},
		Item:    dto.Item{Title: "vintage bike"},
		TradeID: "t-7",
	})
	hub := relay.NewHub(nil)
	srv := relay.NewServer(cfg, st, hub, nil, nil)
	ts := httptest.NewServer(srv.Router(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func TestRelayRESTConversationAPI(t *testing.T) {
	ts := newTestRelay(t, config.Config{Env: "test"})

	client := &store.Client{BaseURL: ts.URL}
	convs, err := client.FetchConversations(context.Background())
	if err != nil {
		t.Fatalf("FetchConversations err: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "42" || convs[0].Partner.Name != "ann" {
		t.Fatalf("unexpected conversations: %+v", convs)
	}

	msgs, err := client.FetchMessages(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchMessages err: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected empty history, got %+v", msgs)
	}

	if err := client.DeleteConversation(context.Background(), "42"); err != nil {
		t.Fatalf("DeleteConversation err: %v", err)
	}
	convs, err = client.FetchConversations(context.Background())
	if err != nil {
		t.Fatalf("FetchConversations err: %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("conversation not deleted: %+v", convs)
	}
}

func TestRelayEchoesSendToSubscribers(t *testing.T) {
	ts := newTestRelay(t, config.Config{Env: "test"})
	dialer := &transport.Dialer{Endpoint: ts.URL + "/ws"}

	conn, err := dialer.Connect(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Connect err: %v", err)
	}
	defer conn.Disconnect()

	var mu sync.Mutex
	var bodies [][]byte
	if _, err := conn.Subscribe(topic.For("42"), func(body []byte) {
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}

	payload, err := wire.OutboundPayload{SenderID: 7, Content: "hi", Receipt: "r-1"}.Marshal()
	if err != nil {
		t.Fatalf("Marshal err: %v", err)
	}
	if err := conn.Send(topic.DestinationFor("42"), map[string]string{wire.HdrContentType: "application/json"}, payload); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(bodies)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for echo")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	echo := bodies[0]
	mu.Unlock()
	inbound, err := wire.ParseInbound(echo)
	if err != nil {
		t.Fatalf("echo not parseable: %v", err)
	}
	if inbound.Content != "hi" || inbound.SenderID != 7 {
		t.Fatalf("unexpected echo: %+v", inbound)
	}
	if inbound.ID == "" {
		t.Fatal("relay must assign a message id")
	}
	if inbound.Receipt != "r-1" {
		t.Fatalf("receipt not echoed: %q", inbound.Receipt)
	}

	// The accepted message is also visible over REST.
	client := &store.Client{BaseURL: ts.URL}
	msgs, err := client.FetchMessages(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchMessages err: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("message not stored: %+v", msgs)
	}
}

func TestRelayRejectsBadToken(t *testing.T) {
	cfg := config.Config{Env: "test", AuthToken: "sekret"}
	ts := newTestRelay(t, cfg)
	dialer := &transport.Dialer{Endpoint: ts.URL + "/ws"}

	if _, err := dialer.Connect(context.Background(), map[string]string{"Authorization": "Bearer wrong"}, nil); err == nil {
		t.Fatal("expected connect to be refused")
	}

	conn, err := dialer.Connect(context.Background(), map[string]string{"Authorization": "Bearer sekret"}, nil)
	if err != nil {
		t.Fatalf("Connect with valid token err: %v", err)
	}
	conn.Disconnect()
}
