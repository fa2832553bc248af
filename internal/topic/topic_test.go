package topic_test

import (
	"errors"
	"testing"

	"tradechat/internal/topic"
	"tradechat/internal/transport"
)

type fakeSub struct {
	cancelled int
	err       error
}

func (s *fakeSub) Cancel() error {
	s.cancelled++
	return s.err
}

type fakeConn struct {
	subs []*fakeSub
	last string
}

func (c *fakeConn) Subscribe(topicName string, fn transport.MessageFunc) (transport.Subscription, error) {
	sub := &fakeSub{}
	c.subs = append(c.subs, sub)
	c.last = topicName
	return sub, nil
}

func (c *fakeConn) Send(string, map[string]string, []byte) error { return nil }
func (c *fakeConn) Connected() bool                              { return true }
func (c *fakeConn) Disconnect()                                  {}

func TestTopicNames(t *testing.T) {
	if got := topic.For("42"); got != "/chat-trade/42" {
		t.Fatalf("For(42) = %s", got)
	}
	if got := topic.DestinationFor("42"); got != "/app/chat.sendMessage/42" {
		t.Fatalf("DestinationFor(42) = %s", got)
	}
}

func TestBindCancelsPriorSubscription(t *testing.T) {
	conn := &fakeConn{}
	binder := &topic.Binder{}

	if err := binder.Bind(conn, "c1", func([]byte) {}); err != nil {
		t.Fatalf("Bind c1 err: %v", err)
	}
	if err := binder.Bind(conn, "c2", func([]byte) {}); err != nil {
		t.Fatalf("Bind c2 err: %v", err)
	}

	if conn.subs[0].cancelled != 1 {
		t.Fatal("first subscription must be cancelled before the second binds")
	}
	if conn.subs[1].cancelled != 0 {
		t.Fatal("second subscription must still be active")
	}
	if conv, ok := binder.Active(); !ok || conv != "c2" {
		t.Fatalf("Active() = %s,%v", conv, ok)
	}
	if conn.last != "/chat-trade/c2" {
		t.Fatalf("unexpected topic: %s", conn.last)
	}
}

func TestReleaseBestEffort(t *testing.T) {
	conn := &fakeConn{}
	binder := &topic.Binder{}
	if err := binder.Bind(conn, "c1", func([]byte) {}); err != nil {
		t.Fatalf("Bind err: %v", err)
	}
	conn.subs[0].err = errors.New("connection already dropped")

	binder.Release()

	if _, ok := binder.Active(); ok {
		t.Fatal("binder must forget the subscription even when cancel fails")
	}
	binder.Release() // second release is a no-op
	if conn.subs[0].cancelled != 1 {
		t.Fatalf("cancel called %d times, want 1", conn.subs[0].cancelled)
	}
}
