package chat_test

import (
	"testing"

	"tradechat/internal/chat"
)

func TestMergeAppendsInArrivalOrder(t *testing.T) {
	list := chat.NewList(nil)
	list.Upsert(chat.Conversation{ID: "42"})

	if !list.Merge("42", chat.Message{ID: "1", SenderID: 7, Content: "first"}) {
		t.Fatal("expected m1 to be appended")
	}
	if !list.Merge("42", chat.Message{ID: "2", SenderID: 8, Content: "second"}) {
		t.Fatal("expected m2 to be appended")
	}

	conv, ok := list.Get("42")
	if !ok {
		t.Fatal("conversation missing")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv.Messages))
	}
	if conv.Messages[0].ID != "1" || conv.Messages[1].ID != "2" {
		t.Fatalf("order wrong: %s then %s", conv.Messages[0].ID, conv.Messages[1].ID)
	}
}

func TestMergeDeduplicatesByID(t *testing.T) {
	list := chat.NewList(nil)
	msg := chat.Message{ID: "101", SenderID: 7, Content: "hi"}

	if !list.Merge("42", msg) {
		t.Fatal("first merge should append")
	}
	if list.Merge("42", msg) {
		t.Fatal("duplicate merge should be a no-op")
	}

	conv, _ := list.Get("42")
	if len(conv.Messages) != 1 {
		t.Fatalf("expected 1 message after duplicate, got %d", len(conv.Messages))
	}
}

func TestMergeReplacesPendingByReceipt(t *testing.T) {
	list := chat.NewList(nil)
	list.AppendPending("42", chat.Message{ID: "r-1", SenderID: 7, Content: "hi", Receipt: "r-1"})

	changed := list.Merge("42", chat.Message{ID: "900", SenderID: 7, Content: "hi", Receipt: "r-1"})
	if !changed {
		t.Fatal("echo should replace the pending entry")
	}

	conv, _ := list.Get("42")
	if len(conv.Messages) != 1 {
		t.Fatalf("expected the pending entry to be replaced, got %d messages", len(conv.Messages))
	}
	got := conv.Messages[0]
	if got.ID != "900" || got.Pending {
		t.Fatalf("unexpected reconciled message: %+v", got)
	}
}

func TestMergeFrameMalformedDropped(t *testing.T) {
	list := chat.NewList(nil)
	list.Upsert(chat.Conversation{ID: "42"})

	if _, ok := list.MergeFrame("42", []byte("not json at all")); ok {
		t.Fatal("malformed frame must be dropped")
	}
	conv, _ := list.Get("42")
	if len(conv.Messages) != 0 {
		t.Fatal("malformed frame must not touch the message list")
	}
}

func TestMergeFrameEndToEnd(t *testing.T) {
	list := chat.NewList(nil)
	list.Upsert(chat.Conversation{ID: "42"})

	raw := []byte(`{"id":101,"senderId":7,"content":"hi","timestamp":"2025-01-01T10:00:00Z"}`)
	msg, ok := list.MergeFrame("42", raw)
	if !ok {
		t.Fatal("expected frame to merge")
	}
	if msg.ID != "101" || msg.Content != "hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	conv, _ := list.Get("42")
	if len(conv.Messages) != 1 || conv.Messages[0].ID != "101" {
		t.Fatalf("conversation 42 not updated: %+v", conv.Messages)
	}
	if conv.Messages[0].SentAt.IsZero() {
		t.Fatal("timestamp not parsed")
	}
}

func TestMergeIntoOriginallyBoundConversation(t *testing.T) {
	// A frame for a conversation the user has switched away from, or that
	// has dropped off the fetched list, still lands in its own record.
	list := chat.NewList(nil)
	if !list.Merge("old-7", chat.Message{ID: "5", SenderID: 2, Content: "late"}) {
		t.Fatal("late frame should merge into a skeleton record")
	}
	conv, ok := list.Get("old-7")
	if !ok || len(conv.Messages) != 1 {
		t.Fatalf("skeleton conversation missing: %+v", conv)
	}
}

func TestUpsertKeepsReconciledMessages(t *testing.T) {
	list := chat.NewList(nil)
	list.Merge("42", chat.Message{ID: "1", SenderID: 7, Content: "hi"})

	list.Upsert(chat.Conversation{ID: "42", Partner: chat.Partner{ID: 9, Name: "bob"}})

	conv, _ := list.Get("42")
	if conv.Partner.Name != "bob" {
		t.Fatalf("partner not updated: %+v", conv.Partner)
	}
	if len(conv.Messages) != 1 {
		t.Fatal("refresh without messages must not drop reconciled ones")
	}
}

func TestRemove(t *testing.T) {
	list := chat.NewList(nil)
	list.Upsert(chat.Conversation{ID: "a"})
	list.Upsert(chat.Conversation{ID: "b"})

	list.Remove("a")

	if _, ok := list.Get("a"); ok {
		t.Fatal("conversation a should be gone")
	}
	all := list.All()
	if len(all) != 1 || all[0].ID != "b" {
		t.Fatalf("unexpected remaining list: %+v", all)
	}
}
