package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"tradechat/internal/chat"
	"tradechat/internal/config"
	"tradechat/internal/obs"
	"tradechat/internal/session"
	"tradechat/internal/store"
	"tradechat/internal/transport"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	senderID, err := strconv.ParseInt(getenv("CHAT_SENDER_ID", "1"), 10, 64)
	if err != nil {
		logger.Error("invalid CHAT_SENDER_ID", "error", err)
		os.Exit(1)
	}

	creds := store.StaticCredentials(cfg.AuthToken)
	apiClient := &store.Client{
		BaseURL:     cfg.APIBaseURL,
		HTTP:        &http.Client{},
		Creds:       creds,
		Logger:      logger,
		CallTimeout: cfg.CallTimeout,
	}

	conversations, err := apiClient.FetchConversations(ctx)
	if err != nil {
		logger.Error("fetch conversations failed", "error", err)
		os.Exit(1)
	}
	if len(conversations) == 0 {
		logger.Error("no conversations available")
		os.Exit(1)
	}

	list := chat.NewList(logger)
	for _, conv := range conversations {
		list.Upsert(conv)
	}

	selected := conversations[0].ID
	if len(os.Args) > 1 {
		selected = os.Args[1]
	}
	fmt.Println("conversations:")
	for _, conv := range conversations {
		marker := "  "
		if conv.ID == selected {
			marker = "> "
		}
		fmt.Printf("%s%s  %s (%s)\n", marker, conv.ID, conv.Item.Title, conv.Partner.Name)
	}

	history, err := apiClient.FetchMessages(ctx, selected)
	if err != nil {
		logger.Warn("fetch history failed", "conversation_id", selected, "error", err)
	}
	for _, msg := range history {
		list.Merge(selected, msg)
		printMessage(senderID, msg)
	}

	dialer := &transport.Dialer{
		Endpoint:         cfg.WSEndpoint,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Logger:           logger,
	}
	mgr := session.NewManager(dialer,
		func() map[string]string { return store.AuthHeaders(creds) },
		func(conversationID string, body []byte) {
			if msg, ok := list.MergeFrame(conversationID, body); ok {
				printMessage(senderID, msg)
			}
		},
		logger,
		session.WithReconnectDelay(cfg.ReconnectDelay),
	)
	defer mgr.Teardown()

	gate := &chat.SendGate{SenderID: senderID, List: list, Logger: logger}

	mgr.Select(ctx, selected)
	logger.Info("chat session starting", "conversation_id", selected, "endpoint", cfg.WSEndpoint)

	go readInput(ctx, gate, mgr, selected)

	<-ctx.Done()
	mgr.Teardown()
	logger.Info("chat session closed")
}

func readInput(ctx context.Context, gate *chat.SendGate, mgr *session.Manager, conversationID string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		res := gate.TrySend(mgr, conversationID, scanner.Text())
		if !res.Sent {
			fmt.Printf("! not sent: %s\n", res.Reason)
		}
	}
}

func printMessage(selfID int64, msg chat.Message) {
	who := msg.SenderName
	if who == "" {
		who = fmt.Sprintf("user %d", msg.SenderID)
	}
	if msg.SenderID == selfID {
		who = "me"
	}
	suffix := ""
	if msg.Pending {
		suffix = " (sending...)"
	}
	fmt.Printf("[%s] %s: %s%s\n", msg.SentAt.Format("15:04:05"), who, msg.Content, suffix)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
