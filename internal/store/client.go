// Package store implements the external-collaborator clients: the REST
// conversation store and the credential accessors.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tradechat/internal/chat"
	"tradechat/internal/dto"
)

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("store: not found")

// Client talks to the conversation REST API.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	Creds       Credentials
	Logger      *slog.Logger
	CallTimeout time.Duration
}

// FetchConversations returns the caller's conversation list.
func (c *Client) FetchConversations(ctx context.Context) ([]chat.Conversation, error) {
	var list dto.ConversationList
	if err := c.getJSON(ctx, "/api/v1/conversations", &list); err != nil {
		return nil, err
	}
	out := make([]chat.Conversation, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, mapConversation(item))
	}
	return out, nil
}

// FetchMessages returns the stored history for one conversation.
func (c *Client) FetchMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var list dto.ChatMessageList
	path := "/api/v1/conversations/" + conversationID + "/messages"
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, mapMessage(item))
	}
	return out, nil
}

// DeleteConversation removes a conversation server-side.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	callCtx, cancel := c.wrapCall(ctx)
	defer cancel()
	req, err := c.newRequest(callCtx, http.MethodDelete, "/api/v1/conversations/"+conversationID)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("store: delete conversation: %w", err)
	}
	defer resp.Body.Close()
	return c.checkStatus(resp)
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	callCtx, cancel := c.wrapCall(ctx)
	defer cancel()
	req, err := c.newRequest(callCtx, http.MethodGet, path)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("store: request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("store: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) wrapCall(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := c.CallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, errors.New("store: base url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	for name, value := range AuthHeaders(c.Creds) {
		req.Header.Set(name, value)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("store: server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if c.Logger != nil {
			c.Logger.Error("conversation api error", "status", resp.StatusCode, "error", err)
		}
		return err
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func mapConversation(in dto.Conversation) chat.Conversation {
	out := chat.Conversation{
		ID: in.ID,
		Partner: chat.Partner{
			ID:        in.Partner.ID,
			Name:      in.Partner.Name,
			AvatarURL: in.Partner.AvatarURL,
		},
		Item: chat.Item{
			Title:    in.Item.Title,
			ImageURL: in.Item.ImageURL,
		},
		TradeID: in.TradeID,
	}
	if in.Meeting != nil {
		out.Meeting = &chat.Meeting{
			Place:  in.Meeting.Place,
			Time:   in.Meeting.Time,
			Status: chat.MeetingStatus(in.Meeting.Status),
		}
	}
	return out
}

func mapMessage(in dto.ChatMessage) chat.Message {
	return chat.Message{
		ID:         in.ID,
		SenderID:   in.SenderID,
		SenderName: in.SenderName,
		Content:    in.Content,
		SentAt:     in.CreatedAt,
		Read:       in.Read,
	}
}
