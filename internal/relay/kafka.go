package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"tradechat/internal/topic"
)

// chatRecord is the Kafka record value carried between relay instances.
type chatRecord struct {
	ConversationID string          `json:"conversation_id"`
	MessageID      string          `json:"message_id"`
	Body           json.RawMessage `json:"body"`
}

// Bridge fans accepted messages out through Kafka so every relay instance
// delivers them to its local subscribers. Each instance consumes under its
// own group id, so all instances (including the origin) see every record.
type Bridge struct {
	producer   sarama.SyncProducer
	group      sarama.ConsumerGroup
	hub        *Hub
	logger     *slog.Logger
	kafkaTopic string
}

// NewBridge connects the producer and consumer group. groupID defaults to a
// per-instance unique id.
func NewBridge(brokers []string, topicPrefix, groupID string, hub *Hub, logger *slog.Logger) (*Bridge, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("relay: kafka producer: %w", err)
	}
	if groupID == "" {
		groupID = "tradechat-relay-" + uuid.NewString()
	}
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("relay: kafka consumer group: %w", err)
	}
	return &Bridge{
		producer:   producer,
		group:      group,
		hub:        hub,
		logger:     logger,
		kafkaTopic: topicPrefix + "chat.messages",
	}, nil
}

// PublishMessage sends an accepted chat message to the bridge topic.
// Local delivery happens when the record comes back through Run.
func (b *Bridge) PublishMessage(conversationID, messageID string, body []byte) error {
	value, err := json.Marshal(chatRecord{
		ConversationID: conversationID,
		MessageID:      messageID,
		Body:           body,
	})
	if err != nil {
		return err
	}
	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.kafkaTopic,
		Key:   sarama.StringEncoder(conversationID),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

// Run consumes bridge records until ctx is cancelled, delivering each to
// the local hub.
func (b *Bridge) Run(ctx context.Context) error {
	handler := bridgeHandler{hub: b.hub, logger: b.logger}
	for {
		if err := b.group.Consume(ctx, []string{b.kafkaTopic}, handler); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close releases the producer and consumer group.
func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	var firstErr error
	if err := b.producer.Close(); err != nil {
		firstErr = err
	}
	if err := b.group.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

var _ Publisher = (*Bridge)(nil)

type bridgeHandler struct {
	hub    *Hub
	logger *slog.Logger
}

func (h bridgeHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h bridgeHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h bridgeHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var record chatRecord
		if err := json.Unmarshal(message.Value, &record); err != nil {
			if h.logger != nil {
				h.logger.Warn("dropping malformed bridge record", "error", err)
			}
			sess.MarkMessage(message, "")
			continue
		}
		h.hub.Broadcast(topic.For(record.ConversationID), record.MessageID, record.Body)
		sess.MarkMessage(message, "")
	}
	return nil
}
