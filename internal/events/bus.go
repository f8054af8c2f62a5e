// Package events provides the in-process publish/subscribe channel used
// for same-process cross-component signaling. Delivery is best-effort and
// at most once: subscribers that are not listening when an event fires
// never see it, and nothing is replayed.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Zahur13/ConnectSphere/internal/models"
)

// Event topics.
const (
	TopicNewMessage          = "new-message"
	TopicTypingStatusChanged = "typing-status-changed"
	TopicNewNotification     = "new-notification"
)

// NewMessage is published on TopicNewMessage after a message is persisted.
type NewMessage struct {
	Message    models.Message `json:"message"`
	ChatID     string         `json:"chatId"`
	ReceiverID string         `json:"receiverId"`
}

// TypingStatusChanged is published on TopicTypingStatusChanged whenever a
// participant starts or stops typing.
type TypingStatusChanged struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// NewNotification is published on TopicNewNotification after a
// notification is persisted.
type NewNotification struct {
	Notification models.Notification `json:"notification"`
	ToUserID     string              `json:"toUserId"`
}

// Bus wraps an in-memory watermill pub/sub. Payloads are JSON-encoded.
type Bus struct {
	ch *gochannel.GoChannel
}

// NewBus returns a ready-to-use in-process bus. Published messages are
// buffered per subscriber so a slow listener cannot stall a publisher.
func NewBus() *Bus {
	return &Bus{
		ch: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NopLogger{},
		),
	}
}

// Publish JSON-encodes payload and publishes it on topic. Publishing with
// no subscribers is a successful no-op.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.ch.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of messages for topic. The subscription ends
// when ctx is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	msgs, err := b.ch.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return msgs, nil
}

// Close shuts the bus down and terminates all subscriptions.
func (b *Bus) Close() error {
	return b.ch.Close()
}
