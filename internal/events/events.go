// Package events publishes pipeline events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
)

// DefaultChannel receives meeting.created events.
const DefaultChannel = "events.meeting.created"

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

func NewBaseEvent(ctx context.Context, eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
		Source:    "minutes-flow",
		Version:   "1.0",
	}
}

// MeetingCreated is published after a record has been committed.
type MeetingCreated struct {
	BaseEvent

	MeetingID       int64   `json:"meeting_id"`
	Filename        string  `json:"filename"`
	Document        *string `json:"document,omitempty"`
	TopicCount      int     `json:"topic_count"`
	ActionItemCount int     `json:"action_item_count"`
}

// Publisher delivers events. Callers treat publish errors as non-fatal.
type Publisher interface {
	PublishMeetingCreated(ctx context.Context, ev MeetingCreated) error
	Close() error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
	logger  logger.Logger
}

// NewRedisPublisher connects to addr and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, channel string, log logger.Logger) (Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisPublisher(client, channel, log), nil
}

func newRedisPublisher(client *redis.Client, channel string, log logger.Logger) *redisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &redisPublisher{
		client:  client,
		channel: channel,
		logger:  log.With("component", "event_publisher"),
	}
}

func (p *redisPublisher) PublishMeetingCreated(ctx context.Context, ev MeetingCreated) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}

	p.logger.Debug(ctx, "Event published to %s (%d bytes)", p.channel, len(data))
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type nopPublisher struct{}

// NewNop returns a Publisher that drops every event.
func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) PublishMeetingCreated(context.Context, MeetingCreated) error {
	return nil
}

func (nopPublisher) Close() error {
	return nil
}
