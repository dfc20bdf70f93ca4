// internal/broadcast/redis.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultChannel is the Redis pub/sub channel for lobby lifecycle events.
var DefaultChannel = "durak_lobby_events"

// LobbyEvent is the payload published for lobby lifecycle changes. Sibling
// server processes subscribe and relay to their own connected clients.
type LobbyEvent struct {
	Type      string `json:"type"`
	Pin       string `json:"pin"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment
// variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// RedisPublisher broadcasts lobby events over Redis pub/sub.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher uses the given client, or the global Rdb when nil. The
// channel name comes from LOBBY_EVENTS_CHANNEL.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	if client == nil {
		client = Rdb
	}
	return &RedisPublisher{
		client:  client,
		channel: getEnv("LOBBY_EVENTS_CHANNEL", DefaultChannel),
	}
}

// NotifyLobbyClosed publishes a closure event. Subscribers deliver it to
// clients connected elsewhere; local delivery is the WS hub's job.
func (p *RedisPublisher) NotifyLobbyClosed(ctx context.Context, pin, reason string) error {
	ev := LobbyEvent{
		Type:      "lobby_closed",
		Pin:       pin,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal LobbyEvent: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel '%s': %w", p.channel, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
