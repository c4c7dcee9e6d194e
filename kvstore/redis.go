package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Compile-time checks
var (
	_ KeyValueStore = (*RedisStore)(nil)
	_ Watcher       = (*RedisStore)(nil)
)

// ChangeChannel carries one message per write so other instances can re-aggregate
const ChangeChannel = "notifier:storage-changed"

const subscribeTimeout = 5 * time.Second

type changeMessage struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
}

// RedisStore shares values between service instances. Writes are announced on
// ChangeChannel; watchers only hear about writes made by other instances,
// mirroring how a browser storage event skips the tab that made the change.
type RedisStore struct {
	client   *redis.Client
	origin   string
	watchers watchers

	subOnce sync.Once
	pubsub  *redis.PubSub
	done    chan struct{}
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		origin: uuid.NewString(),
		done:   make(chan struct{}),
	}
}

// Get returns the value for key or ErrNotFound
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis store: get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value without expiry and announces the change
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis store: set %s: %w", key, err)
	}

	payload, err := json.Marshal(changeMessage{Origin: s.origin, Key: key})
	if err != nil {
		return fmt.Errorf("redis store: encode change: %w", err)
	}
	if err := s.client.Publish(ctx, ChangeChannel, payload).Err(); err != nil {
		// The value is stored; peers will catch up on their next poll
		logging.Warn("Failed to publish storage change", "key", key, "error", err)
	}

	return nil
}

// Watch registers fn for writes made by other instances. The subscription is
// opened lazily on first use and confirmed before Watch returns.
func (s *RedisStore) Watch(fn func(key string)) func() {
	s.subOnce.Do(s.subscribe)
	return s.watchers.add(fn)
}

func (s *RedisStore) subscribe() {
	s.pubsub = s.client.Subscribe(context.Background(), ChangeChannel)

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()
	// Receive must run before Channel() takes over the connection
	if _, err := s.pubsub.Receive(ctx); err != nil {
		logging.Warn("Storage change subscription not confirmed", "channel", ChangeChannel, "error", err)
	}

	ch := s.pubsub.Channel()

	go func() {
		for {
			select {
			case <-s.done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change changeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					logging.Warn("Ignoring malformed storage change", "payload", msg.Payload, "error", err)
					continue
				}
				if change.Origin == s.origin {
					continue
				}
				s.watchers.notify(change.Key)
			}
		}
	}()
}

// Close stops the subscription and closes the client
func (s *RedisStore) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.pubsub != nil {
		_ = s.pubsub.Close()
	}
	return s.client.Close()
}
