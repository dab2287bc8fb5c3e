package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueFull is returned by Push when the queue has no room.
var ErrQueueFull = errors.New("notification queue full")

// Queue buffers messages between request handlers and the sender loop.
type Queue interface {
	// Push must not block on a full queue.
	Push(ctx context.Context, msg Message) error
	// Pop blocks until a message is available or ctx is done.
	Pop(ctx context.Context) (Message, error)
	Len() int
}

// ChannelQueue is an in-process bounded queue.
type ChannelQueue struct {
	ch chan Message
}

func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = 1
	}
	return &ChannelQueue{ch: make(chan Message, size)}
}

func (q *ChannelQueue) Push(_ context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Pop(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case msg := <-q.ch:
		return msg, nil
	}
}

func (q *ChannelQueue) Len() int { return len(q.ch) }

// RedisQueue keeps messages in a Redis list so queued notifications survive
// a restart. Push is LPUSH, Pop is BRPOP.
type RedisQueue struct {
	client      redis.UniversalClient
	key         string
	maxLen      int64
	pushTimeout time.Duration
	popTimeout  time.Duration
}

func NewRedisQueue(client redis.UniversalClient, key string, maxLen int) *RedisQueue {
	if key == "" {
		key = "barangay:notifications"
	}
	return &RedisQueue{
		client:      client,
		key:         key,
		maxLen:      int64(maxLen),
		pushTimeout: 500 * time.Millisecond,
		popTimeout:  time.Second,
	}
}

func (q *RedisQueue) Push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.pushTimeout)
	defer cancel()

	if q.maxLen > 0 {
		n, err := q.client.LLen(ctx, q.key).Result()
		if err != nil {
			return fmt.Errorf("queue length: %w", err)
		}
		if n >= q.maxLen {
			return ErrQueueFull
		}
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		res, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			return Message{}, fmt.Errorf("pop notification: %w", err)
		}
		// BRPOP returns [key, value]
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			return Message{}, fmt.Errorf("decode notification: %w", err)
		}
		return msg, nil
	}
}

// Len reports the list length, or zero when Redis cannot be reached.
func (q *RedisQueue) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), q.pushTimeout)
	defer cancel()
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
