package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// pushScript appends ARGV[1] unless the list already holds ARGV[2] entries.
var pushScript = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('RPUSH', KEYS[1], ARGV[1])
return 1
`)

// RedisOptions configures a Redis-backed queue.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Key      string
	Capacity int
}

// RedisQueue is a Queue stored in a Redis list so proxy and consumer can run
// as separate processes.
type RedisQueue struct {
	client   *redis.Client
	key      string
	capacity int
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	key := opts.Key
	if key == "" {
		key = "sekaiscout:packets"
	}
	return &RedisQueue{client: client, key: key, capacity: capacity}, nil
}

func (q *RedisQueue) Push(ctx context.Context, p Packet) error {
	b, err := encodePacket(p)
	if err != nil {
		return err
	}
	added, err := pushScript.Run(ctx, q.client, []string{q.key}, b, q.capacity).Int()
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if added == 0 {
		return ErrQueueFull
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (Packet, bool, error) {
	b, err := q.client.LPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Packet{}, false, nil
	}
	if err != nil {
		return Packet{}, false, fmt.Errorf("pop: %w", err)
	}
	p, err := decodePacket(b)
	if err != nil {
		return Packet{}, false, fmt.Errorf("%w: %v", ErrCorruptPacket, err)
	}
	return p, true, nil
}

// Len is the number of queued packets.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// RedisDialer returns a Dialer that opens a new RedisQueue on each call.
func RedisDialer(opts RedisOptions) Dialer {
	return func(ctx context.Context) (Queue, error) {
		return DialRedis(ctx, opts)
	}
}
