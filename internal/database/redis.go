package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// queuePoolSize leaves room for the blocking BLPOP of each transcript
	// worker next to the RPUSHes made on the request path.
	queuePoolSize = 16
	// pubsubPoolSize covers publishes; every subscription also holds a
	// dedicated connection of its own.
	pubsubPoolSize = 8
)

// RedisClients keeps queue traffic and pub/sub subscriptions on separate
// connections so a long BLPOP never delays event fan-out.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueClient, err := connectRedis(ctx, roleOptions(opt, "queue", queuePoolSize))
	if err != nil {
		return nil, err
	}

	pubsubClient, err := connectRedis(ctx, roleOptions(opt, "pubsub", pubsubPoolSize))
	if err != nil {
		queueClient.Close()
		return nil, err
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

// roleOptions copies base and names the connection after its role, so
// CLIENT LIST shows which side of the relay owns it.
func roleOptions(base *redis.Options, role string, poolSize int) *redis.Options {
	opt := *base
	opt.ClientName = "relaychat-" + role
	if opt.PoolSize == 0 {
		opt.PoolSize = poolSize
	}
	return &opt
}

func connectRedis(ctx context.Context, opt *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis (%s): %w", opt.ClientName, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
