package redis

import (
	"errors"
	"fmt"
	"golang.org/x/net/context"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const cooldownPrefix = "drowsiness:cooldown:"

// IRedis backs the alert cooldown so that several monitor instances serving
// the same driver do not speak over each other.
type IRedis interface {
	Acquire(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Remaining(ctx context.Context, key string) (time.Duration, error)
	Close() error
}

type redisClient struct {
	client *redis.Client
}

func New() (IRedis, error) {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		return nil, errors.New("REDIS_ADDRESS not set")
	}

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logrus.Info("Successfully connected to Redis")

	return &redisClient{client: client}, nil
}

// Acquire sets the cooldown key only if it is absent; the key expires on its
// own after window.
func (r *redisClient) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, cooldownPrefix+key, time.Now().UnixMilli(), window).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error acquiring cooldown for key %s: %v", key, err))
		return false, err
	}
	if !ok {
		logrus.Debug(fmt.Sprintf("Cooldown active for key %s", key))
	}
	return ok, nil
}

func (r *redisClient) Release(ctx context.Context, key string) error {
	if _, err := r.client.Del(ctx, cooldownPrefix+key).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Error releasing cooldown for key %s: %v", key, err))
		return err
	}
	return nil
}

// Remaining reports how long key stays cooling down; zero when it is free.
func (r *redisClient) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, cooldownPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
