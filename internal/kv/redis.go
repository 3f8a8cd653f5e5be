package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/intorma/torma/internal/ids"
	"github.com/intorma/torma/internal/logging"
)

// RedisOptions configures OpenRedis.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Logger   logrus.FieldLogger
}

// Redis stores values as plain strings and announces every write on the
// <key>:changed channel so other processes can reload.
type Redis struct {
	client   *redis.Client
	instance string
	logger   logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	stops  []func() error
}

// OpenRedis connects to the server at opts.Addr and pings it.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis: address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &Redis{
		client:   client,
		instance: ids.MustGenerate(ids.DefaultLength),
		logger:   logging.OrDiscard(opts.Logger),
	}, nil
}

// ChangeChannel returns the pub/sub channel announcing writes to key.
func ChangeChannel(key string) string {
	return key + ":changed"
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}

	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value and publishes a change notice.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if r.isClosed() {
		return ErrClosed
	}

	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	if err := r.client.Publish(ctx, ChangeChannel(key), r.instance).Err(); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("redis publish failed")
	}
	return nil
}

// Watch subscribes to the change channel of key. Notices published by this
// instance are skipped.
func (r *Redis) Watch(ctx context.Context, key string, onChange func()) (func() error, error) {
	if r.isClosed() {
		return nil, ErrClosed
	}

	sub := r.client.Subscribe(ctx, ChangeChannel(key))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", ChangeChannel(key), err)
	}

	done := make(chan struct{})
	var once sync.Once
	var closeErr error
	stop := func() error {
		once.Do(func() {
			close(done)
			closeErr = sub.Close()
		})
		return closeErr
	}

	messages := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = stop()
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if msg.Payload == r.instance {
					continue
				}
				onChange()
			}
		}
	}()

	r.mu.Lock()
	r.stops = append(r.stops, stop)
	r.mu.Unlock()

	return stop, nil
}

// Close stops watchers and closes the client.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stops := r.stops
	r.stops = nil
	r.mu.Unlock()

	for _, stop := range stops {
		_ = stop()
	}
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("redis: failed to close connection: %w", err)
	}
	return nil
}

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
