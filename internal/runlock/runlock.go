// Package runlock guards an output root against concurrent warehouse runs
// with a Redis lock (SET NX PX plus a compare-and-delete release).
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned by Acquire when another run holds the lock.
var ErrLocked = errors.New("runlock: output is locked by another run")

const keyPrefix = "songwarehouse:lock:"

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const extendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// Client is the part of a go-redis client the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// Locker hands out locks keyed by output URL.
type Locker struct {
	client  Client
	release *redis.Script
	extend  *redis.Script
}

// New returns a Locker over client.
func New(client Client) *Locker {
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseScript),
		extend:  redis.NewScript(extendScript),
	}
}

// Options configures Dial.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Dial connects to Redis and verifies the connection. The returned close
// func releases the client.
func Dial(ctx context.Context, opt Options) (*Locker, func() error, error) {
	rdb := redis.NewClient(&redis.Options{Addr: opt.Addr, Password: opt.Password, DB: opt.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("runlock: ping %s: %w", opt.Addr, err)
	}
	return New(rdb), rdb.Close, nil
}

// Key returns the Redis key guarding output.
func Key(output string) string { return keyPrefix + output }

// Lock is a held lock.
type Lock struct {
	l     *Locker
	key   string
	token string
}

// Acquire takes the lock for output for ttl. It returns ErrLocked without
// waiting when the lock is held elsewhere.
func (l *Locker) Acquire(ctx context.Context, output string, ttl time.Duration) (*Lock, error) {
	if output == "" {
		return nil, errors.New("runlock: output is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("runlock: ttl must be positive")
	}
	key, token := Key(output), uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("runlock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, output)
	}
	return &Lock{l: l, key: key, token: token}, nil
}

// Key returns the Redis key of the lock.
func (k *Lock) Key() string { return k.key }

// Extend resets the lock's ttl. It fails when the lock expired and was taken
// by another run.
func (k *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := k.l.extend.Run(ctx, k.l.client, []string{k.key}, k.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("runlock: extend %s: %w", k.key, err)
	}
	if n == 0 {
		return fmt.Errorf("runlock: extend %s: lock lost", k.key)
	}
	return nil
}

// Release drops the lock if this run still holds it.
func (k *Lock) Release(ctx context.Context) error {
	if err := k.l.release.Run(ctx, k.l.client, []string{k.key}, k.token).Err(); err != nil {
		return fmt.Errorf("runlock: release %s: %w", k.key, err)
	}
	return nil
}
