package cache

import (
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/vertextoedge/secure-file-share/internal/port"
)

// Redis implements port.Cache on a redigo connection pool. This is the
// backend for multi-instance deployments where share snapshots and CSRF
// tokens must be visible across processes.
type Redis struct {
	pool *redis.Pool
}

// Ensure Redis implements port.Cache
var _ port.Cache = (*Redis)(nil)

// NewRedis creates a redis-backed cache against addr
func NewRedis(addr, password string, db int) *Redis {
	pool := &redis.Pool{
		MaxIdle:     10,
		MaxActive:   50,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialDatabase(db)}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.Dial("tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &Redis{pool: pool}
}

// Get returns the cached value for key, or ok=false on a miss
func (r *Redis) Get(key string) (string, bool, error) {
	conn := r.pool.Get()
	defer conn.Close()

	value, err := redis.String(conn.Do("GET", key))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with an absolute TTL
func (r *Redis) Set(key string, value string, ttl time.Duration) error {
	conn := r.pool.Get()
	defer conn.Close()

	seconds := int(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	if _, err := conn.Do("SET", key, value, "EX", seconds); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *Redis) Delete(key string) error {
	conn := r.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", key); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool
func (r *Redis) Close() error {
	return r.pool.Close()
}
