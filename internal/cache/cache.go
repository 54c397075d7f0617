// Package cache keeps assembled boards in Redis so repeated board reads do
// not hit SQLite. Every method degrades to a miss when Redis is unavailable.
//
// Each project has a generation counter next to its board. Evict bumps the
// counter and StoreBoard only writes when the counter still holds the value
// seen before the board was loaded, so a slow reader cannot put back a
// board that a concurrent write already replaced.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskzen/internal/models"
)

const (
	// NoGeneration tells StoreBoard not to cache the board.
	NoGeneration int64 = -1

	generationTTL = 24 * time.Hour

	dialTimeout = time.Second
	ioTimeout   = 500 * time.Millisecond
	maxRetries  = 1
)

var errStale = errors.New("board generation changed")

// Cache stores boards keyed by project id.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a board cache. A nil client yields a cache that never hits.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{redis: client, ttl: ttl}
}

// NewClient parses a redis:// URL and returns a client. An empty URL
// returns a nil client. Timeouts not set in the URL are kept short so an
// unreachable server slows requests down by about a second at most.
func NewClient(rawURL string) (*redis.Client, error) {
	if rawURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = dialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = ioTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = ioTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = maxRetries
	}
	return redis.NewClient(opts), nil
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.redis != nil
}

// Board returns the cached board of a project. On a miss it also returns
// the generation to hand to StoreBoard once the board has been loaded, or
// NoGeneration when Redis could not be read.
func (c *Cache) Board(ctx context.Context, projectID string) (models.Board, int64, bool) {
	if !c.Enabled() {
		return models.Board{}, NoGeneration, false
	}
	vals, err := c.redis.MGet(ctx, boardKey(projectID), generationKey(projectID)).Result()
	if err != nil || len(vals) != 2 {
		return models.Board{}, NoGeneration, false
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return models.Board{}, NoGeneration, false
		}
	}
	raw, ok := vals[0].(string)
	if !ok {
		return models.Board{}, gen, false
	}
	var b models.Board
	if err := sonic.UnmarshalString(raw, &b); err != nil {
		_ = c.redis.Del(ctx, boardKey(projectID)).Err()
		return models.Board{}, gen, false
	}
	return b, gen, true
}

// StoreBoard caches b under its project id unless the project was evicted
// after gen was read.
func (c *Cache) StoreBoard(ctx context.Context, b models.Board, gen int64) {
	if !c.Enabled() || c.ttl == 0 || b.Project.ID == "" || gen < 0 {
		return
	}
	data, err := sonic.Marshal(b)
	if err != nil {
		return
	}
	genKey := generationKey(b.Project.ID)
	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, boardKey(b.Project.ID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)
}

// Evict drops the cached boards of the given projects and bumps their
// generations.
func (c *Cache) Evict(ctx context.Context, projectIDs ...string) {
	if !c.Enabled() || len(projectIDs) == 0 {
		return
	}
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range projectIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Expire(ctx, generationKey(id), generationTTL)
			pipe.Del(ctx, boardKey(id))
		}
		return nil
	})
}

func boardKey(projectID string) string {
	return "board:" + projectID
}

func generationKey(projectID string) string {
	return "board:" + projectID + ":gen"
}
