// Package cache caches the kiosk status board in Redis so the lobby tablets
// polling every few seconds do not hammer SQLite. A nil client disables
// caching entirely; every method degrades to a miss or a no-op.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"crewtime/internal/attendance"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const boardKey = "crewtime:board"

// BoardCache holds the serialized status board with a short TTL.
type BoardCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewBoardCache(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *BoardCache {
	return &BoardCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Get returns the cached board, or ok=false on a miss, a decode failure or a
// disabled cache. Redis trouble is never surfaced to the kiosk.
func (c *BoardCache) Get(ctx context.Context) ([]attendance.BoardSlot, bool) {
	if c == nil || c.rdb == nil || c.ttl <= 0 {
		return nil, false
	}
	val, err := c.rdb.Get(ctx, boardKey).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Msg("board cache read failed")
		}
		return nil, false
	}
	var board []attendance.BoardSlot
	if err := json.Unmarshal([]byte(val), &board); err != nil {
		c.logger.Warn().Err(err).Msg("board cache payload corrupt")
		return nil, false
	}
	return board, true
}

// Set stores the board for the configured TTL.
func (c *BoardCache) Set(ctx context.Context, board []attendance.BoardSlot) {
	if c == nil || c.rdb == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, boardKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("board cache write failed")
	}
}

// Invalidate drops the cached board. Called after any state change so the
// next poll sees fresh data instead of waiting out the TTL.
func (c *BoardCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, boardKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("board cache invalidate failed")
	}
}
