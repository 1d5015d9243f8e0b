package cache

import (
	"context"
	"testing"
	"time"

	"crewtime/internal/attendance"
	"crewtime/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) (*BoardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewBoardCache(rdb, 5*time.Second, zerolog.Nop()), mr
}

func sampleBoard() []attendance.BoardSlot {
	e := &model.Entry{
		ID:          "x",
		Hall:        model.HallA,
		Role:        model.RoleAudio,
		MemberNames: []string{"山田"},
		Date:        "2026-03-14",
		Status:      model.StatusInProgress,
	}
	return []attendance.BoardSlot{
		{Hall: model.HallA, Role: model.RoleAudio, Open: true, Entry: e},
		{Hall: model.HallA, Role: model.RoleLighting},
	}
}

func TestBoardCache_RoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx)
	assert.False(t, ok)

	c.Set(ctx, sampleBoard())
	got, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.True(t, got[0].Open)
	require.NotNil(t, got[0].Entry)
	assert.Equal(t, []string{"山田"}, got[0].Entry.MemberNames)
	assert.False(t, got[1].Open)
	assert.Nil(t, got[1].Entry)
}

func TestBoardCache_TTLExpiry(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleBoard())
	mr.FastForward(6 * time.Second)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestBoardCache_Invalidate(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleBoard())
	c.Invalidate(ctx)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestBoardCache_NilClient(t *testing.T) {
	c := NewBoardCache(nil, time.Second, zerolog.Nop())
	ctx := context.Background()

	c.Set(ctx, sampleBoard())
	c.Invalidate(ctx)
	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestBoardCache_CorruptPayload(t *testing.T) {
	c, mr := testCache(t)
	require.NoError(t, mr.Set("crewtime:board", "not-json"))

	_, ok := c.Get(context.Background())
	assert.False(t, ok)
}
