package balance

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store/memstore"
	"github.com/cleared-dev/ledger/internal/store/storetest"
)

// newRedisCache connects to LEDGER_TEST_REDIS_ADDRESS under a fresh key
// prefix and removes the keys afterwards.
func newRedisCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("LEDGER_TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("LEDGER_TEST_REDIS_ADDRESS not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, addr)
	require.NoError(t, err)

	prefix := fmt.Sprintf("ledger-test:%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})
	return NewRedisCache(client, prefix)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c := newRedisCache(t)

	_, wm, ok, err := c.Nearest(ctx, 1, apr)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, wm.Revision)

	require.NoError(t, c.Put(ctx, 1, Checkpoint{Month: jan, Revision: 3, Balance: dec("10.50")}))
	require.NoError(t, c.Put(ctx, 1, Checkpoint{Month: mar, Revision: 3, Balance: dec("-4.25")}))

	cp, _, ok, err := c.Nearest(ctx, 1, feb)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan, cp.Month)
	assert.Equal(t, int64(3), cp.Revision)
	assert.True(t, cp.Balance.Equal(dec("10.50")))

	// Overwriting a month leaves one member per score.
	require.NoError(t, c.Put(ctx, 1, Checkpoint{Month: mar, Revision: 4, Balance: dec("1")}))
	cp, _, _, err = c.Nearest(ctx, 1, apr)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cp.Revision)
	n, err := c.client.ZCard(ctx, c.pointsKey(1)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.Invalidate(ctx, 1, feb, 8))
	cp, wm, ok, err = c.Nearest(ctx, 1, apr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jan, cp.Month)
	assert.Equal(t, Watermark{From: feb, Revision: 8}, wm)

	// Stale puts are dropped.
	require.NoError(t, c.Put(ctx, 1, Checkpoint{Month: mar, Revision: 7}))
	cp, _, _, _ = c.Nearest(ctx, 1, apr)
	assert.Equal(t, jan, cp.Month)
}

func TestRedisCache_Engine(t *testing.T) {
	c := newRedisCache(t)
	s := memstore.New()
	f := storetest.Seed(t, s)
	threeLines(t, s, f)
	e := newEngine(t, s, c)

	a, err := e.Activity(context.Background(), f.Checking.ID, day(2024, 1, 10), day(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, a.Opening.Equal(dec("100")))
	require.Len(t, a.Postings, 1)
	assert.True(t, a.Postings[0].Balance.Equal(dec("70")))

	bal, err := e.BalanceAsOf(context.Background(), f.Checking.ID, day(2024, 3, 1))
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("90")))

	_, _, ok, err := c.Nearest(context.Background(), f.Checking.ID, model.MonthOf(day(2024, 2, 1)))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseCheckpoint(t *testing.T) {
	cp, err := parseCheckpoint(formatCheckpoint(Checkpoint{Month: mar, Revision: 12, Balance: dec("-0.07")}))
	require.NoError(t, err)
	assert.Equal(t, mar, cp.Month)
	assert.Equal(t, int64(12), cp.Revision)
	assert.True(t, cp.Balance.Equal(dec("-0.07")))

	for _, bad := range []string{"", "1|2", "x|2|3", "1|y|3", "1|2|z"} {
		_, err := parseCheckpoint(bad)
		assert.Error(t, err, bad)
	}

	_, err = parseWatermark(map[string]string{"from": "abc", "rev": "1"})
	assert.Error(t, err)
}
