package balance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

const lockTTL = 5 * time.Second

// RedisCache is a CheckpointCache shared by every process using the same
// Redis database. Each account has a sorted set of checkpoints scored by
// month, a watermark hash and a lock key serializing watermark updates.
type RedisCache struct {
	client redis.UniversalClient
	locker *redislock.Client
	prefix string
}

var _ CheckpointCache = (*RedisCache)(nil)

// NewRedisCache creates a cache whose keys all start with prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{client: client, locker: redislock.New(client), prefix: prefix}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (c *RedisCache) pointsKey(id int64) string { return fmt.Sprintf("%sckpt:%d", c.prefix, id) }
func (c *RedisCache) wmKey(id int64) string     { return fmt.Sprintf("%swm:%d", c.prefix, id) }
func (c *RedisCache) lockKey(id int64) string   { return fmt.Sprintf("%slock:%d", c.prefix, id) }

func (c *RedisCache) Nearest(ctx context.Context, accountID int64, m model.Month) (Checkpoint, Watermark, bool, error) {
	var (
		points *redis.StringSliceCmd
		wm     *redis.MapStringStringCmd
	)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		points = p.ZRevRangeByScore(ctx, c.pointsKey(accountID), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.Itoa(int(m)),
			Count: 1,
		})
		wm = p.HGetAll(ctx, c.wmKey(accountID))
		return nil
	})
	if err != nil {
		return Checkpoint{}, Watermark{}, false, fmt.Errorf("reading checkpoints: %w", err)
	}

	w, err := parseWatermark(wm.Val())
	if err != nil {
		return Checkpoint{}, Watermark{}, false, err
	}
	if len(points.Val()) == 0 {
		return Checkpoint{}, w, false, nil
	}
	cp, err := parseCheckpoint(points.Val()[0])
	if err != nil {
		return Checkpoint{}, Watermark{}, false, err
	}
	return cp, w, true, nil
}

// Put skips the write if another process holds the account's lock.
func (c *RedisCache) Put(ctx context.Context, accountID int64, cp Checkpoint) error {
	lock, err := c.locker.Obtain(ctx, c.lockKey(accountID), lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("locking checkpoints: %w", err)
	}
	defer lock.Release(ctx)

	w, err := c.watermark(ctx, accountID)
	if err != nil {
		return err
	}
	if w.stale(cp) {
		return nil
	}

	key := c.pointsKey(accountID)
	score := strconv.Itoa(int(cp.Month))
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, score, score)
		p.ZAdd(ctx, key, redis.Z{Score: float64(cp.Month), Member: formatCheckpoint(cp)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, accountID int64, from model.Month, revision int64) error {
	lock, err := c.locker.Obtain(ctx, c.lockKey(accountID), lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(10*time.Millisecond), 100),
	})
	if err != nil {
		return fmt.Errorf("locking checkpoints: %w", err)
	}
	defer lock.Release(ctx)

	w, err := c.watermark(ctx, accountID)
	if err != nil {
		return err
	}
	w = w.merge(from, revision)

	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, c.wmKey(accountID), "from", int(w.From), "rev", w.Revision)
		p.ZRemRangeByScore(ctx, c.pointsKey(accountID), strconv.Itoa(int(from)), "+inf")
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidating checkpoints: %w", err)
	}
	return nil
}

func (c *RedisCache) watermark(ctx context.Context, accountID int64) (Watermark, error) {
	fields, err := c.client.HGetAll(ctx, c.wmKey(accountID)).Result()
	if err != nil {
		return Watermark{}, fmt.Errorf("reading watermark: %w", err)
	}
	return parseWatermark(fields)
}

func parseWatermark(fields map[string]string) (Watermark, error) {
	if len(fields) == 0 {
		return Watermark{}, nil
	}
	from, err := strconv.Atoi(fields["from"])
	if err != nil {
		return Watermark{}, fmt.Errorf("parsing watermark month %q: %w", fields["from"], err)
	}
	rev, err := strconv.ParseInt(fields["rev"], 10, 64)
	if err != nil {
		return Watermark{}, fmt.Errorf("parsing watermark revision %q: %w", fields["rev"], err)
	}
	return Watermark{From: model.Month(from), Revision: rev}, nil
}

// formatCheckpoint encodes a sorted-set member as "month|revision|balance".
func formatCheckpoint(cp Checkpoint) string {
	return fmt.Sprintf("%d|%d|%s", int(cp.Month), cp.Revision, cp.Balance.String())
}

func parseCheckpoint(member string) (Checkpoint, error) {
	parts := strings.SplitN(member, "|", 3)
	if len(parts) != 3 {
		return Checkpoint{}, fmt.Errorf("malformed checkpoint %q", member)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return Checkpoint{}, fmt.Errorf("malformed checkpoint %q: %w", member, err)
	}
	rev, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("malformed checkpoint %q: %w", member, err)
	}
	bal, err := decimal.NewFromString(parts[2])
	if err != nil {
		return Checkpoint{}, fmt.Errorf("malformed checkpoint %q: %w", member, err)
	}
	return Checkpoint{Month: model.Month(month), Revision: rev, Balance: bal}, nil
}
