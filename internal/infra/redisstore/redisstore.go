// Package redisstore keeps user stats in Redis for multi-process deployments.
//
// Each user is a hash {doc, version} under <prefix>user:<id>. Saves run in a
// WATCH/MULTI transaction so a concurrent writer aborts the commit, and the
// same transaction keeps the <prefix>leaderboard sorted set in step.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/hotelops/staffxp/internal/domain"
)

// Options mirrors the [store.redis] config section.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store implements domain.StatsStore and domain.Leaderboard on Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return New(rdb, opts.Prefix), nil
}

// New wraps an existing client.
func New(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) userKey(userID string) string { return s.prefix + "user:" + userID }
func (s *Store) boardKey() string             { return s.prefix + "leaderboard" }

// Load returns the user's document and its version.
func (s *Store) Load(ctx context.Context, userID string) (domain.UserStats, int64, error) {
	vals, err := s.rdb.HMGet(ctx, s.userKey(userID), "doc", "version").Result()
	if err != nil {
		return domain.UserStats{}, 0, fmt.Errorf("redis hmget: %w", err)
	}
	return decode(userID, vals)
}

// Save writes the document if the stored version equals expectedVersion.
func (s *Store) Save(ctx context.Context, stats domain.UserStats, expectedVersion int64) (int64, error) {
	if stats.UserID == "" {
		return 0, domain.ErrUserIDRequired
	}
	doc, err := json.Marshal(stats)
	if err != nil {
		return 0, fmt.Errorf("encode user stats: %w", err)
	}
	key := s.userKey(stats.UserID)
	next := expectedVersion + 1

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "version").Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return fmt.Errorf("redis hget version: %w", err)
		}
		if current != expectedVersion {
			return fmt.Errorf("%w: user %s at version %d, stored %d",
				domain.ErrStatsConflict, stats.UserID, expectedVersion, current)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "doc", doc, "version", next)
			p.ZAdd(ctx, s.boardKey(), redis.Z{Score: float64(stats.TotalXP), Member: stats.UserID})
			return nil
		})
		return err
	}, key)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return 0, fmt.Errorf("%w: user %s changed during commit", domain.ErrStatsConflict, stats.UserID)
	case err != nil:
		return 0, err
	}
	return next, nil
}

// TopByXP reads the leaderboard set and fetches the matching documents.
func (s *Store) TopByXP(ctx context.Context, limit int) ([]domain.UserStats, error) {
	ids, err := s.rdb.ZRevRange(ctx, s.boardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.SliceCmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = p.HMGet(ctx, s.userKey(id), "doc", "version")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis pipeline: %w", err)
	}

	out := make([]domain.UserStats, 0, len(ids))
	for i, cmd := range cmds {
		st, _, err := decode(ids[i], cmd.Val())
		if errors.Is(err, domain.ErrStatsNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// decode turns an HMGET [doc, version] reply into stats.
func decode(userID string, vals []any) (domain.UserStats, int64, error) {
	if len(vals) != 2 || vals[0] == nil {
		return domain.UserStats{}, 0, domain.ErrStatsNotFound
	}
	doc, ok := vals[0].(string)
	if !ok {
		return domain.UserStats{}, 0, fmt.Errorf("user %s: unexpected doc type %T", userID, vals[0])
	}
	var version int64
	if v, ok := vals[1].(string); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return domain.UserStats{}, 0, fmt.Errorf("user %s: bad version %q", userID, v)
		}
		version = n
	}

	var stats domain.UserStats
	if err := json.Unmarshal([]byte(doc), &stats); err != nil {
		return domain.UserStats{}, 0, fmt.Errorf("decode user stats %s: %w", userID, err)
	}
	return stats, version, nil
}
