package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"viastudio/playback"
)

const redisOpTimeout = 2 * time.Second

// redisStore keeps each trajectory as a CSV blob under
// <prefix>:trajectory:<name> and the set of names under <prefix>:trajectories.
type redisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func newRedisStore(cfg RedisStoreConfig, logger *slog.Logger) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB, "prefix", cfg.Prefix)
	return &redisStore{client: client, prefix: cfg.Prefix, logger: logger}, nil
}

func (s *redisStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *redisStore) Load(name string) ([]playback.Row, error) {
	if err := validateTrajectoryName(name); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	blob, err := s.client.Get(ctx, s.key("trajectory", name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrTrajectoryNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}

	rows, err := playback.ReadCSV(strings.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return rows, nil
}

func (s *redisStore) Save(name string, jointNames []string, rows []playback.Row) error {
	if err := validateTrajectoryName(name); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := playback.WriteCSV(&buf, jointNames, rows); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("trajectory", name), buf.String(), 0)
		pipe.SAdd(ctx, s.key("trajectories"), name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", name, err)
	}

	s.logger.Debug("trajectory saved", "key", s.key("trajectory", name), "rows", len(rows))
	return nil
}

func (s *redisStore) List() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	names, err := s.client.SMembers(ctx, s.key("trajectories")).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *redisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
