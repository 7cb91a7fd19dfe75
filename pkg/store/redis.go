package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"
)

// Script status codes.
const (
	casOK       = 1
	casNotFound = 0
	casRetired  = -1
	casStale    = -2
	casExists   = -3
)

// redisCreateScript stores a new instance at version 1.
// KEYS[1] = instance key
// ARGV[1] = encoded document
var redisCreateScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return -3
end
redis.call("HSET", KEYS[1], "version", 1, "retired", 0, "document", ARGV[1])
return 1
`)

// redisSwapScript replaces the document or retires the instance when the
// stored version matches.
// KEYS[1] = instance key
// ARGV[1] = expected version
// ARGV[2] = "replace" or "retire"
// ARGV[3] = encoded document (replace only)
var redisSwapScript = redis.NewScript(`
local state = redis.call("HMGET", KEYS[1], "version", "retired")
local version = tonumber(state[1])
if not version then
    return {0, 0}
end
if state[2] == "1" then
    return {-1, version}
end
if version ~= tonumber(ARGV[1]) then
    return {-2, version}
end
version = version + 1
if ARGV[2] == "retire" then
    redis.call("HSET", KEYS[1], "version", version, "retired", 1)
else
    redis.call("HSET", KEYS[1], "version", version, "document", ARGV[3])
end
return {1, version}
`)

// RedisStore implements Store with one hash per instance.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new store backed by Redis.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb, prefix: "fundgov:instance:"}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Create(ctx context.Context, id string, rec *contracts.Record) error {
	doc, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	code, err := redisCreateScript.Run(ctx, s.client, []string{s.key(id)}, string(doc)).Int64()
	if err != nil {
		return fmt.Errorf("redis create %s: %w", id, err)
	}
	if code == casExists {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (Versioned, error) {
	vals, err := s.client.HMGet(ctx, s.key(id), "version", "retired", "document").Result()
	if err != nil {
		return Versioned{}, fmt.Errorf("redis load %s: %w", id, err)
	}
	if vals[0] == nil {
		return Versioned{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r, _ := vals[1].(string); r == "1" {
		return Versioned{}, fmt.Errorf("%w: %s", ErrRetired, id)
	}
	raw, _ := vals[0].(string)
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Versioned{}, fmt.Errorf("redis load %s: bad version: %w", id, err)
	}
	doc, _ := vals[2].(string)
	rec, err := decodeRecord([]byte(doc))
	if err != nil {
		return Versioned{}, err
	}
	return Versioned{ID: id, Record: rec, Version: version}, nil
}

func (s *RedisStore) Replace(ctx context.Context, id string, expected int64, next *contracts.Record) (int64, error) {
	doc, err := encodeRecord(next)
	if err != nil {
		return 0, err
	}
	return s.swap(ctx, id, expected, "replace", string(doc))
}

func (s *RedisStore) Retire(ctx context.Context, id string, expected int64) error {
	_, err := s.swap(ctx, id, expected, "retire", "")
	return err
}

func (s *RedisStore) swap(ctx context.Context, id string, expected int64, op, doc string) (int64, error) {
	res, err := redisSwapScript.Run(ctx, s.client, []string{s.key(id)}, expected, op, doc).Result()
	if err != nil {
		return 0, fmt.Errorf("redis %s %s: %w", op, id, err)
	}
	results, ok := res.([]interface{})
	if !ok || len(results) != 2 {
		return 0, fmt.Errorf("invalid response from lua script")
	}
	code, _ := results[0].(int64)
	version, _ := results[1].(int64)

	switch code {
	case casOK:
		return version, nil
	case casNotFound:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	case casRetired:
		return 0, fmt.Errorf("%w: %s", ErrRetired, id)
	case casStale:
		return 0, fmt.Errorf("%w: %s at %d, expected %d", ErrStaleVersion, id, version, expected)
	}
	return 0, fmt.Errorf("redis %s %s: unexpected status %d", op, id, code)
}
