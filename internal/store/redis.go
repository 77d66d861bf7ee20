package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/ingest"
)

// revisionSwapScript swaps one revision atomically.
// KEYS[1] = revision hash, KEYS[2] = key index (sorted set)
// ARGV[1] = "1" when a revision is expected, else "0"
// ARGV[2] = expected event id
// ARGV[3] = next event id
// ARGV[4] = next revision JSON
// ARGV[5] = key string (index member)
var revisionSwapScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "event_id")
if ARGV[1] == "0" then
    if cur then
        return 0
    end
else
    if not cur or cur ~= ARGV[2] then
        return 0
    end
end
redis.call("HSET", KEYS[1], "event_id", ARGV[3], "revision", ARGV[4])
redis.call("ZADD", KEYS[2], 0, ARGV[5])
return 1
`)

// checkpointSwapScript swaps one shard checkpoint atomically.
// KEYS[1] = checkpoints hash
// ARGV[1] = shard id
// ARGV[2] = "1" when a checkpoint is expected, else "0"
// ARGV[3] = expected checkpoint JSON
// ARGV[4] = next checkpoint JSON
var checkpointSwapScript = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], ARGV[1])
if ARGV[2] == "0" then
    if cur then
        return 0
    end
else
    if not cur or cur ~= ARGV[3] then
        return 0
    end
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[4])
return 1
`)

// DefaultRedisPrefix namespaces every key the Redis backend writes.
const DefaultRedisPrefix = "relaysync:"

// Redis stores revisions and checkpoints in Redis.
//
// Each revision lives in its own hash ("<prefix>rev:<key>") with the
// winning event id beside the JSON revision; a sorted set of key strings
// with equal scores gives lexicographic listing order. Checkpoints share
// one hash keyed by shard id. Checkpoint values are compared as JSON, so
// they are always written through json.Marshal of the same struct.
type Redis struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to the Redis server at url (redis://...).
func OpenRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedis(rdb, prefix), nil
}

// NewRedis wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) revisionKey(key eventstate.Key) string {
	return r.prefix + "rev:" + key.String()
}

func (r *Redis) indexKey() string {
	return r.prefix + "keys"
}

func (r *Redis) checkpointsKey() string {
	return r.prefix + "checkpoints"
}

// Current returns the stored revision of key, or nil.
func (r *Redis) Current(ctx context.Context, key eventstate.Key) (*ingest.Revision, error) {
	data, err := r.client.HGet(ctx, r.revisionKey(key), "revision").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current %s: %w", key, err)
	}
	rev, err := unmarshalRevision(data)
	if err != nil {
		return nil, fmt.Errorf("current %s: %w", key, err)
	}
	return &rev, nil
}

// CompareAndSwap stores next under key if the stored revision is still
// expected.
func (r *Redis) CompareAndSwap(ctx context.Context, key eventstate.Key, expected *ingest.Revision, next ingest.Revision) (bool, error) {
	data, err := marshalRevision(next)
	if err != nil {
		return false, fmt.Errorf("compare-and-swap %s: %w", key, err)
	}
	has, expectedID := "0", ""
	if expected != nil {
		has, expectedID = "1", expected.EventID
	}
	n, err := revisionSwapScript.Run(ctx, r.client,
		[]string{r.revisionKey(key), r.indexKey()},
		has, expectedID, next.EventID, data, key.String(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("compare-and-swap %s: %w", key, err)
	}
	return n == 1, nil
}

// Revisions lists stored revisions matching filter, ordered by key.
func (r *Redis) Revisions(ctx context.Context, filter ingest.RevisionFilter) ([]ingest.Revision, error) {
	keys, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list revision keys: %w", err)
	}

	out := []ingest.Revision{}
	for _, s := range keys {
		key, err := eventstate.ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("list revisions: %w", err)
		}
		if len(filter.Kinds) > 0 && !containsKind(filter.Kinds, key.Kind) {
			continue
		}
		rev, err := r.Current(ctx, key)
		if err != nil {
			return nil, err
		}
		if rev != nil && filter.Matches(*rev) {
			out = append(out, *rev)
		}
	}
	return out, nil
}

func containsKind(kinds []uint32, k uint32) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

// GetCheckpoint returns the checkpoint of shard id, or nil.
func (r *Redis) GetCheckpoint(ctx context.Context, id checkpoint.ShardID) (*checkpoint.ShardCheckpoint, error) {
	data, err := r.client.HGet(ctx, r.checkpointsKey(), string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	var cp checkpoint.ShardCheckpoint
	if err := json.Unmarshal([]byte(data), &cp); err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	return &cp, nil
}

// PutCheckpoint replaces or inserts cp with a single HSET.
func (r *Redis) PutCheckpoint(ctx context.Context, cp checkpoint.ShardCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("put checkpoint %s: %w", cp.ShardID, err)
	}
	if err := r.client.HSet(ctx, r.checkpointsKey(), string(cp.ShardID), data).Err(); err != nil {
		return fmt.Errorf("put checkpoint %s: %w", cp.ShardID, err)
	}
	return nil
}

// CompareAndSwapCheckpoint writes next if the stored checkpoint still
// equals expected.
func (r *Redis) CompareAndSwapCheckpoint(ctx context.Context, expected *checkpoint.ShardCheckpoint, next checkpoint.ShardCheckpoint) (bool, error) {
	nextJSON, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("compare-and-swap checkpoint %s: %w", next.ShardID, err)
	}
	has, expectedJSON := "0", []byte{}
	if expected != nil {
		has = "1"
		if expectedJSON, err = json.Marshal(expected); err != nil {
			return false, fmt.Errorf("compare-and-swap checkpoint %s: %w", next.ShardID, err)
		}
	}
	n, err := checkpointSwapScript.Run(ctx, r.client,
		[]string{r.checkpointsKey()},
		string(next.ShardID), has, string(expectedJSON), string(nextJSON),
	).Int()
	if err != nil {
		return false, fmt.Errorf("compare-and-swap checkpoint %s: %w", next.ShardID, err)
	}
	return n == 1, nil
}

// Checkpoints returns every checkpoint ordered by shard id.
func (r *Redis) Checkpoints(ctx context.Context) ([]checkpoint.ShardCheckpoint, error) {
	all, err := r.client.HGetAll(ctx, r.checkpointsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	cps := make([]checkpoint.ShardCheckpoint, 0, len(all))
	for id, data := range all {
		var cp checkpoint.ShardCheckpoint
		if err := json.Unmarshal([]byte(data), &cp); err != nil {
			return nil, fmt.Errorf("list checkpoints: shard %s: %w", id, err)
		}
		cps = append(cps, cp)
	}
	sort.Slice(cps, func(i, j int) bool { return cps[i].ShardID < cps[j].ShardID })
	return cps, nil
}
