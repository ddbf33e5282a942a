package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/formflux/formflux/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore backs the gateway's ephemeral shared state: circuit records
// with a TTL and sliding-window rate-limit sorted sets.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

// slidingWindowScript atomically prunes entries outside the window, counts
// the remainder, and reserves a slot when the connector is under its limit.
// Returns 1 when allowed, 0 when the window is full.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, math.ceil(window / 1000) + 1)
    return 1
else
    return 0
end
`)

// NewRedisStore wires a go-redis client; pass a configured instance from main.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, script: slidingWindowScript}
}

// Client exposes the underlying connection for health checks.
func (s *RedisStore) Client() *redis.Client { return s.client }

func circuitKey(connectorID string) string {
	return fmt.Sprintf("cb:%s", connectorID)
}

func rateKey(connectorID string) string {
	return fmt.Sprintf("rl:%s", connectorID)
}

// GetCircuit returns the circuit record for a connector, or nil when no
// record exists (which means CLOSED).
func (s *RedisStore) GetCircuit(ctx context.Context, connectorID string) (*models.ConnectorCircuit, error) {
	raw, err := s.client.Get(ctx, circuitKey(connectorID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get circuit state: %w", err)
	}

	var circuit models.ConnectorCircuit
	if err := json.Unmarshal([]byte(raw), &circuit); err != nil {
		return nil, fmt.Errorf("decode circuit state: %w", err)
	}
	return &circuit, nil
}

// SetCircuit stores the circuit record with the given TTL.
func (s *RedisStore) SetCircuit(ctx context.Context, connectorID string, circuit *models.ConnectorCircuit, ttl time.Duration) error {
	raw, err := json.Marshal(circuit)
	if err != nil {
		return fmt.Errorf("encode circuit state: %w", err)
	}
	if err := s.client.Set(ctx, circuitKey(connectorID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set circuit state: %w", err)
	}
	return nil
}

// DeleteCircuit removes the circuit record, resetting the connector to CLOSED.
func (s *RedisStore) DeleteCircuit(ctx context.Context, connectorID string) error {
	if err := s.client.Del(ctx, circuitKey(connectorID)).Err(); err != nil {
		return fmt.Errorf("delete circuit state: %w", err)
	}
	return nil
}

// Reserve implements the sliding-window reservation via the Lua script.
func (s *RedisStore) Reserve(ctx context.Context, connectorID string, now time.Time, window time.Duration, limit int) (bool, error) {
	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d:%d", nowMs, now.UnixNano()%100000)

	result, err := s.script.Run(ctx, s.client, []string{rateKey(connectorID)},
		nowMs, window.Milliseconds(), limit, member,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("run sliding window script: %w", err)
	}
	return result == 1, nil
}

// Count prunes the window and returns the remaining request count.
func (s *RedisStore) Count(ctx context.Context, connectorID string, now time.Time, window time.Duration) (int64, error) {
	key := rateKey(connectorID)
	cutoff := now.UnixMilli() - window.Milliseconds()

	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return 0, fmt.Errorf("prune rate window: %w", err)
	}
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count rate window: %w", err)
	}
	return count, nil
}
