package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soroban-labs/mastery"
)

// RedisConfig configures the Redis-backed deferral store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password authenticates with the server. Empty means none.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix namespaces all keys. Default "mastery".
	KeyPrefix string

	// TTLSlack is added to each deferral's remaining lifetime when
	// setting the key TTL. Expiry decisions always come from the
	// stored record; the TTL only garbage-collects dead keys.
	// Default 24h.
	TTLSlack time.Duration
}

// RedisDeferrals is a [DeferralStore] backed by Redis, for deployments
// where several processes share deferrals. Each deferral lives under
// <prefix>:defer:<player>:<skill> with a TTL slightly past its expiry.
type RedisDeferrals struct {
	rdb      *redis.Client
	prefix   string
	ttlSlack time.Duration
}

// NewRedisDeferrals connects to Redis and verifies the connection with
// a ping.
func NewRedisDeferrals(ctx context.Context, cfg RedisConfig) (*RedisDeferrals, error) {
	if cfg.Addr == "" {
		return nil, errors.New("store: redis addr required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "mastery"
	}
	if cfg.TTLSlack == 0 {
		cfg.TTLSlack = 24 * time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	return &RedisDeferrals{
		rdb:      rdb,
		prefix:   cfg.KeyPrefix,
		ttlSlack: cfg.TTLSlack,
	}, nil
}

var _ DeferralStore = (*RedisDeferrals)(nil)

func (r *RedisDeferrals) key(playerID, skillID string) string {
	return r.prefix + ":defer:" + playerID + ":" + skillID
}

func (r *RedisDeferrals) Upsert(ctx context.Context, d mastery.Deferral) error {
	buf, err := json.Marshal(d)
	if err != nil {
		return err
	}

	ttl := time.Until(d.ExpiresAt) + r.ttlSlack
	if ttl <= 0 {
		ttl = r.ttlSlack
	}
	return r.rdb.Set(ctx, r.key(d.PlayerID, d.SkillID), buf, ttl).Err()
}

func (r *RedisDeferrals) Get(ctx context.Context, playerID, skillID string) (mastery.Deferral, error) {
	buf, err := r.rdb.Get(ctx, r.key(playerID, skillID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return mastery.Deferral{}, ErrNotFound
	}
	if err != nil {
		return mastery.Deferral{}, err
	}

	var d mastery.Deferral
	if err := json.Unmarshal(buf, &d); err != nil {
		return mastery.Deferral{}, err
	}
	return d, nil
}

func (r *RedisDeferrals) Delete(ctx context.Context, playerID, skillID string) error {
	return r.rdb.Del(ctx, r.key(playerID, skillID)).Err()
}

func (r *RedisDeferrals) Player(ctx context.Context, playerID string) ([]mastery.Deferral, error) {
	pattern := r.prefix + ":defer:" + playerID + ":*"

	var out []mastery.Deferral
	iter := r.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		buf, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}

		var d mastery.Deferral
		if err := json.Unmarshal(buf, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

// Close releases the underlying client.
func (r *RedisDeferrals) Close() error {
	return r.rdb.Close()
}
