package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/tazhibayda/event-service/internal/domain"
)

// Redis caches sanitized users resolved by the auth middleware.
type Redis struct {
	C   *redis.Client
	TTL time.Duration
}

func NewRedis(addr string, ttl time.Duration) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr}), TTL: ttl}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

func userKey(id string) string { return "event-service:user:" + id }

// GetUser returns nil, nil on a cache miss.
func (r *Redis) GetUser(ctx context.Context, id string) (*domain.PublicUser, error) {
	b, err := r.C.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var u domain.PublicUser
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Redis) SetUser(ctx context.Context, u domain.PublicUser) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return r.C.Set(ctx, userKey(u.ID.Hex()), b, r.TTL).Err()
}

func (r *Redis) DelUser(ctx context.Context, id string) error {
	return r.C.Del(ctx, userKey(id)).Err()
}
