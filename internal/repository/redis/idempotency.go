package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

var (
	_ repository.IdempotencyStore = (*redisIdempotency)(nil)
	_ repository.SubmissionKeys   = (*redisSubmissionKeys)(nil)
)

const (
	lockKeyPrefix       = "lumina:event-lock:"
	submissionKeyPrefix = "lumina:idempotency:"

	// inFlight marks a reserved submission key whose jobs are not recorded yet.
	inFlight = "-"

	// reservationTTL bounds how long a crashed submission can block its key.
	reservationTTL = 2 * time.Minute
)

// Connect parses a redis:// URL and verifies the connection.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

type redisIdempotency struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a Redis-backed event dedup store using SETNX.
func NewRedisIdempotencyStore(client *goredis.Client, ttl time.Duration) repository.IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisIdempotency{client: client, ttl: ttl}
}

// AcquireLock uses Redis SETNX to atomically acquire a processing lock.
func (r *redisIdempotency) AcquireLock(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key := lockKeyPrefix + eventID.String()
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock refreshes the TTL on the lock key for eventual cleanup.
func (r *redisIdempotency) ReleaseLock(ctx context.Context, eventID uuid.UUID) error {
	key := lockKeyPrefix + eventID.String()
	return r.client.Expire(ctx, key, r.ttl).Err()
}

func (r *redisIdempotency) Forget(ctx context.Context, eventID uuid.UUID) error {
	return r.client.Del(ctx, lockKeyPrefix+eventID.String()).Err()
}

type redisSubmissionKeys struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisSubmissionKeys creates the Redis store behind the Idempotency-Key header.
// Completed keys are remembered for ttl.
func NewRedisSubmissionKeys(client *goredis.Client, ttl time.Duration) repository.SubmissionKeys {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisSubmissionKeys{client: client, ttl: ttl}
}

func (r *redisSubmissionKeys) Reserve(ctx context.Context, key string) (*domain.Submission, bool, error) {
	k := submissionKeyPrefix + key
	ok, err := r.client.SetNX(ctx, k, inFlight, reservationTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis: reserve key: %w", err)
	}
	if ok {
		return nil, true, nil
	}

	val, err := r.client.Get(ctx, k).Result()
	if errors.Is(err, goredis.Nil) {
		// Released between SETNX and GET; report in flight and let the caller retry.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: read key: %w", err)
	}
	if val == inFlight {
		return nil, false, nil
	}
	sub, err := decodeSubmission(val)
	if err != nil {
		return nil, false, fmt.Errorf("redis: decode key %q: %w", key, err)
	}
	return sub, false, nil
}

func (r *redisSubmissionKeys) Complete(ctx context.Context, key string, sub *domain.Submission) error {
	val, err := encodeSubmission(sub)
	if err != nil {
		return fmt.Errorf("redis: encode key %q: %w", key, err)
	}
	if err := r.client.Set(ctx, submissionKeyPrefix+key, val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: complete key: %w", err)
	}
	return nil
}

func (r *redisSubmissionKeys) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, submissionKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: release key: %w", err)
	}
	return nil
}

func encodeSubmission(sub *domain.Submission) (string, error) {
	raw, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSubmission(s string) (*domain.Submission, error) {
	var sub domain.Submission
	if err := json.Unmarshal([]byte(s), &sub); err != nil {
		return nil, err
	}
	if sub.JobIDs == nil {
		sub.JobIDs = []uuid.UUID{}
	}
	return &sub, nil
}
