package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"didreg/internal/registrar/models"
	id "didreg/pkg/domain"
)

const jobKeyPrefix = "didreg:job:"

// RedisJobStore shares the job table across registrar instances. Expiry rides
// on Redis key TTL, so the periodic sweep has nothing left to reclaim here.
type RedisJobStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisJobStore(client *redis.Client, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{client: client, ttl: ttl}
}

func jobKey(jobID id.JobID) string {
	return jobKeyPrefix + jobID.String()
}

func (s *RedisJobStore) Save(ctx context.Context, job *models.RegistrationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Find(ctx context.Context, jobID id.JobID) (*models.RegistrationJob, error) {
	raw, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	var job models.RegistrationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// Delete removes the job. DEL's removed-key count makes the single-use
// guarantee hold across racing finalize calls on different instances.
func (s *RedisJobStore) Delete(ctx context.Context, jobID id.JobID) error {
	removed, err := s.client.Del(ctx, jobKey(jobID)).Result()
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired is a no-op: Redis reclaims expired jobs through key TTL.
func (s *RedisJobStore) DeleteExpired(_ context.Context) (int, error) {
	return 0, nil
}
