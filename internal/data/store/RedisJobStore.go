package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/data/redisStore"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
)

// RedisJobStore keeps the status of queued scan jobs for a day.
type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisJobStore(ctx context.Context, opts redisStore.Options) *RedisJobStore {
	s := redisStore.GetRedisStore(ctx, opts, config.RedisJobStore)
	if s == nil {
		return nil
	}
	return &RedisJobStore{
		store:  s,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func jobKey(id string) string {
	return "job:" + id
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.WithContext(ctx).With("job Id", job.Id)
	log.Debug("saving job", "status", job.Status)
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, jobKey(job.Id), data, config.RedisJobStoreTTL)
	if err == nil {
		log.Debug("Saved job to Redis")
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := s.logger.WithContext(ctx).With("job Id", jobId)
	val, err := s.store.Get(ctx, jobKey(jobId))
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("Error getting job", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("Error unmarshalling job", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobId string) {
	if err := s.store.Del(ctx, jobKey(jobId)); err != nil {
		s.logger.WithContext(ctx).Error("Error deleting job from Redis", "job Id", jobId, "error", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "job Id", jobId)
}

func TestJobStore(store *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
