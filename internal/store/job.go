package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"validity.app/auditor/internal/model"
)

const jobKeyPrefix = "validity:job:"

// maxUpdateAttempts bounds retries when concurrent writers keep changing a job.
const maxUpdateAttempts = 5

var (
	// ErrJobExists is returned by Create when the ID is already taken.
	ErrJobExists = errors.New("job already exists")
	// ErrJobContended is returned when an update lost every optimistic retry.
	ErrJobContended = errors.New("job update contended")
)

type redisJobStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisJobStore keeps each job as one JSON value that expires ttl after
// creation. Updates keep the original expiry.
func NewRedisJobStore(client *redis.Client, ttl time.Duration) JobStore {
	return &redisJobStore{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func (s *redisJobStore) Create(ctx context.Context, job *model.Job) error {
	now := s.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	ok, err := s.client.SetNX(ctx, jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("storing job: %w", err)
	}
	if !ok {
		return ErrJobExists
	}
	return nil
}

func (s *redisJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return &job, nil
}

func (s *redisJobStore) MarkRunning(ctx context.Context, id string, attempt int) error {
	return s.update(ctx, id, func(job *model.Job) {
		job.Status = model.JobStatusRunning
		job.Attempts = attempt
	})
}

// Complete stores the result and drops the document text.
func (s *redisJobStore) Complete(ctx context.Context, id string, result *model.Result) error {
	return s.update(ctx, id, func(job *model.Job) {
		job.Status = model.JobStatusDone
		job.Result = result
		job.Error = ""
		job.Document = ""
	})
}

// Fail marks the job failed and drops the document text. result may be nil.
func (s *redisJobStore) Fail(ctx context.Context, id string, result *model.Result, errMsg string) error {
	return s.update(ctx, id, func(job *model.Job) {
		job.Status = model.JobStatusFailed
		job.Result = result
		job.Error = errMsg
		job.Document = ""
	})
}

// update applies fn as an optimistic transaction: the write only lands if
// the key is unchanged since it was read, otherwise fn reruns on fresh state.
func (s *redisJobStore) update(ctx context.Context, id string, fn func(job *model.Job)) error {
	key := jobKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("loading job: %w", err)
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("decoding job: %w", err)
		}

		fn(&job)
		job.UpdatedAt = s.now()

		data, err = json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("encoding job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("updating job: %w", err)
		}
		return err
	}
	return fmt.Errorf("updating job %s: %w", id, ErrJobContended)
}
