package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rubric-review/backend/pkg/models"
)

const (
	defaultRedisPrefix = "rubric"
	maxWatchRetries    = 16
)

// ErrTooManyRetries is returned when an optimistic update keeps losing the
// race against concurrent writers.
var ErrTooManyRetries = errors.New("workflow update retried too many times")

// RedisWorkflowStore keeps each record as a JSON string. Ids come from INCR;
// updates are WATCH/MULTI transactions retried on conflict.
type RedisWorkflowStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisWorkflowStore creates a store whose keys start with prefix.
func NewRedisWorkflowStore(client redis.UniversalClient, prefix string) *RedisWorkflowStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisWorkflowStore{client: client, prefix: prefix}
}

func (s *RedisWorkflowStore) seqKey() string   { return s.prefix + ":workflow:seq" }
func (s *RedisWorkflowStore) indexKey() string { return s.prefix + ":workflow:ids" }
func (s *RedisWorkflowStore) recordKey(id int64) string {
	return s.prefix + ":workflow:" + strconv.FormatInt(id, 10)
}

// Create allocates an id and stores the record with its index entry.
func (s *RedisWorkflowStore) Create(ctx context.Context, inputs *models.TaskZeroInputs) (*models.WorkflowRecord, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate workflow id: %w", err)
	}

	now := time.Now().UTC()
	rec := &models.WorkflowRecord{
		ID:             id,
		TaskZeroInputs: inputs,
		CurrentStep:    models.StepTaskZero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode workflow %d: %w", id, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(id), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store workflow %d: %w", id, err)
	}
	return rec.Clone(), nil
}

// Get retrieves a record by id.
func (s *RedisWorkflowStore) Get(ctx context.Context, id int64) (*models.WorkflowRecord, error) {
	raw, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.NewWorkflowNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get workflow %d: %w", id, err)
	}
	return decodeRecord(id, raw)
}

// UpdatePartial runs mutate inside a WATCH transaction on the record key.
func (s *RedisWorkflowStore) UpdatePartial(ctx context.Context, id int64, mutate MutateFunc) (*models.WorkflowRecord, error) {
	key := s.recordKey(id)
	var updated *models.WorkflowRecord

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.NewWorkflowNotFoundError(id)
		}
		if err != nil {
			return fmt.Errorf("redis get workflow %d: %w", id, err)
		}
		rec, err := decodeRecord(id, raw)
		if err != nil {
			return err
		}
		if err := mutate(rec); err != nil {
			return err
		}
		rec.ID = id
		rec.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode workflow %d: %w", id, err)
		}
		// SET XX never resurrects a record removed behind our back.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetXX(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		updated = rec
		return nil
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update workflow %d: %w", id, ErrTooManyRetries)
}

// List returns records ordered by id.
func (s *RedisWorkflowStore) List(ctx context.Context, limit, offset int) ([]*models.WorkflowRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	members, err := s.client.ZRange(ctx, s.indexKey(), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list workflow ids: %w", err)
	}

	records := make([]*models.WorkflowRecord, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse workflow id %q: %w", m, err)
		}
		rec, err := s.Get(ctx, id)
		if models.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Ping checks the Redis connection.
func (s *RedisWorkflowStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeRecord(id int64, raw []byte) (*models.WorkflowRecord, error) {
	var rec models.WorkflowRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode workflow %d: %w", id, err)
	}
	return &rec, nil
}
