package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "hrconnect:login:attempts:"

// RedisAttemptTracker shares attempt state between instances. Each operation
// is a WATCH/MULTI compare-and-swap on one key, retried on contention until
// it commits or ctx is done.
type RedisAttemptTracker struct {
	client redis.UniversalClient
	policy LockoutPolicy
	now    func() time.Time
	ttl    time.Duration
	prefix string
}

func NewRedisAttemptTracker(client redis.UniversalClient, policy LockoutPolicy, opts ...TrackerOption) *RedisAttemptTracker {
	o := applyTrackerOptions(opts)
	return &RedisAttemptTracker{
		client: client,
		policy: policy,
		now:    o.now,
		ttl:    o.ttl,
		prefix: defaultKeyPrefix,
	}
}

// mutation inspects the current state and returns the next state, what to do
// with it, and the result for the caller.
type mutation func(st AttemptState, exists bool) (next AttemptState, op storeOp, result error)

type storeOp int

const (
	opKeep storeOp = iota
	opWrite
	opDelete
)

func (t *RedisAttemptTracker) update(ctx context.Context, key string, fn mutation) error {
	k := t.prefix + key
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
		}

		var result error
		err := t.client.Watch(ctx, func(tx *redis.Tx) error {
			st, exists, err := t.load(ctx, tx, k)
			if err != nil {
				return err
			}

			next, op, res := fn(st, exists)
			result = res

			switch op {
			case opWrite:
				payload, err := json.Marshal(next)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, k, payload, t.ttl)
					return nil
				})
				return err
			case opDelete:
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, k)
					return nil
				})
				return err
			default:
				return nil
			}
		}, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
		}
		return result
	}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (t *RedisAttemptTracker) load(ctx context.Context, c stringGetter, k string) (AttemptState, bool, error) {
	raw, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return AttemptState{}, false, nil
	}
	if err != nil {
		return AttemptState{}, false, err
	}
	var st AttemptState
	if err := json.Unmarshal(raw, &st); err != nil {
		return AttemptState{}, false, fmt.Errorf("decode attempt state: %w", err)
	}
	return st, true, nil
}

func (t *RedisAttemptTracker) Check(ctx context.Context, key string) error {
	now := t.now()
	return t.update(ctx, key, func(st AttemptState, exists bool) (AttemptState, storeOp, error) {
		if !exists {
			return st, opKeep, nil
		}
		next, changed, err := t.policy.gate(st, now)
		if changed {
			return next, opWrite, err
		}
		return next, opKeep, err
	})
}

func (t *RedisAttemptTracker) RecordFailure(ctx context.Context, key string) error {
	now := t.now()
	return t.update(ctx, key, func(st AttemptState, exists bool) (AttemptState, storeOp, error) {
		next, changed, err := t.policy.gate(st, now)
		if err != nil {
			if changed {
				return next, opWrite, err
			}
			return next, opKeep, err
		}
		next, err = t.policy.fail(next, now)
		return next, opWrite, err
	})
}

func (t *RedisAttemptTracker) RecordSuccess(ctx context.Context, key string) error {
	now := t.now()
	return t.update(ctx, key, func(st AttemptState, exists bool) (AttemptState, storeOp, error) {
		if !exists {
			return st, opKeep, nil
		}
		next, changed, err := t.policy.gate(st, now)
		if err != nil {
			if changed {
				return next, opWrite, err
			}
			return next, opKeep, err
		}
		return next, opDelete, nil
	})
}

func (t *RedisAttemptTracker) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}
	return nil
}

func (t *RedisAttemptTracker) State(ctx context.Context, key string) (AttemptState, bool, error) {
	st, exists, err := t.load(ctx, t.client, t.prefix+key)
	if err != nil {
		return AttemptState{}, false, fmt.Errorf("%w: %v", ErrTrackerUnavailable, err)
	}
	return st, exists, nil
}
