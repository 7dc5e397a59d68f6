package login

import (
	"context"
	"sync"
	"time"
)

type attemptEntry struct {
	mu      sync.Mutex
	state   AttemptState
	removed bool
}

// InMemoryAttemptTracker keeps attempt state in process memory. State does
// not survive a restart and is not shared between instances.
type InMemoryAttemptTracker struct {
	policy LockoutPolicy
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*attemptEntry
}

// TrackerOption configures a tracker
type TrackerOption func(*trackerOptions)

type trackerOptions struct {
	now func() time.Time
	ttl time.Duration
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(o *trackerOptions) {
		o.now = now
	}
}

// WithStateTTL expires idle state in shared backends. Zero keeps state until reset.
func WithStateTTL(ttl time.Duration) TrackerOption {
	return func(o *trackerOptions) {
		o.ttl = ttl
	}
}

func applyTrackerOptions(opts []TrackerOption) trackerOptions {
	o := trackerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewInMemoryAttemptTracker(policy LockoutPolicy, opts ...TrackerOption) *InMemoryAttemptTracker {
	o := applyTrackerOptions(opts)
	return &InMemoryAttemptTracker{
		policy:  policy,
		now:     o.now,
		entries: make(map[string]*attemptEntry),
	}
}

// acquire returns the locked entry for key. With create unset a missing key
// yields nil. An entry removed while we waited on its lock is retried so
// that no update lands on a detached record.
func (t *InMemoryAttemptTracker) acquire(key string, create bool) *attemptEntry {
	for {
		t.mu.Lock()
		e, ok := t.entries[key]
		if !ok {
			if !create {
				t.mu.Unlock()
				return nil
			}
			e = &attemptEntry{}
			t.entries[key] = e
		}
		t.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

// remove must be called with e.mu held.
func (t *InMemoryAttemptTracker) remove(key string, e *attemptEntry) {
	e.removed = true
	t.mu.Lock()
	if t.entries[key] == e {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

func (t *InMemoryAttemptTracker) Check(ctx context.Context, key string) error {
	e := t.acquire(key, false)
	if e == nil {
		return nil
	}
	defer e.mu.Unlock()

	st, _, err := t.policy.gate(e.state, t.now())
	e.state = st
	return err
}

func (t *InMemoryAttemptTracker) RecordFailure(ctx context.Context, key string) error {
	e := t.acquire(key, true)
	defer e.mu.Unlock()

	now := t.now()
	st, _, err := t.policy.gate(e.state, now)
	if err != nil {
		e.state = st
		return err
	}
	e.state, err = t.policy.fail(st, now)
	return err
}

func (t *InMemoryAttemptTracker) RecordSuccess(ctx context.Context, key string) error {
	e := t.acquire(key, false)
	if e == nil {
		return nil
	}
	defer e.mu.Unlock()

	st, _, err := t.policy.gate(e.state, t.now())
	if err != nil {
		e.state = st
		return err
	}
	t.remove(key, e)
	return nil
}

func (t *InMemoryAttemptTracker) Reset(ctx context.Context, key string) error {
	e := t.acquire(key, false)
	if e == nil {
		return nil
	}
	defer e.mu.Unlock()

	t.remove(key, e)
	return nil
}

func (t *InMemoryAttemptTracker) State(ctx context.Context, key string) (AttemptState, bool, error) {
	e := t.acquire(key, false)
	if e == nil {
		return AttemptState{}, false, nil
	}
	defer e.mu.Unlock()
	return e.state, true, nil
}
