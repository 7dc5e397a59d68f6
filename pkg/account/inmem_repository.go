package account

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository in process memory.
// It backs tests and the memory persistence mode.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[int64]Account
	byEmail map[string]int64
	nextID  int64
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[int64]Account),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return r.byID[id], nil
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id int64) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, email, passwordHash string, role Role) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := NormalizeEmail(email)
	if _, exists := r.byEmail[key]; exists {
		return Account{}, ErrAccountExists
	}

	r.nextID++
	now := r.now().UTC()
	a := Account{
		ID:           r.nextID,
		Email:        key,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[a.ID] = a
	r.byEmail[key] = a.ID
	return a, nil
}

func (r *InMemoryRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	a.UpdatedAt = r.now().UTC()
	r.byID[id] = a
	return nil
}
