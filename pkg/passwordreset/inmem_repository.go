package passwordreset

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

// InMemoryRepository implements Repository in process memory.
type InMemoryRepository struct {
	mu      sync.Mutex
	pins    []ResetPin
	history []HistoryEntry
	nextPin int64
	nextHis int64
	now     func() time.Time

	accounts PasswordUpdater
}

// NewInMemoryRepository keeps pins and history in memory. accounts receives
// the new hash when a reset completes.
func NewInMemoryRepository(accounts PasswordUpdater) *InMemoryRepository {
	return &InMemoryRepository{now: time.Now, accounts: accounts}
}

func (r *InMemoryRepository) CreatePin(ctx context.Context, accountID int64, email, pin string, expiresAt time.Time) (ResetPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextPin++
	p := ResetPin{
		ID:        r.nextPin,
		AccountID: accountID,
		Email:     strings.ToLower(email),
		Pin:       pin,
		ExpiresAt: expiresAt,
		CreatedAt: r.now(),
	}
	r.pins = append(r.pins, p)
	return p, nil
}

func (r *InMemoryRepository) FindValidPin(ctx context.Context, email, pin string, now time.Time) (ResetPin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Later inserts win ties on created_at, matching ORDER BY created_at DESC, id DESC.
	for i := len(r.pins) - 1; i >= 0; i-- {
		p := r.pins[i]
		if p.Used || p.Pin != pin || !strings.EqualFold(p.Email, email) {
			continue
		}
		if !p.ExpiresAt.After(now) {
			continue
		}
		return p, nil
	}
	return ResetPin{}, ErrPinNotFound
}

func (r *InMemoryRepository) MarkPinUsed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.pins {
		if r.pins[i].ID == id && !r.pins[i].Used {
			r.pins[i].Used = true
			return nil
		}
	}
	return ErrPinNotFound
}

// CompleteReset holds the lock across the account update, so a failed update
// leaves the PIN unused and the history untouched.
func (r *InMemoryRepository) CompleteReset(ctx context.Context, change PasswordChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accounts == nil {
		return errors.New("in-memory reset repository has no account store")
	}

	idx := -1
	for i := range r.pins {
		if r.pins[i].ID == change.PinID && !r.pins[i].Used {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrPinNotFound
	}

	if err := r.accounts.UpdatePasswordHash(ctx, change.AccountID, change.NewHash); err != nil {
		return err
	}

	r.pins[idx].Used = true
	r.nextHis++
	r.history = append(r.history, HistoryEntry{
		ID:           r.nextHis,
		AccountID:    change.AccountID,
		PasswordHash: change.OldHash,
		ChangedAt:    r.now(),
	})
	return nil
}

func (r *InMemoryRepository) DeleteExpiredPins(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.pins[:0]
	var removed int64
	for _, p := range r.pins {
		if !p.Used && !p.ExpiresAt.After(now) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	r.pins = kept
	return removed, nil
}

func (r *InMemoryRepository) AddPasswordHistory(ctx context.Context, accountID int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHis++
	r.history = append(r.history, HistoryEntry{
		ID:           r.nextHis,
		AccountID:    accountID,
		PasswordHash: passwordHash,
		ChangedAt:    r.now(),
	})
	return nil
}

func (r *InMemoryRepository) ListPasswordHistory(ctx context.Context, accountID int64) ([]HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []HistoryEntry
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].AccountID == accountID {
			matched = append(matched, r.history[i])
		}
	}

	// Hand back copies so callers cannot reach into the store.
	var out []HistoryEntry
	if err := copier.Copy(&out, &matched); err != nil {
		return nil, err
	}
	return out, nil
}

// Pins returns a copy of every stored PIN.
func (r *InMemoryRepository) Pins() []ResetPin {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []ResetPin
	_ = copier.Copy(&out, &r.pins)
	return out
}
