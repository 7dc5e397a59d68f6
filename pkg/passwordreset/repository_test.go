package passwordreset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/hrconnect-auth/internal/pgtest"
	"github.com/tendant/hrconnect-auth/pkg/account"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// runRepositoryContract exercises behaviour both implementations must share.
// accounts must hold accountID with password hash "hash-0".
func runRepositoryContract(t *testing.T, repo Repository, accounts account.Repository, accountID int64) {
	ctx := context.Background()
	const email = "jane@singular.co.za"

	t.Run("valid pin lookup is case-insensitive on email", func(t *testing.T) {
		created, err := repo.CreatePin(ctx, accountID, email, "4821", baseTime.Add(10*time.Minute))
		require.NoError(t, err)

		found, err := repo.FindValidPin(ctx, "JANE@Singular.co.za", "4821", baseTime)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, accountID, found.AccountID)
		assert.False(t, found.Used)
	})

	t.Run("wrong pin or wrong email", func(t *testing.T) {
		_, err := repo.FindValidPin(ctx, email, "0000", baseTime)
		assert.ErrorIs(t, err, ErrPinNotFound)
		_, err = repo.FindValidPin(ctx, "john@singular.co.za", "4821", baseTime)
		assert.ErrorIs(t, err, ErrPinNotFound)
	})

	t.Run("expiry boundary is exclusive", func(t *testing.T) {
		expires := baseTime.Add(5 * time.Minute)
		_, err := repo.CreatePin(ctx, accountID, email, "7777", expires)
		require.NoError(t, err)

		_, err = repo.FindValidPin(ctx, email, "7777", expires.Add(-time.Millisecond))
		assert.NoError(t, err)
		_, err = repo.FindValidPin(ctx, email, "7777", expires)
		assert.ErrorIs(t, err, ErrPinNotFound)
	})

	t.Run("used pins are invisible and cannot be consumed twice", func(t *testing.T) {
		p, err := repo.CreatePin(ctx, accountID, email, "1234", baseTime.Add(10*time.Minute))
		require.NoError(t, err)

		require.NoError(t, repo.MarkPinUsed(ctx, p.ID))
		assert.ErrorIs(t, repo.MarkPinUsed(ctx, p.ID), ErrPinNotFound)

		_, err = repo.FindValidPin(ctx, email, "1234", baseTime)
		assert.ErrorIs(t, err, ErrPinNotFound)
	})

	t.Run("concurrent consumption has one winner", func(t *testing.T) {
		p, err := repo.CreatePin(ctx, accountID, email, "5555", baseTime.Add(10*time.Minute))
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if repo.MarkPinUsed(ctx, p.ID) == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("newest matching pin wins", func(t *testing.T) {
		first, err := repo.CreatePin(ctx, accountID, email, "9090", baseTime.Add(10*time.Minute))
		require.NoError(t, err)
		second, err := repo.CreatePin(ctx, accountID, email, "9090", baseTime.Add(10*time.Minute))
		require.NoError(t, err)
		require.NotEqual(t, first.ID, second.ID)

		found, err := repo.FindValidPin(ctx, email, "9090", baseTime)
		require.NoError(t, err)
		assert.Equal(t, second.ID, found.ID)
	})

	t.Run("delete expired pins", func(t *testing.T) {
		spent, err := repo.CreatePin(ctx, accountID, email, "3030", baseTime.Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.MarkPinUsed(ctx, spent.ID))

		cutoff := baseTime.Add(6 * time.Minute)
		removed, err := repo.DeleteExpiredPins(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed, "only the unused 7777 pin goes")

		_, err = repo.FindValidPin(ctx, email, "4821", baseTime)
		assert.NoError(t, err, "unexpired pins survive")
		assert.ErrorIs(t, repo.MarkPinUsed(ctx, spent.ID), ErrPinNotFound, "used pin is kept and stays used")
	})

	t.Run("password history", func(t *testing.T) {
		entries, err := repo.ListPasswordHistory(ctx, accountID)
		require.NoError(t, err)
		assert.Empty(t, entries)

		require.NoError(t, repo.AddPasswordHistory(ctx, accountID, "hash-1"))
		require.NoError(t, repo.AddPasswordHistory(ctx, accountID, "hash-2"))

		entries, err = repo.ListPasswordHistory(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "hash-2", entries[0].PasswordHash)
		assert.Equal(t, "hash-1", entries[1].PasswordHash)

		others, err := repo.ListPasswordHistory(ctx, accountID+1000)
		require.NoError(t, err)
		assert.Empty(t, others)
	})

	t.Run("complete reset writes pin, history and account together", func(t *testing.T) {
		p, err := repo.CreatePin(ctx, accountID, email, "6060", baseTime.Add(10*time.Minute))
		require.NoError(t, err)

		change := PasswordChange{PinID: p.ID, AccountID: accountID, OldHash: "hash-0", NewHash: "hash-3"}
		require.NoError(t, repo.CompleteReset(ctx, change))

		_, err = repo.FindValidPin(ctx, email, "6060", baseTime)
		assert.ErrorIs(t, err, ErrPinNotFound)
		entries, err := repo.ListPasswordHistory(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "hash-0", entries[0].PasswordHash)
		acct, err := accounts.FindByID(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, "hash-3", acct.PasswordHash)

		// a second completion with the same pin writes nothing
		again := PasswordChange{PinID: p.ID, AccountID: accountID, OldHash: "hash-3", NewHash: "hash-4"}
		assert.ErrorIs(t, repo.CompleteReset(ctx, again), ErrPinNotFound)
		entries, err = repo.ListPasswordHistory(ctx, accountID)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
		acct, err = accounts.FindByID(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, "hash-3", acct.PasswordHash)
	})

	t.Run("complete reset for a missing account rolls back", func(t *testing.T) {
		p, err := repo.CreatePin(ctx, accountID, email, "7070", baseTime.Add(10*time.Minute))
		require.NoError(t, err)

		change := PasswordChange{PinID: p.ID, AccountID: accountID + 1000, OldHash: "x", NewHash: "y"}
		assert.ErrorIs(t, repo.CompleteReset(ctx, change), account.ErrAccountNotFound)

		_, err = repo.FindValidPin(ctx, email, "7070", baseTime)
		assert.NoError(t, err, "pin stays unused")
		others, err := repo.ListPasswordHistory(ctx, accountID+1000)
		require.NoError(t, err)
		assert.Empty(t, others)
	})

	t.Run("concurrent completion has one winner", func(t *testing.T) {
		p, err := repo.CreatePin(ctx, accountID, email, "8080", baseTime.Add(10*time.Minute))
		require.NoError(t, err)
		before, err := repo.ListPasswordHistory(ctx, accountID)
		require.NoError(t, err)

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				change := PasswordChange{PinID: p.ID, AccountID: accountID, OldHash: "hash-3", NewHash: "hash-5"}
				if repo.CompleteReset(ctx, change) == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		after, err := repo.ListPasswordHistory(ctx, accountID)
		require.NoError(t, err)
		assert.Len(t, after, len(before)+1)
	})
}

type failingUpdater struct{}

func (failingUpdater) UpdatePasswordHash(context.Context, int64, string) error {
	return errors.New("connection reset")
}

func TestInMemoryRepository(t *testing.T) {
	accounts := account.NewInMemoryRepository()
	acct, err := accounts.Create(context.Background(), "jane@singular.co.za", "hash-0", account.RoleNormalUser)
	require.NoError(t, err)

	repo := NewInMemoryRepository(accounts)
	runRepositoryContract(t, repo, accounts, acct.ID)

	t.Run("copies are detached", func(t *testing.T) {
		pins := repo.Pins()
		require.NotEmpty(t, pins)
		pins[0].Pin = "tampered"
		assert.NotEqual(t, "tampered", repo.Pins()[0].Pin)
	})
}

func TestPostgresRepository(t *testing.T) {
	pool := pgtest.NewPool(t)
	acct, err := account.NewPostgresRepository(pool).Create(context.Background(), "jane@singular.co.za", "hash-0", account.RoleNormalUser)
	require.NoError(t, err)

	runRepositoryContract(t, NewPostgresRepository(pool), account.NewPostgresRepository(pool), acct.ID)
}

func TestInMemoryCompleteResetFailedUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository(failingUpdater{})
	p, err := repo.CreatePin(ctx, 1, "jane@singular.co.za", "4821", baseTime.Add(10*time.Minute))
	require.NoError(t, err)

	err = repo.CompleteReset(ctx, PasswordChange{PinID: p.ID, AccountID: 1, OldHash: "old", NewHash: "new"})
	require.EqualError(t, err, "connection reset")

	_, err = repo.FindValidPin(ctx, "jane@singular.co.za", "4821", baseTime)
	assert.NoError(t, err)
	entries, err := repo.ListPasswordHistory(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Error(t, NewInMemoryRepository(nil).CompleteReset(ctx, PasswordChange{PinID: p.ID}))
}

func TestNewRepository(t *testing.T) {
	repo, err := NewRepository("memory", RepositoryConfig{Accounts: account.NewInMemoryRepository()})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryRepository{}, repo)

	_, err = NewRepository("memory", RepositoryConfig{})
	assert.Error(t, err)

	_, err = NewRepository("postgres", RepositoryConfig{})
	assert.Error(t, err)

	_, err = NewRepository("file", RepositoryConfig{})
	assert.Error(t, err)
}
