package account

import "context"

// Repository persists accounts. Email lookups are case-insensitive.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, email, passwordHash string, role Role) (Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}
