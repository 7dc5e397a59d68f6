package account

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepository creates an account repository for the given persistence type
func NewRepository(persistenceType string, pool *pgxpool.Pool) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresRepository(pool), nil
	case "memory":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, memory)", persistenceType)
	}
}
