package passwordreset

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig contains configuration for creating a password reset repository
type RepositoryConfig struct {
	// Pool is required for PostgreSQL repositories
	Pool *pgxpool.Pool

	// Accounts is required for in-memory repositories; Postgres updates the
	// accounts table inside its own transaction.
	Accounts PasswordUpdater
}

// NewRepository creates a repository for the given persistence type
func NewRepository(persistenceType string, config RepositoryConfig) (Repository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.Pool == nil {
			return nil, fmt.Errorf("pool required for postgres repository")
		}
		return NewPostgresRepository(config.Pool), nil
	case "memory":
		if config.Accounts == nil {
			return nil, fmt.Errorf("account store required for memory repository")
		}
		return NewInMemoryRepository(config.Accounts), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, memory)", persistenceType)
	}
}
