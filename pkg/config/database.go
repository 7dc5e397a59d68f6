package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"HR_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"HR_PG_PORT" env-default:"5432"`
	Database string `env:"HR_PG_DATABASE" env-default:"hrconnect"`
	User     string `env:"HR_PG_USER" env-default:"hrconnect"`
	Password string `env:"HR_PG_PASSWORD" env-default:"pwd"`
	// Migrate runs the embedded schema migrations at startup.
	Migrate bool `env:"HR_PG_MIGRATE" env-default:"true"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

func (d DatabaseConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("HR_PG_HOST", d.Host),
		RequireValidPort("HR_PG_PORT", d.Port),
		RequireNonEmpty("HR_PG_DATABASE", d.Database),
		RequireNonEmpty("HR_PG_USER", d.User),
	)
}
