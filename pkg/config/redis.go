package config

import "github.com/redis/go-redis/v9"

// RedisConfig is only consulted when LOGIN_TRACKER=redis
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// ToOptions converts the config to go-redis client options
func (r RedisConfig) ToOptions() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

func (r RedisConfig) Validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("REDIS_ADDR", r.Addr),
		RequireNonNegative("REDIS_DB", r.DB),
	)
}
