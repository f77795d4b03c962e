package config

const (
	storeBackendVar   = "STORE_BACKEND"
	redisURLVar       = "REDIS_URL"
	redisKeyPrefixVar = "REDIS_KEY_PREFIX"

	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	return GetEnv(storeBackendVar, StoreBackendRedis)
}

func (Store) GetRedisURL() string {
	return GetEnv(redisURLVar, "redis://localhost:6379")
}

func (Store) GetRedisKeyPrefix() string {
	return GetEnv(redisKeyPrefixVar, "")
}
