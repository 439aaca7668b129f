package config

import (
	"context"
	"log"
	"os"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock returns the distributed lock client. Nil when redis is not
// configured; callers must treat the lock as advisory either way.
func GetRedisLock() *redislock.Client {
	return locker
}

func init() {
	godotenv.Load()
}

// ConnectRedis sets up the shared redis client and lock client.
// Redis here is an optimization (per-tenant serialization); the system stays
// correct without it because the ledger uniqueness constraint resolves races.
func ConnectRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Printf("REDIS_ADDR not set; running without redis serialization")
		return
	}
	rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis ping failed (addr=%s): %v; running without redis serialization", addr, err)
		rdb = nil
		return
	}
	locker = redislock.New(rdb)
	log.Printf("redis ready (addr=%s)", addr)
}
