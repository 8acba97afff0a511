package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Storage drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a KV driver.
type Options struct {
	Driver        string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Open builds the KV named by opts.Driver: memory, sqlite or redis.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverMemory:
		log.Println("[storage] using in-memory slots")
		return NewExpiringMemoryKV(opts.TTL, nil), nil
	case DriverSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite driver requires a database path")
		}
		kv, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("[storage] using sqlite slots at %s", opts.SQLitePath)
		return kv, nil
	case DriverRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis driver requires an address")
		}
		kv, err := DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL)
		if err != nil {
			return nil, err
		}
		log.Printf("[storage] using redis slots at %s", opts.RedisAddr)
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
