package cache

import (
	"context"
	"time"
)

// Partition names an independently configured cache store.
type Partition string

const (
	PartitionUsers     Partition = "users"
	PartitionCompanies Partition = "companies"
	PartitionJobs      Partition = "jobs"
	PartitionSearch    Partition = "search"
	PartitionStatic    Partition = "static"
)

// Partitions lists every known partition in a stable order.
func Partitions() []Partition {
	return []Partition{
		PartitionUsers,
		PartitionCompanies,
		PartitionJobs,
		PartitionSearch,
		PartitionStatic,
	}
}

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across calls.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn is the function signature GetOrFetch expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store is a bounded TTL key-value partition holding encoded values.
// Implementations must be safe for concurrent use.
type Store interface {
	Name() string
	DefaultTTL() time.Duration
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) bool
	Delete(keys ...string) int
	Keys() []string
	Tag(key string, tags ...string)
	KeysTagged(tag string) []string
	Flush() int
	Stats() PartitionStats
	Close()
}
