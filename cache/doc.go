// Package cache provides the partitioned TTL cache used by the search layer.
//
// # Overview
//
// The package exports three main pieces:
//
//   - Store: a bounded key-value partition holding encoded values with a
//     per entry expiry. NewPartition builds the default sturdyc backed Store.
//   - Manager: a facade routing reads, writes and invalidations to named
//     partitions. Values are msgpack encoded on Set and decoded on Get.
//   - KeySerializer: builds stable cache keys from a namespace and arguments.
//
// # Partitions
//
// Five partitions are configured by default, each with its own TTL, sweep
// interval and capacity:
//
//	users      600s   sweep 120s   1000 entries
//	companies  1800s  sweep 300s   500 entries
//	jobs       300s   sweep 60s    2000 entries
//	search     300s   sweep 60s    1000 entries
//	static     3600s  sweep 600s   100 entries
//
// An entry is served only while the partition clock is before its expiry.
// Expired entries are removed lazily on read and by the periodic sweep.
//
// # Basic Usage
//
//	manager, err := cache.NewDefaultManager(logger)
//	if err != nil {
//		return err
//	}
//	defer manager.Close()
//
//	manager.SetUserProfile(ctx, user.ID, user, 0)
//	if u, ok := manager.GetUserProfile(ctx, user.ID); ok {
//		...
//	}
//
// Typed access to any partition goes through the generic helpers:
//
//	cache.Set(ctx, manager, cache.PartitionStatic, "static:filters:jobs", opts, time.Hour)
//	opts, ok := cache.Get[FilterOptions](ctx, manager, cache.PartitionStatic, "static:filters:jobs")
//
// GetOrFetch reads through to a fetch function and coalesces concurrent
// misses for the same key:
//
//	job, err := cache.GetOrFetch[model.Job](ctx, manager, cache.PartitionJobs, cache.JobKey(id), 0,
//		func(ctx context.Context) (model.Job, error) {
//			return jobs.FindByID(ctx, id)
//		})
//
// # Invalidation
//
// DeletePattern removes every key of a partition that contains the pattern
// as a substring or that was tagged with exactly the pattern. Tags are
// attached through the context passed to Set:
//
//	ctx = cache.WithTags(ctx, model.JobTag(7))
//	cache.Set(ctx, manager, cache.PartitionJobs, key, page, 2*time.Minute)
//
//	manager.InvalidateJobCache(model.JobTag(7)) // drops key
//
// An empty pattern flushes the whole partition.
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection:
//
//   - Basic types: direct string representation
//   - Slices and arrays: recursive serialization of elements
//   - Maps: sorted key-value pairs
//   - Structs: exported fields sorted by name, absent fields skipped
//   - Anything else: JSON fallback
//
// Keys longer than DefaultMaxKeyLength keep their prefix and replace the
// tail with an xxhash digest of the full key.
//
// # Error Handling
//
// Cache operations never fail the caller. Encoding errors, closed partitions
// and refused writes are logged and reported as a miss or as not stored.
package cache
