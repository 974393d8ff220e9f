package cacheinfra

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for a single sturdyc backed partition.
type Config struct {
	// Name identifies the partition in logs and statistics.
	Name string

	// Capacity is the maximum number of entries the partition holds.
	// It must be greater than or equal to NumShards.
	Capacity int

	// NumShards splits the partition for concurrent access. Each shard owns
	// Capacity/NumShards entries and evicts independently.
	NumShards int

	// TTL is the default time-to-live used when Set receives a zero TTL.
	TTL time.Duration

	// MaxTTL caps per-entry TTLs. It is also the TTL handed to sturdyc, which
	// keeps the envelope expiry authoritative. Zero means TTL.
	MaxTTL time.Duration

	// EvictionPercentage is the share of a full shard evicted before an insert.
	// Entries closest to expiry go first. Must be between 1-100.
	EvictionPercentage int

	// SweepInterval sets how often expired entries are removed even when
	// nobody reads them.
	SweepInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Name:               "default",
		Capacity:           1000,
		NumShards:          8,
		TTL:                5 * time.Minute,
		MaxTTL:             time.Hour,
		EvictionPercentage: 10,
		SweepInterval:      time.Minute,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Name == "" {
		return &ConfigError{Field: "Name", Message: "must not be empty"}
	}

	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.Capacity < c.NumShards {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.MaxTTL != 0 && c.MaxTTL < c.TTL {
		return &ConfigError{Field: "MaxTTL", Message: "must not be lower than TTL"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.SweepInterval <= 0 {
		return &ConfigError{Field: "SweepInterval", Message: "must be greater than 0"}
	}

	return nil
}

func (c Config) maxTTL() time.Duration {
	if c.MaxTTL == 0 {
		return c.TTL
	}
	return c.MaxTTL
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Stats is a point in time view of a partition.
type Stats struct {
	Name     string `json:"name"`
	Keys     int    `json:"keys"`
	Capacity int    `json:"capacity"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Sets     uint64 `json:"sets"`
	Expired  uint64 `json:"expired"`
}

// HitRate returns hits over total lookups, or zero before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Option customizes a Partition.
type Option func(*Partition)

// WithClock overrides the time source used for entry expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Partition) {
		if now != nil {
			p.now = now
		}
	}
}

// WithoutSweeper disables the background sweep goroutine. Sweep can still be
// called directly.
func WithoutSweeper() Option {
	return func(p *Partition) {
		p.sweeper = false
	}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Partition is a bounded TTL store dedicated to one entity domain.
type Partition struct {
	cfg     Config
	client  *sturdyc.Client[entry]
	tags    *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
	now     func() time.Time
	sweeper bool

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	expired atomic.Uint64

	closed    atomic.Bool
	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPartition validates cfg, creates the sturdyc client and starts the
// sweeper.
func NewPartition(cfg Config, opts ...Option) (*Partition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.maxTTL(),
		cfg.EvictionPercentage,
		sturdyc.WithEvictionInterval(cfg.SweepInterval),
	)

	p := &Partition{
		cfg:     cfg,
		client:  client,
		tags:    xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
		now:     time.Now,
		sweeper: true,
		stop:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.sweeper {
		p.wg.Add(1)
		go p.sweepLoop()
	}

	return p, nil
}

// Name returns the partition name.
func (p *Partition) Name() string {
	return p.cfg.Name
}

// DefaultTTL returns the TTL applied when Set receives zero.
func (p *Partition) DefaultTTL() time.Duration {
	return p.cfg.TTL
}

// Get returns the stored value only while now < expiresAt. An expired entry
// is removed and reported as a miss.
func (p *Partition) Get(key string) ([]byte, bool) {
	if p.closed.Load() {
		p.misses.Add(1)
		return nil, false
	}

	e, ok := p.client.Get(key)
	if !ok {
		p.misses.Add(1)
		return nil, false
	}

	if p.isExpired(e) {
		p.client.Delete(key)
		p.expired.Add(1)
		p.misses.Add(1)
		return nil, false
	}

	p.hits.Add(1)
	return e.value, true
}

// Set stores value for ttl, or the default TTL when ttl is zero. TTLs above
// MaxTTL are clamped. It reports false when the partition refuses the write.
func (p *Partition) Set(key string, value []byte, ttl time.Duration) bool {
	if p.closed.Load() || key == "" {
		return false
	}

	if ttl <= 0 {
		ttl = p.cfg.TTL
	}
	if ceiling := p.cfg.maxTTL(); ttl > ceiling {
		ttl = ceiling
	}

	p.client.Set(key, entry{value: value, expiresAt: p.now().Add(ttl)})
	p.sets.Add(1)
	return true
}

// Delete removes keys and returns how many were live. Expired entries not
// yet swept are removed without being counted.
func (p *Partition) Delete(keys ...string) int {
	removed := 0
	for _, key := range keys {
		if p.isLive(key) {
			removed++
		}
		p.client.Delete(key)
	}
	return removed
}

// Keys returns all live keys.
func (p *Partition) Keys() []string {
	scanned := p.client.ScanKeys()
	keys := make([]string, 0, len(scanned))
	for _, key := range scanned {
		if p.isLive(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Tag indexes key under each tag for later invalidation.
func (p *Partition) Tag(key string, tags ...string) {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		set, _ := p.tags.LoadOrCompute(tag, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		set.Store(key, struct{}{})
	}
}

// KeysTagged returns the live keys indexed under tag.
func (p *Partition) KeysTagged(tag string) []string {
	set, ok := p.tags.Load(tag)
	if !ok {
		return nil
	}

	var keys []string
	set.Range(func(key string, _ struct{}) bool {
		if p.isLive(key) {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// Flush removes every entry and tag.
func (p *Partition) Flush() int {
	keys := p.client.ScanKeys()
	for _, key := range keys {
		p.client.Delete(key)
	}
	p.tags.Clear()
	return len(keys)
}

// Sweep removes expired entries and prunes tag sets pointing at keys that
// are gone. It returns the number of expired entries removed.
func (p *Partition) Sweep() int {
	removed := 0
	for _, key := range p.client.ScanKeys() {
		e, ok := p.client.Get(key)
		if ok && p.isExpired(e) {
			p.client.Delete(key)
			removed++
		}
	}
	p.expired.Add(uint64(removed))

	p.tags.Range(func(tag string, set *xsync.MapOf[string, struct{}]) bool {
		set.Range(func(key string, _ struct{}) bool {
			if !p.isLive(key) {
				set.Delete(key)
			}
			return true
		})
		if set.Size() == 0 {
			p.tags.Delete(tag)
		}
		return true
	})

	return removed
}

// Stats returns the current counters.
func (p *Partition) Stats() Stats {
	return Stats{
		Name:     p.cfg.Name,
		Keys:     len(p.Keys()),
		Capacity: p.cfg.Capacity,
		Hits:     p.hits.Load(),
		Misses:   p.misses.Load(),
		Sets:     p.sets.Load(),
		Expired:  p.expired.Load(),
	}
}

// Close stops the sweeper and drops all entries. A closed partition misses
// on every read and refuses writes.
func (p *Partition) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.stop)
		p.wg.Wait()
		p.Flush()
	})
}

func (p *Partition) sweepLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}

func (p *Partition) isExpired(e entry) bool {
	return !p.now().Before(e.expiresAt)
}

func (p *Partition) isLive(key string) bool {
	e, ok := p.client.Get(key)
	return ok && !p.isExpired(e)
}
