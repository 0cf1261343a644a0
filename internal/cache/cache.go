// Package cache provides the process-local entity cache the services put
// in front of the database. It is deliberately a thin key/value surface
// (get, set, delete) so tests can swap in a no-op implementation.
package cache

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Store is the per-key cache owned by a service. Implementations must be
// safe for concurrent use.
type Store[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// Config holds the tuning knobs for the sturdyc-backed store.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

// DefaultConfig returns settings suitable for a single-process catalog.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          64,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

type sturdycStore[T any] struct {
	client *sturdyc.Client[T]
}

// New creates a sturdyc-backed Store with the given configuration.
// Zero or negative fields fall back to DefaultConfig values.
func New[T any](cfg Config) Store[T] {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = def.NumShards
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.EvictionPercentage < 1 || cfg.EvictionPercentage > 100 {
		cfg.EvictionPercentage = def.EvictionPercentage
	}

	return &sturdycStore[T]{
		client: sturdyc.New[T](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage),
	}
}

func (s *sturdycStore[T]) Get(key string) (T, bool) {
	return s.client.Get(key)
}

func (s *sturdycStore[T]) Set(key string, value T) {
	s.client.Set(key, value)
}

func (s *sturdycStore[T]) Delete(key string) {
	s.client.Delete(key)
}

// Noop is a Store that caches nothing. Useful in tests that need to
// observe every repository call.
type Noop[T any] struct{}

func (Noop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (Noop[T]) Set(string, T) {}

func (Noop[T]) Delete(string) {}
