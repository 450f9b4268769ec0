// Package cache defines the build result cache contract and its backends.
//
// A cache maps a pre-computed Key to a previously produced value so a build
// pipeline can skip work it has already done. Backends do not log, retry or
// coordinate concurrent writers; the last Save for a key wins.
package cache

import (
	"context"
)

// Key identifies a cache entry.
//
// Keys are produced outside this package and must be usable as a single
// filesystem path segment: no path separators, no "..", no reserved
// characters. Backends do not escape or hash them.
type Key string

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}

// Cache provides the read/write protocol every backend satisfies.
type Cache[V any] interface {
	// Get returns the value stored under key.
	// A miss returns ok == false and a nil error.
	// A record that exists but cannot be read or decoded returns a *ReadError.
	Get(ctx context.Context, key Key) (value V, ok bool, err error)

	// Save stores value under key, replacing any previous record.
	// Failures return a *WriteError.
	Save(ctx context.Context, key Key, value V) error
}

// Record is a value that can check its own mandatory fields.
// Decoding backends reject records whose Validate fails.
type Record interface {
	Validate() error
}
