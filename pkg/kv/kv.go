// Package kv is a small key-value store with hierarchical keys, used for
// the detection log. Keys are string segments joined with a separator
// (default ':'), so "det:20260101:1700000000" is Key{"det", "20260101",
// "1700000000"}.
//
// Badger backs the store in production, on disk or in memory. Memory is a
// map-based implementation for tests.
package kv

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Key is a hierarchical path. Segments must not contain the separator.
type Key []string

// String joins the segments with ':'. For display only.
func (k Key) String() string {
	return strings.Join(k, ":")
}

// Entry is a key-value pair returned by Scan.
type Entry struct {
	Key   Key
	Value []byte
}

// ScanOptions controls Scan.
type ScanOptions struct {
	// Reverse iterates in descending key order.
	Reverse bool

	// Limit stops after this many entries. Zero means no limit.
	Limit int
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// Scan iterates over entries under prefix in lexicographic order of
	// the encoded key, or the reverse of it.
	Scan(ctx context.Context, prefix Key, opts ScanOptions) iter.Seq2[Entry, error]

	// DeletePrefix removes every entry under prefix.
	DeletePrefix(ctx context.Context, prefix Key) error

	Close() error
}

// DefaultSeparator joins key segments when no separator is configured.
const DefaultSeparator byte = ':'

// Options configures key encoding.
type Options struct {
	Separator byte
}

func (o *Options) sep() byte {
	if o != nil && o.Separator != 0 {
		return o.Separator
	}
	return DefaultSeparator
}

func (o *Options) encode(k Key) []byte {
	return []byte(strings.Join(k, string(o.sep())))
}

func (o *Options) decode(b []byte) Key {
	parts := bytes.Split(b, []byte{o.sep()})
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = string(p)
	}
	return k
}

// scanPrefix returns the encoded prefix with a trailing separator so that
// "a:b" does not match "a:bc". An empty prefix matches everything.
func (o *Options) scanPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return append(o.encode(prefix), o.sep())
}
