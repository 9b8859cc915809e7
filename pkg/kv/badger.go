package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db   *badger.DB
	opts *Options

	// view runs read transactions; db.View unless replaced in tests.
	view func(fn func(txn *badger.Txn) error) error
}

// BadgerOptions configures NewBadger.
type BadgerOptions struct {
	Options *Options

	// Dir holds the data files. Required unless InMemory is set.
	Dir string

	// InMemory keeps everything in memory; nothing survives Close.
	InMemory bool

	// Logger receives badger warnings and errors. Default: slog.Default().
	Logger *slog.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(bopts BadgerOptions) (*Badger, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("kv: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := bopts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogBadger{logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}
	return &Badger{db: db, opts: bopts.Options, view: db.View}, nil
}

func (b *Badger) Get(_ context.Context, key Key) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.opts.encode(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (b *Badger) Set(_ context.Context, key Key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.opts.encode(key), value)
	})
}

func (b *Badger) Delete(_ context.Context, key Key) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.opts.encode(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) Scan(_ context.Context, prefix Key, opts ScanOptions) iter.Seq2[Entry, error] {
	p := b.opts.scanPrefix(prefix)

	return func(yield func(Entry, error) bool) {
		stopped := false
		err := b.view(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = p
			iterOpts.Reverse = opts.Reverse
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			// In reverse mode Seek lands on the largest key <= seek, so
			// seek past every key carrying the prefix.
			seek := p
			if opts.Reverse {
				seek = append(append([]byte(nil), p...), 0xff)
			}

			n := 0
			for it.Seek(seek); it.ValidForPrefix(p); it.Next() {
				if opts.Limit > 0 && n >= opts.Limit {
					return nil
				}
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(Entry{}, err) {
						stopped = true
						return nil
					}
					continue
				}
				n++
				if !yield(Entry{Key: b.opts.decode(item.KeyCopy(nil)), Value: val}, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})
		if err != nil && !stopped {
			yield(Entry{}, err)
		}
	}
}

func (b *Badger) DeletePrefix(_ context.Context, prefix Key) error {
	p := b.opts.scanPrefix(prefix)
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = p
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogBadger routes badger's printf-style logging to slog, dropping debug
// and info output.
type slogBadger struct {
	l *slog.Logger
}

func (s slogBadger) Errorf(f string, v ...any) {
	s.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (s slogBadger) Warningf(f string, v ...any) {
	s.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (slogBadger) Infof(string, ...any)  {}
func (slogBadger) Debugf(string, ...any) {}
