package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/projecthayat/hayat/pkg/kv"
)

// backends runs every test against both Store implementations.
var backends = []struct {
	name string
	open func(t *testing.T, opts *kv.Options) kv.Store
}{
	{"memory", func(t *testing.T, opts *kv.Options) kv.Store {
		s := kv.NewMemory(opts)
		t.Cleanup(func() { s.Close() })
		return s
	}},
	{"badger", func(t *testing.T, opts *kv.Options) kv.Store {
		s, err := kv.NewBadger(kv.BadgerOptions{Options: opts, InMemory: true})
		if err != nil {
			t.Fatalf("NewBadger: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, open func(*kv.Options) kv.Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, func(opts *kv.Options) kv.Store { return b.open(t, opts) })
		})
	}
}

func set(t *testing.T, s kv.Store, key kv.Key, val string) {
	t.Helper()
	if err := s.Set(context.Background(), key, []byte(val)); err != nil {
		t.Fatalf("Set %v: %v", key, err)
	}
}

func scanKeys(t *testing.T, s kv.Store, prefix kv.Key, opts kv.ScanOptions) []string {
	t.Helper()
	var got []string
	for e, err := range s.Scan(context.Background(), prefix, opts) {
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		got = append(got, e.Key.String()+"="+string(e.Value))
	}
	return got
}

func TestGetSetDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func(*kv.Options) kv.Store) {
		ctx := context.Background()
		s := open(nil)
		key := kv.Key{"det", "20260101", "1"}

		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		set(t, s, key, "hello")
		set(t, s, key, "world")
		got, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "world" {
			t.Fatalf("Get = %q, want %q", got, "world")
		}

		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, kv.Key{"no", "such", "key"}); err != nil {
			t.Fatalf("Delete non-existent: %v", err)
		}
	})
}

func TestScan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func(*kv.Options) kv.Store) {
		s := open(nil)
		set(t, s, kv.Key{"det", "20260101", "1"}, "a")
		set(t, s, kv.Key{"det", "20260102", "2"}, "b")
		set(t, s, kv.Key{"det", "20260102", "3"}, "c")
		set(t, s, kv.Key{"detx", "1"}, "no")
		set(t, s, kv.Key{"other", "1"}, "no")

		got := scanKeys(t, s, kv.Key{"det"}, kv.ScanOptions{})
		want := []string{"det:20260101:1=a", "det:20260102:2=b", "det:20260102:3=c"}
		if !slices.Equal(got, want) {
			t.Fatalf("Scan det = %v, want %v", got, want)
		}

		got = scanKeys(t, s, kv.Key{"det"}, kv.ScanOptions{Reverse: true, Limit: 2})
		want = []string{"det:20260102:3=c", "det:20260102:2=b"}
		if !slices.Equal(got, want) {
			t.Fatalf("Scan det reverse = %v, want %v", got, want)
		}

		got = scanKeys(t, s, kv.Key{"det", "20260101"}, kv.ScanOptions{Reverse: true})
		if !slices.Equal(got, []string{"det:20260101:1=a"}) {
			t.Fatalf("Scan det:20260101 reverse = %v", got)
		}

		if n := len(scanKeys(t, s, nil, kv.ScanOptions{})); n != 5 {
			t.Fatalf("Scan all: got %d entries, want 5", n)
		}
	})
}

func TestScanEarlyBreak(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func(*kv.Options) kv.Store) {
		s := open(nil)
		for _, id := range []string{"1", "2", "3"} {
			set(t, s, kv.Key{"a", id}, id)
		}
		n := 0
		for _, err := range s.Scan(context.Background(), kv.Key{"a"}, kv.ScanOptions{}) {
			if err != nil {
				t.Fatal(err)
			}
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Fatalf("n = %d", n)
		}
	})
}

func TestDeletePrefix(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func(*kv.Options) kv.Store) {
		ctx := context.Background()
		s := open(nil)
		set(t, s, kv.Key{"det", "1"}, "a")
		set(t, s, kv.Key{"det", "2"}, "b")
		set(t, s, kv.Key{"detx", "1"}, "keep")

		if err := s.DeletePrefix(ctx, kv.Key{"det"}); err != nil {
			t.Fatalf("DeletePrefix: %v", err)
		}
		if got := scanKeys(t, s, nil, kv.ScanOptions{}); !slices.Equal(got, []string{"detx:1=keep"}) {
			t.Fatalf("after DeletePrefix = %v", got)
		}
	})
}

func TestCustomSeparator(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func(*kv.Options) kv.Store) {
		s := open(&kv.Options{Separator: '/'})
		set(t, s, kv.Key{"a", "b:c"}, "v")
		set(t, s, kv.Key{"a", "d"}, "w")

		got := scanKeys(t, s, kv.Key{"a"}, kv.ScanOptions{})
		if !slices.Equal(got, []string{"a:b:c=v", "a:d=w"}) {
			t.Fatalf("Scan = %v", got)
		}
	})
}

func TestValueIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open func(*kv.Options) kv.Store) {
		ctx := context.Background()
		s := open(nil)
		val := []byte("original")
		if err := s.Set(ctx, kv.Key{"k"}, val); err != nil {
			t.Fatal(err)
		}
		val[0] = 'X'
		got, err := s.Get(ctx, kv.Key{"k"})
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "original" {
			t.Fatalf("stored value mutated: %q", got)
		}
	})
}

func TestBadgerDirRequired(t *testing.T) {
	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestBadgerPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	set(t, s, kv.Key{"det", "1"}, "kept")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"det", "1"})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "kept" {
		t.Fatalf("Get = %q", got)
	}
}
