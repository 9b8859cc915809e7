package kv

import (
	"context"
	"errors"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
)

func TestBadgerScanErrorAfterBreak(t *testing.T) {
	b, err := NewBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		if err := b.Set(ctx, Key{"det", k}, []byte(k)); err != nil {
			t.Fatal(err)
		}
	}

	// The transaction fails only after the loop body has stopped iterating.
	failed := errors.New("txn failed")
	b.view = func(fn func(txn *badger.Txn) error) error {
		if err := b.db.View(fn); err != nil {
			return err
		}
		return failed
	}

	n := 0
	for _, err := range b.Scan(ctx, Key{"det"}, ScanOptions{}) {
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		n++
		break
	}
	if n != 1 {
		t.Fatalf("got %d entries, want 1", n)
	}

	// A consumer that reads everything still sees the error.
	var last error
	for _, err := range b.Scan(ctx, Key{"det"}, ScanOptions{}) {
		last = err
	}
	if !errors.Is(last, failed) {
		t.Errorf("last err = %v, want %v", last, failed)
	}
}
