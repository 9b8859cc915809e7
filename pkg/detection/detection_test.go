package detection

import (
	"context"
	"testing"
	"time"

	"github.com/projecthayat/hayat/pkg/kv"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRecordRecent(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 2, 6, 4, 17, 0, 0, time.UTC)
	l := New(kv.NewMemory(nil), WithClock(fixedClock(base)))

	labels := []string{"DAMAGED", "SCREAM", "NOISE"}
	for _, label := range labels {
		d, err := l.Record(ctx, Detection{Modality: "VISION", Label: label, Confidence: 0.9, Mode: "REAL_AI"})
		if err != nil {
			t.Fatal(err)
		}
		if d.ID == "" {
			t.Error("ID not assigned")
		}
	}

	got, err := l.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Same clock reading: stamps are bumped, order still follows insertion.
	for i, want := range []string{"NOISE", "SCREAM", "DAMAGED"} {
		if got[i].Label != want {
			t.Errorf("got[%d].Label = %s, want %s", i, got[i].Label, want)
		}
	}
	if !got[2].Time.Equal(base) {
		t.Errorf("oldest time = %v, want %v", got[2].Time, base)
	}
	if got[0].ID == got[1].ID {
		t.Error("IDs not unique")
	}

	limited, err := l.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Label != "NOISE" {
		t.Fatalf("Recent(1) = %+v", limited)
	}
}

func TestKeyLayout(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)
	at := time.Date(2026, 2, 6, 23, 0, 0, 42, time.UTC)
	l := New(store, WithClock(fixedClock(at)))

	if _, err := l.Record(ctx, Detection{Label: "SCREAM"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, kv.Key{"det", "20260206", "1770418800000000042"}); err != nil {
		t.Fatalf("record not at expected key: %v", err)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)
	if err := store.Set(ctx, kv.Key{"other", "1"}, []byte("x")); err != nil {
		t.Fatal(err)
	}
	l := New(store)
	for range 3 {
		if _, err := l.Record(ctx, Detection{Label: "DAMAGED"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("len after Clear = %d", len(got))
	}
	if _, err := store.Get(ctx, kv.Key{"other", "1"}); err != nil {
		t.Fatalf("Clear removed unrelated key: %v", err)
	}
}

func TestRecentBadValue(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)
	if err := store.Set(ctx, kv.Key{"det", "20260101", "1"}, []byte{0xc1}); err != nil {
		t.Fatal(err)
	}
	if _, err := New(store).Recent(ctx, 0); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewMemory(nil))

	ch, cancel := l.Subscribe()
	if _, err := l.Record(ctx, Detection{Modality: "AUDIO", Label: "SCREAM", Confidence: 0.73}); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-ch:
		if d.Label != "SCREAM" || d.ID == "" {
			t.Errorf("got %+v", d)
		}
	case <-time.After(time.Second):
		t.Fatal("no detection delivered")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel not closed after cancel")
	}
	if _, err := l.Record(ctx, Detection{Modality: "AUDIO", Label: "NOISE"}); err != nil {
		t.Fatal(err)
	}
}

func TestSubscribeSlowConsumerDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	l := New(kv.NewMemory(nil))
	ch, cancel := l.Subscribe()
	defer cancel()

	for range subscriberBuffer + 10 {
		if _, err := l.Record(ctx, Detection{Modality: "VISION", Label: "DAMAGED"}); err != nil {
			t.Fatal(err)
		}
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
