// Package detection keeps a log of triage results for the rescue plan.
//
// Records are msgpack-encoded and keyed det:{YYYYMMDD}:{unix-nanos}, so a
// reverse scan of the "det" prefix yields the newest detections first.
package detection

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/projecthayat/hayat/pkg/kv"
)

// Detection is one logged triage result.
type Detection struct {
	ID         string    `msgpack:"id" json:"id"`
	Modality   string    `msgpack:"modality" json:"type"`
	Label      string    `msgpack:"label" json:"prediction"`
	Confidence float32   `msgpack:"confidence" json:"confidence"`
	Mode       string    `msgpack:"mode" json:"mode"`
	Filename   string    `msgpack:"filename,omitempty" json:"filename,omitempty"`
	RequestID  string    `msgpack:"request_id,omitempty" json:"request_id,omitempty"`
	Time       time.Time `msgpack:"time" json:"time"`
}

const prefix = "det"

// Log stores detections in a kv.Store.
type Log struct {
	store kv.Store
	now   func() time.Time

	mu   sync.Mutex
	last int64

	subMu  sync.Mutex
	subs   map[int]chan Detection
	nextID int
}

// subscriberBuffer is the per-subscriber backlog. A subscriber that falls
// further behind misses detections.
const subscriberBuffer = 64

// Option configures a Log.
type Option func(*Log)

// WithClock sets the time source. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates a Log over store.
func New(store kv.Store, opts ...Option) *Log {
	l := &Log{store: store, now: time.Now, subs: make(map[int]chan Detection)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// stamp returns a timestamp strictly after the previous one, keeping keys
// unique when two detections land in the same nanosecond.
func (l *Log) stamp() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.now()
	if ns := t.UnixNano(); ns <= l.last {
		t = t.Add(time.Duration(l.last - ns + 1))
	}
	l.last = t.UnixNano()
	return t
}

func key(t time.Time) kv.Key {
	t = t.UTC()
	return kv.Key{prefix, t.Format("20060102"), strconv.FormatInt(t.UnixNano(), 10)}
}

// Record stores d, filling in ID and Time when unset, and returns the
// stored detection.
func (l *Log) Record(ctx context.Context, d Detection) (Detection, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	t := l.stamp()
	if d.Time.IsZero() {
		d.Time = t
	}
	d.Time = d.Time.UTC()

	data, err := msgpack.Marshal(&d)
	if err != nil {
		return Detection{}, fmt.Errorf("detection: encode: %w", err)
	}
	if err := l.store.Set(ctx, key(t), data); err != nil {
		return Detection{}, fmt.Errorf("detection: store: %w", err)
	}
	l.publish(d)
	return d, nil
}

// Subscribe returns a channel that receives every detection recorded from
// now on. Delivery never blocks Record: when the channel buffer is full the
// detection is dropped for that subscriber. Call cancel to unsubscribe; it
// closes the channel.
func (l *Log) Subscribe() (ch <-chan Detection, cancel func()) {
	c := make(chan Detection, subscriberBuffer)
	l.subMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = c
	l.subMu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
			close(c)
		})
	}
}

func (l *Log) publish(d Detection) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, c := range l.subs {
		select {
		case c <- d:
		default:
		}
	}
}

// Recent returns up to limit detections, newest first. A limit of zero or
// less returns all of them.
func (l *Log) Recent(ctx context.Context, limit int) ([]Detection, error) {
	var out []Detection
	for e, err := range l.store.Scan(ctx, kv.Key{prefix}, kv.ScanOptions{Reverse: true, Limit: max(limit, 0)}) {
		if err != nil {
			return out, fmt.Errorf("detection: scan: %w", err)
		}
		var d Detection
		if err := msgpack.Unmarshal(e.Value, &d); err != nil {
			return out, fmt.Errorf("detection: decode %s: %w", e.Key, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Clear removes every detection.
func (l *Log) Clear(ctx context.Context) error {
	if err := l.store.DeletePrefix(ctx, kv.Key{prefix}); err != nil {
		return fmt.Errorf("detection: clear: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (l *Log) Close() error {
	return l.store.Close()
}
