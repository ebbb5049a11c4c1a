// Package resource implements deterministic cleanup of native-backed
// objects via wave-scoped registration and quarantine, for chemistry
// toolkit handles that live outside Go's garbage-collected heap.
package resource

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQuarantineDelay is the fallback delay before a quarantined
// wave's deferred cleanup runs, absent a configured override.
const DefaultQuarantineDelay = 60 * time.Second

// Releasable is any native-backed handle that can release its
// underlying resource. Implementations must make Release idempotent
// only in the sense that the Tracker never calls it twice for the same
// registration — Release itself need not guard against double-free.
type Releasable interface {
	Release() error
}

// Wave is a positive integer label identifying a logical scope of
// native-backed allocations. Wave 0 is the default/global wave.
type Wave int64

// Tracker is the Cleanup Ledger: a mapping from wave id to the ordered
// collection of native-backed objects awaiting disposal. Every
// operation is serialized under a single mutex.
type Tracker struct {
	mu sync.Mutex
	// ledger maps wave -> ordered handles awaiting release.
	ledger map[Wave][]Releasable
	nextID atomic.Int64

	logger          *slog.Logger
	quarantineDelay time.Duration
}

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithLogger overrides the logger used to report release failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithQuarantineDelay overrides the default 60s quarantine delay.
func WithQuarantineDelay(d time.Duration) Option {
	return func(t *Tracker) { t.quarantineDelay = d }
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		ledger:          make(map[Wave][]Releasable),
		logger:          slog.Default(),
		quarantineDelay: DefaultQuarantineDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FreshWaveID returns a process-unique monotonically increasing
// positive wave id.
func (t *Tracker) FreshWaveID() Wave {
	return Wave(t.nextID.Add(1))
}

// Mark registers obj under wave. If moveFromOtherWave is true, obj is
// first removed from every other wave it may be registered under.
// Duplicate registration under the same wave is a no-op.
func (t *Tracker) Mark(obj Releasable, wave Wave, moveFromOtherWave bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if moveFromOtherWave {
		for w, objs := range t.ledger {
			if w == wave {
				continue
			}
			t.ledger[w] = removeFrom(objs, obj)
		}
	}

	existing := t.ledger[wave]
	for _, o := range existing {
		if o == obj {
			return
		}
	}
	t.ledger[wave] = append(existing, obj)
}

// Cleanup releases every object tracked for wave, then removes the
// wave from the ledger. Objects are removed from the ledger before
// their release is invoked, so the tracker never double-releases.
func (t *Tracker) Cleanup(wave Wave) {
	t.mu.Lock()
	objs := t.ledger[wave]
	delete(t.ledger, wave)
	t.mu.Unlock()

	t.releaseAll(objs)
}

// CleanupAll runs Cleanup for every known wave.
func (t *Tracker) CleanupAll() {
	t.mu.Lock()
	waves := make([]Wave, 0, len(t.ledger))
	for w := range t.ledger {
		waves = append(waves, w)
	}
	t.mu.Unlock()

	for _, w := range waves {
		t.Cleanup(w)
	}
}

// QuarantineAndCleanup snapshots the entire ledger, clears it, and
// schedules a deferred release of the snapshot after the configured
// quarantine delay. Intended for objects that might still be
// referenced by an in-flight operation at the moment of quarantine.
func (t *Tracker) QuarantineAndCleanup() {
	t.mu.Lock()
	snapshot := t.ledger
	t.ledger = make(map[Wave][]Releasable)
	t.mu.Unlock()

	delay := t.quarantineDelay
	go func() {
		time.Sleep(delay)
		for _, objs := range snapshot {
			t.releaseAll(objs)
		}
	}()
}

// Count returns the number of objects currently tracked across all
// waves. Exposed for tests and diagnostics.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, objs := range t.ledger {
		n += len(objs)
	}
	return n
}

func (t *Tracker) releaseAll(objs []Releasable) {
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		if err := obj.Release(); err != nil {
			t.logger.Warn("resource release failed", "error", err)
		}
	}
}

func removeFrom(objs []Releasable, target Releasable) []Releasable {
	out := objs[:0:0]
	for _, o := range objs {
		if o != target {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
