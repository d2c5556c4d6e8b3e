package chainmap

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// DisposeFunc releases a stored value. The table never interprets the values
// it holds; it only hands each one to a DisposeFunc when its entry is removed
// by Delete or when the whole table is torn down by Close.
type DisposeFunc func(value any)

// Predicate inspects a stored value during Scan. Returning a non-nil result
// stops the scan immediately and hands that result back to the caller;
// returning nil moves the scan to the next entry.
type Predicate func(value any) any

// entry is one stored association plus its link to the next entry sharing
// the same bucket.
type entry struct {
	key   string
	value any
	next  *entry
}

// Table is a chained hash table mapping string keys to opaque values. A
// single table-wide mutex serializes every operation, so any mix of
// concurrent calls observes a consistent, fully-updated structure. The
// bucket count is fixed at creation and never grows; long chains degrade
// lookups gracefully instead of triggering a rehash.
type Table struct {
	mu      sync.Mutex
	buckets []*entry
	size    int
	closed  bool
	logger  *zap.Logger
}

// New creates a table with the given number of buckets. The bucket count is
// permanent: pick it from the expected key population, since chains absorb
// any overflow.
func New(capacity int) (*Table, error) {
	if capacity < 1 {
		return nil, ErrZeroCapacity
	}
	return &Table{
		buckets: make([]*entry, capacity),
		logger:  zap.NewNop(),
	}, nil
}

// SetLogger directs the table's diagnostic output to logger. The default is
// a no-op logger; passing nil restores it.
func (t *Table) SetLogger(logger *zap.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	t.logger = logger
}

// log returns the current logger for use outside the critical section.
func (t *Table) log() *zap.Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.logger
}

// lookup walks the chain at idx for key. Callers must hold t.mu; lookup
// itself never locks, which is what lets Put run its duplicate check inside
// its own critical section without deadlocking.
func (t *Table) lookup(idx int, key string) *entry {
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			return e
		}
	}
	return nil
}

// Get returns the value stored under key. The second return is false when
// the key is absent, empty, or the table has been closed.
func (t *Table) Get(key string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, false
	}
	idx, err := bucketIndex(key, len(t.buckets))
	if err != nil {
		return nil, false
	}
	e := t.lookup(idx, key)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key. Keys are unique across the table: inserting a
// key that is already present fails with ErrDuplicateKey and leaves the
// existing value untouched. Within a bucket the newest entry sits at the
// head of the chain. The uniqueness check and the insert run under one lock
// acquisition, so two racing Puts of the same key cannot both succeed.
func (t *Table) Put(key string, value any) error {
	if value == nil {
		return ErrNilValue
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	idx, err := bucketIndex(key, len(t.buckets))
	if err != nil {
		return err
	}
	if t.lookup(idx, key) != nil {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	t.buckets[idx] = &entry{key: key, value: value, next: t.buckets[idx]}
	t.size++
	return nil
}

// Delete removes key's entry and passes its value to dispose exactly once.
// Head and interior entries unlink the same way, and the live-entry count
// drops on every successful path.
func (t *Table) Delete(key string, dispose DisposeFunc) error {
	if dispose == nil {
		return ErrNilCallback
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	idx, err := bucketIndex(key, len(t.buckets))
	if err != nil {
		return err
	}
	var prev *entry
	for e := t.buckets[idx]; e != nil; prev, e = e, e.next {
		if e.key != key {
			continue
		}
		if prev == nil {
			t.buckets[idx] = e.next
		} else {
			prev.next = e.next
		}
		t.size--
		dispose(e.value)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

// Scan visits every entry, buckets in index order and chains newest-first,
// applying pred to each value. The first non-nil result ends the walk early
// and is returned; a full pass with no match returns (nil, nil). Scan is the
// way to locate entries by something other than their key. The lock is held
// for the entire traversal, so pred must not call back into the table.
func (t *Table) Scan(pred Predicate) (any, error) {
	if pred == nil {
		return nil, ErrNilCallback
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTableClosed
	}
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			if res := pred(e.value); res != nil {
				return res, nil
			}
		}
	}
	return nil, nil
}

// Dump writes each occupied bucket's index and keys to w, in Scan order. The
// table lock is held for the whole dump so the output is a consistent
// point-in-time view even under concurrent mutation.
func (t *Table) Dump(w io.Writer) error {
	if w == nil {
		return ErrNilWriter
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	for idx, head := range t.buckets {
		if head == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "bucket %d:\n", idx); err != nil {
			return fmt.Errorf("dump: %w", err)
		}
		for e := head; e != nil; e = e.next {
			if _, err := fmt.Fprintf(w, "  %s\n", e.key); err != nil {
				return fmt.Errorf("dump: %w", err)
			}
		}
	}
	return nil
}

// Close hands every stored value to dispose and marks the table unusable.
// Every operation after Close fails with ErrTableClosed, as does a second
// Close.
func (t *Table) Close(dispose DisposeFunc) error {
	if dispose == nil {
		return ErrNilCallback
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	for idx, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			dispose(e.value)
		}
		t.buckets[idx] = nil
	}
	t.logger.Debug("table closed", zap.Int("entries", t.size))
	t.size = 0
	t.closed = true
	return nil
}

// Len reports the number of live entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Cap reports the fixed bucket count chosen at creation.
func (t *Table) Cap() int {
	return len(t.buckets)
}
