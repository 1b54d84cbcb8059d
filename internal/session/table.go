package session

import "sync"

// Table holds the forward and reply session tables, S_fwd and S_rev
// (spec.md §3), behind a single coarse mutex (spec.md §5: "a single
// coarse mutex satisfies both" the read-observes-whole-bundle and
// concurrent-distinct-key-progress requirements). Entries persist for
// the process lifetime; there is no eviction (spec.md §3, §9 "bundle
// staleness").
type Table struct {
	mu  sync.RWMutex
	fwd map[FlowKey]Bundle
	rev map[FlowKey]Bundle
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		fwd: make(map[FlowKey]Bundle),
		rev: make(map[FlowKey]Bundle),
	}
}

// Observe records a de-encapsulated packet's bundle into the forward or
// reply table, per spec.md §4.3 step 3 / §3's invariant: if swap(k) is
// already present in S_fwd, this packet is a reply and the bundle is
// recorded into S_rev[swap(k)]; otherwise it is a forward packet and the
// bundle is recorded into S_fwd[k] (idempotent overwrite on repeats).
// Returns true if this observation was classified as a reply.
func (t *Table) Observe(k FlowKey, b Bundle) (isReply bool) {
	swapped := k.Swap()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.fwd[swapped]; ok {
		t.rev[swapped] = b
		return true
	}

	t.fwd[k] = b
	return false
}

// LookupForward returns the bundle stored under k in S_fwd (spec.md
// §4.4 step 4).
func (t *Table) LookupForward(k FlowKey) (Bundle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.fwd[k]
	return b, ok
}

// LookupReply returns the bundle stored under k in S_rev (spec.md §4.5:
// looked up via the swapped key by the caller before this call, or
// directly here — callers pass whichever key S_rev is keyed on, which
// is the original forward key per spec.md §3).
func (t *Table) LookupReply(k FlowKey) (Bundle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.rev[k]
	return b, ok
}

// Sizes returns the current number of entries in S_fwd and S_rev, for
// metrics reporting (internal/metrics).
func (t *Table) Sizes() (fwd, rev int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.fwd), len(t.rev)
}
