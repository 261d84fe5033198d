package kernel

import "sync"

// constructionState mirrors the original's "cs" field: exactly one value
// means "initialized," everything else (notably the zero value) means
// "not yet constructed."
type constructionState uint8

const (
	csUninit constructionState = iota
	csInited
)

// ObjectHead is embedded in every kernel object (thread, mutex, semaphore,
// event, queue, timer). It carries the object's stable Handle, its debug
// name, the intrusive linker node used to place it on whichever list is
// appropriate for its kind, and the construction-state tag from
// spec.md's data model table.
type ObjectHead struct {
	Handle Handle
	Name   string
	Linker LinkerNode
	state  constructionState
}

// Init flips the construction-state tag to "initialized." Must be called
// exactly once, inside the critical section, right after a slot is claimed
// from its Pool.
func (h *ObjectHead) Init(handle Handle, name string) {
	h.Handle = handle
	h.Name = name
	h.state = csInited
	h.Linker = LinkerNode{}
}

// IsInited reports whether Init has run and Destroy has not.
func (h *ObjectHead) IsInited() bool { return h.state == csInited }

// Destroy zeroes the construction-state tag, matching "zeroed at destroy"
// from spec.md's Handle/ObjectHead lifetime column.
func (h *ObjectHead) Destroy() {
	*h = ObjectHead{}
}

// Pool is a fixed-size arena of T, addressed by stable Handle. It is the
// Go expression of spec.md's "fixed-size arrays... referenced by opaque
// stable handles" object store: no dynamic memory beyond the array itself,
// matching the Non-goal "no dynamic memory beyond a fixed set of
// statically sized object pools."
type Pool[T any] struct {
	mu    sync.Mutex
	kind  Kind
	items []T
	head  func(*T) *ObjectHead
}

// NewPool allocates a fixed-capacity pool of kind k, holding capacity
// items of T. head must return the embedded *ObjectHead for a given item.
func NewPool[T any](k Kind, capacity int, head func(*T) *ObjectHead) *Pool[T] {
	return &Pool[T]{
		kind:  k,
		items: make([]T, capacity),
		head:  head,
	}
}

// Capacity returns the pool's fixed size.
func (p *Pool[T]) Capacity() int { return len(p.items) }

// Acquire claims the first uninitialized slot and returns its Handle and a
// pointer to the slot, or ok=false if every slot is already constructed —
// spec.md §7's "Resource exhausted" kind.
func (p *Pool[T]) Acquire() (Handle, *T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.items {
		item := &p.items[i]
		if !p.head(item).IsInited() {
			return makeHandle(p.kind, i), item, true
		}
	}
	return Invalid, nil, false
}

// Get resolves a Handle to its backing item, or nil if the handle is out of
// range for this pool, or of the wrong kind, or its slot is uninitialized.
func (p *Pool[T]) Get(h Handle) *T {
	if !h.IsValid() || h.Kind() != p.kind {
		return nil
	}
	idx := h.Index()
	if idx < 0 || idx >= len(p.items) {
		return nil
	}
	item := &p.items[idx]
	if !p.head(item).IsInited() {
		return nil
	}
	return item
}

// At returns the item at index idx regardless of construction state, used
// by init routines scanning the whole pool. Panics if idx is out of range,
// matching "this is a kernel-internal bug if it happens" severity.
func (p *Pool[T]) At(idx int) *T { return &p.items[idx] }

// Release zeroes the slot's ObjectHead, returning it to the uninitialized
// state so Acquire can reuse it.
func (p *Pool[T]) Release(h Handle) {
	if item := p.Get(h); item != nil {
		p.head(item).Destroy()
	}
}
