// Package kernel implements the privileged core of the real-time kernel:
// the intrusive object linker, the fixed-capacity object store, the
// scheduler's pend/entry/exit lists, the timer wheel, and the
// privilege trampoline that every blocking primitive funnels through.
package kernel

// LinkerNode is the intrusive doubly-linked list node embedded in every
// kernel object head. A node belongs to at most one List at a time; List
// always matches the list it is currently threaded onto, so membership can
// be answered in O(1) without walking anything.
//
// Grounded on original_source/kernal/linker.c's linker_t/linker_list_node.
type LinkerNode struct {
	prev, next *LinkerNode
	List       *List
	// owner recovers the containing object from the node itself, the Go
	// equivalent of the C source's CONTAINEROF macro.
	owner any
}

// Owner returns the object this node is embedded in.
func (n *LinkerNode) Owner() any { return n.owner }

// SetOwner binds the node to its containing object. Must be called once,
// right after the object (and its embedded LinkerNode) is allocated.
func (n *LinkerNode) SetOwner(owner any) { n.owner = owner }

// List is an intrusive doubly linked list. The zero value is an empty list
// ready to use.
type List struct {
	head, tail *LinkerNode
	length     int
}

// Len returns the number of nodes currently on the list.
func (l *List) Len() int { return l.length }

// Head returns the first node, or nil if the list is empty.
func (l *List) Head() *LinkerNode { return l.head }

// Direction selects which end of the list Push inserts at.
type Direction int

const (
	Head Direction = iota
	Tail
)

// remove unlinks n from whatever list it is currently on. It is a no-op if
// n is not on any list. Caller must hold the kernel critical section.
func remove(n *LinkerNode) {
	if n.List == nil {
		return
	}
	l := n.List
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next, n.List = nil, nil, nil
	l.length--
}

// Push inserts n at the given end of l. n is first removed from whatever
// list it is currently on (a transaction, exactly like
// linker_list_transaction_common in the C source).
func (l *List) Push(n *LinkerNode, dir Direction) {
	remove(n)
	if l == nil {
		return
	}
	switch dir {
	case Head:
		n.next = l.head
		n.prev = nil
		if l.head != nil {
			l.head.prev = n
		} else {
			l.tail = n
		}
		l.head = n
	default: // Tail
		n.prev = l.tail
		n.next = nil
		if l.tail != nil {
			l.tail.next = n
		} else {
			l.head = n
		}
		l.tail = n
	}
	n.List = l
	l.length++
}

// Remove detaches n from whatever list it is on, leaving it detached
// (List == nil).
func Remove(n *LinkerNode) { remove(n) }

// InsertBefore inserts n immediately before at, which must already be a
// member of l. n is first removed from whatever list it was on.
func (l *List) InsertBefore(at, n *LinkerNode) {
	if at == nil || at.List != l {
		l.Push(n, Tail)
		return
	}
	remove(n)
	n.next = at
	n.prev = at.prev
	if at.prev != nil {
		at.prev.next = n
	} else {
		l.head = n
	}
	at.prev = n
	n.List = l
	l.length++
}

// Less reports whether a must be ordered strictly before b. Used by
// InsertOrdered to find the insertion point.
type Less func(a, b *LinkerNode) bool

// InsertOrdered inserts n into l at the first position where less(n, cur)
// holds, preserving arrival order among equal elements (a stable insert),
// exactly matching linker_list_transaction_specific's
// "keep scanning while the condition function says keep looking" contract.
func (l *List) InsertOrdered(n *LinkerNode, less Less) {
	remove(n)
	cur := l.head
	for cur != nil && !less(n, cur) {
		cur = cur.next
	}
	if cur == nil {
		l.Push(n, Tail)
		return
	}
	l.InsertBefore(cur, n)
}

// Iterator walks a List front-to-back. It tolerates the current node being
// removed from the list during iteration (it captures Next before handing
// the node to the caller), matching the C source's list_iterator_t
// contract used by the _schedule_exit/_schedule_entry drain loops.
type Iterator struct {
	next *LinkerNode
}

// Iterate returns an Iterator positioned at the head of l.
func (l *List) Iterate() Iterator {
	return Iterator{next: l.head}
}

// Next returns the next node and advances the iterator, or returns nil when
// the list is exhausted.
func (it *Iterator) Next() *LinkerNode {
	n := it.next
	if n == nil {
		return nil
	}
	it.next = n.next
	return n
}
