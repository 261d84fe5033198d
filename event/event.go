// Package event implements a bitmask wait/notify primitive: a 32-bit flag
// group that tasks can block on until either any bit (OR) or every bit
// (AND) of a chosen mask is set. Grounded on kernal/event.c's
// _event_wait_privilege_routine/_event_set_privilege_routine bitmask
// fan-out and its edge-triggered callback hook.
package event

import (
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
)

// waitCtx is the PendCtx a waiting task's Task carries while blocked in
// Wait, so Set can evaluate every waiter's own listen/trigger mask and
// accumulated result cell independently. listen is the set of bits this
// waiter cares about; trigger (a subset of listen, spec.md §4.6) is empty
// for any-of mode, or the exact bits that must all be set for all-of mode.
// result accumulates (listen & value) across every Set call the waiter
// sees while blocked, so two overlapping waiters never fight over the same
// published bits the way a single shared counter would.
type waitCtx struct {
	listen  uint32
	trigger uint32
	result  uint32
}

func (c *waitCtx) absorb(value uint32) (bool, uint32) {
	c.result |= c.listen & value
	if c.trigger == 0 {
		return c.result != 0, c.result
	}
	return c.result&c.trigger == c.trigger, c.result
}

// CancelWait unlinks t from e's wait queue without touching e's published
// flags, satisfying kernel.TimeoutCanceler for a timed-out Wait.
func (c *waitCtx) CancelWait(t *kernel.Task) error {
	kernel.Remove(&t.Linker)
	return kernel.Fail(kernel.ComponentEvent, kernel.KindTimeout, "event.Wait")
}

// Event is a single 32-bit flag group, allocated from a fixed Pool.
type Event struct {
	kernel.ObjectHead
	k *kernel.Kernel

	flags    uint32
	waitList kernel.List

	// OnEdge, if set, is called (outside the critical section) with the
	// set of bits that transitioned from 0 to 1 on each Set call —
	// kernal/event.c's edge-mask callback.
	OnEdge func(rising uint32)
}

// Pool is a fixed-capacity arena of Event objects, sized at boot.
type Pool struct {
	k    *kernel.Kernel
	pool *kernel.Pool[Event]
}

// NewPool allocates a Pool of capacity Event slots against kernel k.
func NewPool(k *kernel.Kernel, capacity int) *Pool {
	return &Pool{
		k:    k,
		pool: kernel.NewPool[Event](kernel.KindEvent, capacity, func(e *Event) *kernel.ObjectHead { return &e.ObjectHead }),
	}
}

// Create claims an Event slot named name, with every flag initially clear.
func (p *Pool) Create(name string) (*Event, error) {
	h, e, ok := p.pool.Acquire()
	if !ok {
		return nil, p.k.Fail(kernel.ComponentEvent, kernel.KindResourceExhausted, "event.Create")
	}
	e.ObjectHead.Init(h, name)
	e.k = p.k
	e.waitList = kernel.List{}
	e.flags = 0
	return e, nil
}

// Delete releases e's slot.
func (p *Pool) Delete(e *Event) { p.pool.Release(e.Handle) }

// Wait blocks self until the flags selected by listen satisfy the chosen
// condition. A zero trigger means any-of mode: any single bit in listen
// being set is enough. A non-zero trigger (a subset of listen, per spec.md
// §4.6) means all-of mode: every bit in trigger must be set. On success it
// returns the subset of listen accumulated at the moment the condition was
// satisfied, and clears exactly those bits from the group's pending
// register — pulse-to-zero semantics, so a later Wait needs a fresh Set.
// timeout bounds how long self waits; kernel.Forever waits indefinitely.
func (e *Event) Wait(self *kernel.Task, listen, trigger uint32, timeout time.Duration) (uint32, error) {
	if listen == 0 {
		return 0, e.k.Fail(kernel.ComponentEvent, kernel.KindArgInvalid, "event.Wait")
	}
	ctx := &waitCtx{listen: listen, trigger: trigger}
	err := e.k.Tramp.Invoke(self, func() error {
		if satisfied, _ := ctx.absorb(e.flags); satisfied {
			e.flags &^= ctx.result
			return nil
		}
		self.Status = kernel.StatusPending
		self.PendCtx = ctx
		self.Linker.SetOwner(self)
		e.waitList.InsertOrdered(&self.Linker, kernel.TaskPriorityLess)
		e.k.Sched.ExitTrigger(self, true)
		if timeout != kernel.Forever {
			self.Timeout = &kernel.TimerNode{Task: self}
			e.k.Timers.Arm(self.Timeout, e.k.Ticks(timeout))
		}
		return nil
	})
	return ctx.result, err
}

// Set ORs mask into the group's flags, wakes every waiter whose condition
// is now satisfied (clearing exactly the bits each one consumed from the
// group, leaving any bits other waiters still need untouched), and — if
// OnEdge is set — queues it with the bits that newly transitioned from 0
// to 1 on this call.
func (e *Event) Set(self *kernel.Task, mask uint32) error {
	return e.k.Tramp.Invoke(self, func() error {
		rising := mask &^ e.flags
		e.flags |= mask

		it := e.waitList.Iterate()
		for n := it.Next(); n != nil; n = it.Next() {
			t := kernel.TaskOf(n)
			ctx := t.PendCtx.(*waitCtx)
			satisfied, consumed := ctx.absorb(mask)
			if !satisfied {
				continue
			}
			e.flags &^= consumed
			kernel.Remove(n)
			t.PendCtx = nil
			e.k.CancelTimeout(t)
			e.k.Sched.EntryTrigger(t, true)
		}

		if rising != 0 && e.OnEdge != nil {
			onEdge, r := e.OnEdge, rising
			e.k.Notify(func() { onEdge(r) })
		}
		return nil
	})
}

// Clear clears exactly the bits in mask from the group, without waking
// anyone (there is nothing to wake: clearing flags can never satisfy a
// waiter).
func (e *Event) Clear(self *kernel.Task, mask uint32) error {
	return e.k.Tramp.Invoke(self, func() error {
		e.flags &^= mask
		return nil
	})
}

// Flags returns the group's current flag value.
func (e *Event) Flags(self *kernel.Task) uint32 {
	var out uint32
	_ = e.k.Tramp.Invoke(self, func() error {
		out = e.flags
		return nil
	})
	return out
}
