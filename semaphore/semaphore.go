// Package semaphore implements a counting semaphore with a FIFO-by-priority
// wait queue. Grounded on kernel/semaphore.c's _semaphore_take_privilege_routine/
// _semaphore_give_privilege_routine and its "wake the highest-priority
// waiter, decrement on the wake path" handoff.
package semaphore

import (
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
)

// Semaphore is a single counting (or binary) semaphore, allocated from a
// fixed Pool.
type Semaphore struct {
	kernel.ObjectHead
	k *kernel.Kernel

	waitList  kernel.List
	remaining int32
	limit     int32
}

// Pool is a fixed-capacity arena of Semaphore objects, sized at boot.
type Pool struct {
	k    *kernel.Kernel
	pool *kernel.Pool[Semaphore]
}

// NewPool allocates a Pool of capacity Semaphore slots against kernel k.
func NewPool(k *kernel.Kernel, capacity int) *Pool {
	return &Pool{
		k:    k,
		pool: kernel.NewPool[Semaphore](kernel.KindSemaphore, capacity, func(s *Semaphore) *kernel.ObjectHead { return &s.ObjectHead }),
	}
}

// Create claims a counting Semaphore named name, with limit permits
// (1 <= limit <= 254) and initial starting at 0 <= starting <= limit
// already available.
func (p *Pool) Create(name string, limit, starting int32) (*Semaphore, error) {
	if limit <= 0 || limit > 254 || starting < 0 || starting > limit {
		return nil, p.k.Fail(kernel.ComponentSemaphore, kernel.KindArgInvalid, "semaphore.Create")
	}
	h, s, ok := p.pool.Acquire()
	if !ok {
		return nil, p.k.Fail(kernel.ComponentSemaphore, kernel.KindResourceExhausted, "semaphore.Create")
	}
	s.ObjectHead.Init(h, name)
	s.k = p.k
	s.waitList = kernel.List{}
	s.limit = limit
	s.remaining = starting
	return s, nil
}

// CreateBinary is a convenience constructor for a limit-1 semaphore,
// matching the original's "binary semaphore" special case of the counting
// one.
func (p *Pool) CreateBinary(name string, available bool) (*Semaphore, error) {
	starting := int32(0)
	if available {
		starting = 1
	}
	return p.Create(name, 1, starting)
}

// Delete releases s's slot.
func (p *Pool) Delete(s *Semaphore) { p.pool.Release(s.Handle) }

// Take acquires a permit, blocking self if none are currently available.
// timeout bounds how long self waits; kernel.Forever waits indefinitely. A
// timeout that expires before a permit arrives returns a Timeout error and
// leaves s's count untouched — the waiter simply leaves the wait queue.
func (s *Semaphore) Take(self *kernel.Task, timeout time.Duration) error {
	return s.k.Tramp.Invoke(self, func() error {
		if s.remaining > 0 {
			s.remaining--
			return nil
		}
		self.Status = kernel.StatusPending
		self.PendCtx = s
		self.Linker.SetOwner(self)
		s.waitList.InsertOrdered(&self.Linker, kernel.TaskPriorityLess)
		s.k.Sched.ExitTrigger(self, true)
		if timeout != kernel.Forever {
			self.Timeout = &kernel.TimerNode{Task: self}
			s.k.Timers.Arm(self.Timeout, s.k.Ticks(timeout))
		}
		return nil
	})
}

// CancelWait unlinks t from s's wait queue without touching remaining,
// satisfying kernel.TimeoutCanceler for a timed-out Take.
func (s *Semaphore) CancelWait(t *kernel.Task) error {
	kernel.Remove(&t.Linker)
	return kernel.Fail(kernel.ComponentSemaphore, kernel.KindTimeout, "semaphore.Take")
}

// Give releases one permit. If a task is waiting, it is handed the permit
// directly (woken without ever incrementing remaining) and made ready to
// run; otherwise remaining is incremented.
//
// Giving past limit returns ResourceExhausted rather than clamping — see
// DESIGN.md's Open Question decision 1: the newer kernel lineage this
// repo's semantics follow treats an over-give as a caller bug, not a silent
// no-op.
func (s *Semaphore) Give(self *kernel.Task) error {
	return s.k.Tramp.Invoke(self, func() error {
		if next := s.waitList.Head(); next != nil {
			kernel.Remove(next)
			nt := kernel.TaskOf(next)
			nt.PendCtx = nil
			s.k.CancelTimeout(nt)
			s.k.Sched.EntryTrigger(nt, true)
			return nil
		}
		if s.remaining >= s.limit {
			return kernel.Fail(kernel.ComponentSemaphore, kernel.KindResourceExhausted, "semaphore.Give")
		}
		s.remaining++
		return nil
	})
}

// Flush wakes every waiting task. Each woken Take returns nil, exactly as
// for a Give handoff, and remaining is left unchanged, so a flushed wake
// cannot be told apart from a granted one.
func (s *Semaphore) Flush(self *kernel.Task) error {
	return s.k.Tramp.Invoke(self, func() error {
		it := s.waitList.Iterate()
		for n := it.Next(); n != nil; n = it.Next() {
			kernel.Remove(n)
			t := kernel.TaskOf(n)
			t.PendCtx = nil
			s.k.CancelTimeout(t)
			s.k.Sched.EntryTrigger(t, true)
		}
		return nil
	})
}

// Remaining returns the number of permits currently available.
func (s *Semaphore) Remaining(self *kernel.Task) int32 {
	var out int32
	_ = s.k.Tramp.Invoke(self, func() error {
		out = s.remaining
		return nil
	})
	return out
}
