// Package mutex implements a priority-inheritance mutual-exclusion lock:
// non-recursive, FIFO-by-priority wait queue, with the lock holder's
// priority boosted to the highest waiter's while held. Grounded on
// kernel/mutex.c's _mutex_lock_privilege_routine/_mutex_unlock_privilege_routine.
package mutex

import "github.com/rivenkernel/rtkernel/internal/kernel"

// Mutex is a single priority-inheritance lock, allocated from a fixed
// Pool.
type Mutex struct {
	kernel.ObjectHead
	k *kernel.Kernel

	waitList kernel.List
	owner    *kernel.Task
	origPrio int32
	locked   bool
}

// Pool is a fixed-capacity arena of Mutex objects, sized at boot.
type Pool struct {
	k    *kernel.Kernel
	pool *kernel.Pool[Mutex]
}

// NewPool allocates a Pool of capacity Mutex slots against kernel k.
func NewPool(k *kernel.Kernel, capacity int) *Pool {
	return &Pool{
		k:    k,
		pool: kernel.NewPool[Mutex](kernel.KindMutex, capacity, func(m *Mutex) *kernel.ObjectHead { return &m.ObjectHead }),
	}
}

// Create claims a Mutex slot named name, unlocked.
func (p *Pool) Create(name string) (*Mutex, error) {
	h, m, ok := p.pool.Acquire()
	if !ok {
		return nil, p.k.Fail(kernel.ComponentMutex, kernel.KindResourceExhausted, "mutex.Create")
	}
	m.ObjectHead.Init(h, name)
	m.k = p.k
	m.waitList = kernel.List{}
	m.owner = nil
	m.locked = false
	return m, nil
}

// Delete releases m's slot. m must be unlocked.
func (p *Pool) Delete(m *Mutex) error {
	if m.locked {
		return p.k.Fail(kernel.ComponentMutex, kernel.KindStateViolation, "mutex.Delete")
	}
	p.pool.Release(m.Handle)
	return nil
}

// Lock acquires m, blocking self if it is already held by a different
// task. If self's priority is higher (numerically lower) than the current
// holder's, the holder's priority is boosted for as long as it holds m —
// the priority-inheritance protocol that prevents unbounded priority
// inversion.
func (m *Mutex) Lock(self *kernel.Task) error {
	return m.k.Tramp.Invoke(self, func() error {
		if !m.locked {
			m.locked = true
			m.owner = self
			m.origPrio = self.Priority
			return nil
		}
		if m.owner == self {
			return kernel.Fail(kernel.ComponentMutex, kernel.KindStateViolation, "mutex.Lock")
		}
		if self.Priority < m.owner.Priority {
			m.owner.Priority = self.Priority
			m.k.Sched.Requeue(m.owner)
		}
		self.Status = kernel.StatusPending
		self.PendCtx = m
		self.Linker.SetOwner(self)
		m.waitList.InsertOrdered(&self.Linker, kernel.TaskPriorityLess)
		m.k.Sched.ExitTrigger(self, true)
		return nil
	})
}

// TryLock attempts to acquire m without blocking, returning Unavailable if
// it is already held.
func (m *Mutex) TryLock(self *kernel.Task) error {
	return m.k.Tramp.Invoke(self, func() error {
		if m.locked {
			return kernel.Fail(kernel.ComponentMutex, kernel.KindUnavailable, "mutex.TryLock")
		}
		m.locked = true
		m.owner = self
		m.origPrio = self.Priority
		return nil
	})
}

// Unlock releases m. Only the current holder may call Unlock; any other
// caller gets a StateViolation. If a task is waiting, it becomes the new
// holder and is made ready to run; otherwise m becomes free.
func (m *Mutex) Unlock(self *kernel.Task) error {
	return m.k.Tramp.Invoke(self, func() error {
		if !m.locked || m.owner != self {
			return kernel.Fail(kernel.ComponentMutex, kernel.KindStateViolation, "mutex.Unlock")
		}
		self.Priority = m.origPrio

		next := m.waitList.Head()
		if next == nil {
			m.locked = false
			m.owner = nil
			return nil
		}
		kernel.Remove(next)
		nt := kernel.TaskOf(next)
		nt.PendCtx = nil
		m.owner = nt
		m.origPrio = nt.Priority
		m.locked = true
		m.k.Sched.EntryTrigger(nt, true)
		return nil
	})
}

// Snapshot is a point-in-time, deep-copied view of a Mutex's introspection
// fields, safe to read without racing the kernel's critical section.
type Snapshot struct {
	Name     string
	Locked   bool
	OwnerPriority int32
	Waiting  int
}

// Snapshot returns a deep copy of m's current state.
func (m *Mutex) Snapshot(self *kernel.Task) Snapshot {
	var out Snapshot
	_ = m.k.Tramp.Invoke(self, func() error {
		out = Snapshot{Name: m.Name, Locked: m.locked, Waiting: m.waitList.Len()}
		if m.owner != nil {
			out.OwnerPriority = m.owner.Priority
		}
		return nil
	})
	return kernel.Snapshot(&out)
}
