// Package queue implements a bounded, fixed-item-size ring-buffer FIFO
// with independent send and receive wait queues and a front/back send
// direction. Grounded on kernel/queue.c's _queue_send_privilege_routine/
// _queue_receive_privilege_routine and its direct sender-to-receiver
// handoff when the opposite side is already waiting.
package queue

import (
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
)

// End selects which end of the ring buffer a Send inserts at: Back for
// normal FIFO order, Front to jump ahead of everything already queued.
type End = kernel.Direction

const (
	Front End = kernel.Head
	Back  End = kernel.Tail
)

type sendCtx struct {
	data []byte
	end  End
}

// CancelWait unlinks t from its queue's send-wait list without touching the
// ring buffer, satisfying kernel.TimeoutCanceler for a timed-out Send.
func (c *sendCtx) CancelWait(t *kernel.Task) error {
	kernel.Remove(&t.Linker)
	return kernel.Fail(kernel.ComponentQueue, kernel.KindTimeout, "queue.Send")
}

type recvCtx struct {
	out []byte
}

// CancelWait unlinks t from its queue's receive-wait list without touching
// the ring buffer, satisfying kernel.TimeoutCanceler for a timed-out
// Receive.
func (c *recvCtx) CancelWait(t *kernel.Task) error {
	kernel.Remove(&t.Linker)
	return kernel.Fail(kernel.ComponentQueue, kernel.KindTimeout, "queue.Receive")
}

// Queue is a single bounded message queue, allocated from a fixed Pool.
// Every message is exactly itemSize bytes: Send zero-pads a shorter
// payload and truncates a longer one, matching the original's fixed-slot
// ring buffer (no per-message length field).
type Queue struct {
	kernel.ObjectHead
	k *kernel.Kernel

	itemSize int
	buf      [][]byte
	head     int
	count    int

	sendWait kernel.List
	recvWait kernel.List
}

// Pool is a fixed-capacity arena of Queue objects, sized at boot.
type Pool struct {
	k    *kernel.Kernel
	pool *kernel.Pool[Queue]
}

// NewPool allocates a Pool of capacity Queue slots against kernel k.
func NewPool(k *kernel.Kernel, capacity int) *Pool {
	return &Pool{
		k:    k,
		pool: kernel.NewPool[Queue](kernel.KindQueue, capacity, func(q *Queue) *kernel.ObjectHead { return &q.ObjectHead }),
	}
}

// Create claims a Queue slot named name, holding up to depth messages of
// itemSize bytes each.
func (p *Pool) Create(name string, itemSize, depth int) (*Queue, error) {
	if itemSize <= 0 || depth <= 0 {
		return nil, p.k.Fail(kernel.ComponentQueue, kernel.KindArgInvalid, "queue.Create")
	}
	h, q, ok := p.pool.Acquire()
	if !ok {
		return nil, p.k.Fail(kernel.ComponentQueue, kernel.KindResourceExhausted, "queue.Create")
	}
	q.ObjectHead.Init(h, name)
	q.k = p.k
	q.itemSize = itemSize
	q.buf = make([][]byte, depth)
	q.head, q.count = 0, 0
	q.sendWait, q.recvWait = kernel.List{}, kernel.List{}
	return q, nil
}

// Delete releases q's slot.
func (p *Pool) Delete(q *Queue) { p.pool.Release(q.Handle) }

func (q *Queue) fit(data []byte) []byte {
	out := make([]byte, q.itemSize)
	copy(out, data)
	return out
}

// ringPush inserts msg at the given end of the ring buffer. Caller must
// have already confirmed there is room (q.count < len(q.buf)).
func (q *Queue) ringPush(msg []byte, end End) {
	depth := len(q.buf)
	if end == Front {
		q.head = (q.head - 1 + depth) % depth
		q.buf[q.head] = msg
	} else {
		q.buf[(q.head+q.count)%depth] = msg
	}
	q.count++
}

func (q *Queue) ringPop() []byte {
	msg := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return msg
}

// Send enqueues data (copied, zero-padded or truncated to the queue's
// fixed item size) at the chosen end. If a receiver is already waiting,
// the message is handed to it directly without ever touching the ring
// buffer. If the buffer is full and no receiver is waiting, self blocks
// until space is available, up to timeout (kernel.Forever to wait
// indefinitely); a timeout expiring first returns a Timeout error and
// leaves the ring buffer untouched.
func (q *Queue) Send(self *kernel.Task, data []byte, end End, timeout time.Duration) error {
	return q.k.Tramp.Invoke(self, func() error {
		msg := q.fit(data)

		if next := q.recvWait.Head(); next != nil {
			kernel.Remove(next)
			rt := kernel.TaskOf(next)
			rt.PendCtx.(*recvCtx).out = msg
			rt.PendCtx = nil
			q.k.CancelTimeout(rt)
			q.k.Sched.EntryTrigger(rt, true)
			return nil
		}

		if q.count >= len(q.buf) {
			self.Status = kernel.StatusPending
			self.PendCtx = &sendCtx{data: msg, end: end}
			self.Linker.SetOwner(self)
			q.sendWait.InsertOrdered(&self.Linker, kernel.TaskPriorityLess)
			q.k.Sched.ExitTrigger(self, true)
			if timeout != kernel.Forever {
				self.Timeout = &kernel.TimerNode{Task: self}
				q.k.Timers.Arm(self.Timeout, q.k.Ticks(timeout))
			}
			return nil
		}

		q.ringPush(msg, end)
		return nil
	})
}

// Receive dequeues the next message, blocking self if the queue is empty
// and no sender is waiting to hand one off directly, up to timeout
// (kernel.Forever to wait indefinitely).
func (q *Queue) Receive(self *kernel.Task, timeout time.Duration) ([]byte, error) {
	var ctx *recvCtx
	var result []byte

	err := q.k.Tramp.Invoke(self, func() error {
		if q.count > 0 {
			result = q.ringPop()
			if next := q.sendWait.Head(); next != nil {
				kernel.Remove(next)
				st := kernel.TaskOf(next)
				sc := st.PendCtx.(*sendCtx)
				st.PendCtx = nil
				q.k.CancelTimeout(st)
				q.ringPush(sc.data, sc.end)
				q.k.Sched.EntryTrigger(st, true)
			}
			return nil
		}

		ctx = &recvCtx{}
		self.Status = kernel.StatusPending
		self.PendCtx = ctx
		self.Linker.SetOwner(self)
		q.recvWait.InsertOrdered(&self.Linker, kernel.TaskPriorityLess)
		q.k.Sched.ExitTrigger(self, true)
		if timeout != kernel.Forever {
			self.Timeout = &kernel.TimerNode{Task: self}
			q.k.Timers.Arm(self.Timeout, q.k.Ticks(timeout))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ctx != nil {
		result = ctx.out
	}
	return result, nil
}

// Len returns the number of messages currently buffered (not counting
// anything mid-handoff).
func (q *Queue) Len(self *kernel.Task) int {
	var n int
	_ = q.k.Tramp.Invoke(self, func() error {
		n = q.count
		return nil
	})
	return n
}
