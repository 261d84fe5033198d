package kernel

import "time"

// Forever disables the timer entirely for a blocking call's timeout
// argument, matching spec.md §5's "forever disables the timer" wording.
const Forever time.Duration = -1

// Ticks converts a wall-clock duration into the number of scheduler ticks
// it takes at this kernel's configured tick period, rounding up so a
// caller never wakes early. Used by every blocking primitive to arm a
// pend timeout from a time.Duration argument.
func (k *Kernel) Ticks(d time.Duration) int64 {
	tick := time.Duration(k.Config.TickIntervalMs) * time.Millisecond
	if tick <= 0 {
		return 1
	}
	ticks := int64(d / tick)
	if d%tick != 0 {
		ticks++
	}
	if ticks < 1 {
		ticks = 1
	}
	return ticks
}

// CancelTimeout disarms t's pend timeout, if one is armed. Every primitive
// that wakes a waiting task directly (lock granted, permit given, flags
// matched, message handed off) must call this before EntryTrigger, so a
// timeout that was racing the wake-up doesn't fire later against a task
// that already moved on to something else.
func (k *Kernel) CancelTimeout(t *Task) {
	if t.Timeout != nil {
		k.Timers.Cancel(t.Timeout)
		t.Timeout = nil
	}
}

// TimerNode is a single entry in the TimerWheel: either a standalone timer
// (Task == nil) or the pend-timeout backing a blocked Task's wait (spec.md
// §3's "internal" timer kind). Grounded on include/kernal/timer.h's
// one-shot/periodic timer interface; the original's own timer.c was
// filtered out of the retrieved sources, so the wheel's mechanics below
// follow the standard delta-list technique rather than a specific C file.
type TimerNode struct {
	ObjectHead

	// delta is ticks remaining until this node fires, relative to the node
	// before it in the wheel — not an absolute deadline. Tick only ever
	// decrements the head, which keeps Tick O(1) in the common case.
	delta int64

	// Period is the reload value for a periodic timer; 0 means one-shot.
	Period int64

	// Callback runs (outside the kernel critical section — see kernel.go's
	// notification goroutine) when this node expires.
	Callback func(*TimerNode)

	// Task is set when this node is a thread's pend-timeout rather than a
	// standalone user timer.
	Task *Task
}

// TimerWheel is an ordered delta list of armed TimerNodes. The zero value
// is an empty, ready-to-use wheel.
type TimerWheel struct {
	list List
}

// NewTimerWheel returns an empty TimerWheel.
func NewTimerWheel() *TimerWheel { return &TimerWheel{} }

// Len reports how many timers are currently armed.
func (w *TimerWheel) Len() int { return w.list.Len() }

// Arm schedules n to fire delayTicks from now, first canceling any
// previous arming of n.
func (w *TimerWheel) Arm(n *TimerNode, delayTicks int64) {
	w.Cancel(n)
	if delayTicks < 0 {
		delayTicks = 0
	}

	remaining := delayTicks
	cur := w.list.head
	for cur != nil && remaining >= cur.owner.(*TimerNode).delta {
		remaining -= cur.owner.(*TimerNode).delta
		cur = cur.next
	}

	n.delta = remaining
	n.Linker.SetOwner(n)
	if cur != nil {
		cur.owner.(*TimerNode).delta -= remaining
		w.list.InsertBefore(cur, &n.Linker)
		return
	}
	w.list.Push(&n.Linker, Tail)
}

// Cancel disarms n. A no-op if n is not currently armed on this wheel.
// Folds n's remaining delta into the node after it, so every other node's
// absolute deadline is preserved.
func (w *TimerWheel) Cancel(n *TimerNode) {
	if n.Linker.List != &w.list {
		return
	}
	if next := n.Linker.next; next != nil {
		next.owner.(*TimerNode).delta += n.delta
	}
	Remove(&n.Linker)
}

// Tick advances the wheel by one tick and returns every node that expired
// on this tick, in firing order. Periodic nodes are automatically re-armed
// for their next period before being returned. Callers must invoke
// Callback for each returned node themselves, and must do so outside the
// kernel critical section (see kernel.go).
func (w *TimerWheel) Tick() []*TimerNode {
	head := w.list.Head()
	if head == nil {
		return nil
	}
	head.owner.(*TimerNode).delta--

	var expired []*TimerNode
	for {
		head = w.list.Head()
		if head == nil {
			break
		}
		t := head.owner.(*TimerNode)
		if t.delta > 0 {
			break
		}
		Remove(head)
		expired = append(expired, t)
		if t.Period > 0 {
			w.Arm(t, t.Period)
		}
	}
	return expired
}
