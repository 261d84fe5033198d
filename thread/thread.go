// Package thread implements the kernel's thread lifecycle: creation,
// resume/suspend, voluntary yield, timed sleep, and deletion. Grounded on
// kernal/thread.c and kernel/thread.c's thread_init/thread_resume/
// thread_suspend/thread_sleep/thread_delete privilege routines.
package thread

import (
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
)

// Thread is a handle to a scheduled task plus the kernel it was created
// against. Every blocking operation on it funnels through the kernel's
// privilege trampoline, so concurrent callers never observe a half-applied
// state change.
type Thread struct {
	k      *kernel.Kernel
	handle kernel.Handle
}

// Body is a thread's entry point. self is the Thread's own handle, usable
// to call Yield/Sleep/Suspend/Delete on itself.
type Body func(self *Thread)

func (t *Thread) task() *kernel.Task { return t.k.Thread(t.handle) }

// Task exposes the underlying scheduler task, for passing as the `self`
// argument to mutex/semaphore/event/queue operations called from this
// thread's body.
func (t *Thread) Task() *kernel.Task { return t.task() }

// Handle returns the thread's stable object handle.
func (t *Thread) Handle() kernel.Handle { return t.handle }

// Priority returns the thread's current (possibly inheritance-boosted)
// priority.
func (t *Thread) Priority() int32 { return t.task().Priority }

// Status returns the thread's current scheduler status.
func (t *Thread) Status() kernel.Status { return t.task().Status }

// Init claims a thread slot from k's fixed thread pool and spawns its
// goroutine in the Dormant state: body does not begin running until Resume
// is called. Returns a ResourceExhausted error if the pool (sized by
// Config.ThreadCapacity) has no free slot.
func Init(k *kernel.Kernel, name string, priority int32, body Body) (*Thread, error) {
	h, task, ok := k.AcquireThread()
	if !ok {
		return nil, k.Fail(kernel.ComponentThread, kernel.KindResourceExhausted, "thread.Init")
	}
	task.Init(h, name)
	task.Priority = priority

	th := &Thread{k: k, handle: h}
	go func() {
		task.WaitWake()
		body(th)
		_ = th.k.Tramp.Invoke(task, func() error {
			task.Status = kernel.StatusDead
			k.Sched.ExitTrigger(task, true)
			return nil
		})
	}()
	return th, nil
}

// Resume makes t ready to run. self is the calling thread's own Thread
// (nil if called from outside any thread body, e.g. during boot).
func (t *Thread) Resume(self *Thread) error {
	var selfTask *kernel.Task
	if self != nil {
		selfTask = self.task()
	}
	return t.k.Tramp.Invoke(selfTask, func() error {
		task := t.task()
		if task == nil {
			return kernel.Fail(kernel.ComponentThread, kernel.KindHandleInvalid, "thread.Resume")
		}
		if task.Status != kernel.StatusDormant && task.Status != kernel.StatusSuspended {
			return kernel.Fail(kernel.ComponentThread, kernel.KindStateViolation, "thread.Resume")
		}
		t.k.Sched.EntryTrigger(task, true)
		return nil
	})
}

// Suspend takes t out of scheduling contention until Resume is called
// again. self is the calling thread (nil if called from boot context).
func (t *Thread) Suspend(self *Thread) error {
	var selfTask *kernel.Task
	if self != nil {
		selfTask = self.task()
	}
	return t.k.Tramp.Invoke(selfTask, func() error {
		task := t.task()
		if task == nil {
			return kernel.Fail(kernel.ComponentThread, kernel.KindHandleInvalid, "thread.Suspend")
		}
		if task.Status != kernel.StatusReady && task.Status != kernel.StatusRunning {
			return kernel.Fail(kernel.ComponentThread, kernel.KindStateViolation, "thread.Suspend")
		}
		task.Status = kernel.StatusSuspended
		t.k.Sched.ExitTrigger(task, true)
		return nil
	})
}

// Yield gives up the CPU for one schedule point, letting an equal- or
// higher-priority ready task run if one exists. If none exists, Yield
// returns StateViolation and self keeps the CPU.
func Yield(self *Thread) error {
	task := self.task()
	return self.k.Tramp.Invoke(task, func() error {
		if !self.k.Sched.HasTwoPending() {
			return kernel.Fail(kernel.ComponentThread, kernel.KindStateViolation, "thread.Yield")
		}
		task.Status = kernel.StatusReady
		self.k.Sched.ExitTrigger(task, true)
		self.k.Sched.EntryTrigger(task, true)
		if task.Linker.List.Head() == &task.Linker {
			return kernel.Fail(kernel.ComponentThread, kernel.KindStateViolation, "thread.Yield")
		}
		return nil
	})
}

// Sleep blocks self for at least d, waking it via the kernel's timer wheel.
// A d of zero or less is rejected with ArgInvalid without touching any list.
func Sleep(self *Thread, d time.Duration) error {
	if d <= 0 {
		return self.k.Fail(kernel.ComponentThread, kernel.KindArgInvalid, "thread.Sleep")
	}
	task := self.task()
	ticks := self.k.Ticks(d)
	return self.k.Tramp.Invoke(task, func() error {
		task.Status = kernel.StatusPending
		self.k.Sched.ExitTrigger(task, true)
		tn := &kernel.TimerNode{Task: task}
		task.Timeout = tn
		self.k.Timers.Arm(tn, ticks)
		return nil
	})
}

// Delete terminates t immediately, removing it from scheduling and
// releasing its slot back to the thread pool. self is the calling thread
// (nil from boot context). Deleting a thread's own running instance is not
// supported: a thread that wants to end simply returns from its Body.
func (t *Thread) Delete(self *Thread) error {
	var selfTask *kernel.Task
	if self != nil {
		selfTask = self.task()
	}
	return t.k.Tramp.Invoke(selfTask, func() error {
		task := t.task()
		if task == nil {
			return kernel.Fail(kernel.ComponentThread, kernel.KindHandleInvalid, "thread.Delete")
		}
		if task == selfTask {
			return kernel.Fail(kernel.ComponentThread, kernel.KindStateViolation, "thread.Delete")
		}
		task.Status = kernel.StatusDead
		t.k.Sched.ExitTrigger(task, true)
		if task.Timeout != nil {
			t.k.Timers.Cancel(task.Timeout)
		}
		t.k.Threads.Release(t.handle)
		return nil
	})
}
