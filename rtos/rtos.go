// Package rtos is the public facade bundling every primitive into one
// bootable kernel instance, grounded on kernel/kthread.c's at_rtos_api_t
// os global: a single struct exposing thread/mutex/semaphore/event/queue
// construction and the kernel's run/stop lifecycle.
package rtos

import (
	"github.com/rivenkernel/rtkernel/event"
	"github.com/rivenkernel/rtkernel/internal/kernel"
	"github.com/rivenkernel/rtkernel/mutex"
	"github.com/rivenkernel/rtkernel/queue"
	"github.com/rivenkernel/rtkernel/semaphore"
	"github.com/rivenkernel/rtkernel/thread"
)

// IdlePriority is reserved for the automatically created idle thread; no
// application thread should be created at a lower priority (numerically
// higher) than this, since nothing would ever preempt the idle loop.
const IdlePriority = int32(1<<31 - 1)

// Thread re-exports thread.Thread so callers only need to import this
// package for the common case.
type Thread = thread.Thread

// Mutex, Semaphore, Event, and Queue re-export their package types for the
// same reason.
type (
	Mutex     = mutex.Mutex
	Semaphore = semaphore.Semaphore
	Event     = event.Event
	Queue     = queue.Queue
)

// Kernel is a fully wired kernel instance: the privileged core plus every
// primitive's fixed pool, and an idle thread occupying the lowest priority
// so the scheduler always has something runnable.
type Kernel struct {
	k *kernel.Kernel

	Mutexes    *mutex.Pool
	Semaphores *semaphore.Pool
	Events     *event.Pool
	Queues     *queue.Pool

	idle *thread.Thread
}

// New builds a Kernel from cfg, including its idle thread, but does not
// start ticking — call Run for that.
func New(cfg kernel.Config) (*Kernel, error) {
	k := kernel.New(cfg)
	r := &Kernel{
		k:          k,
		Mutexes:    mutex.NewPool(k, cfg.MutexCapacity),
		Semaphores: semaphore.NewPool(k, cfg.SemaphoreCapacity),
		Events:     event.NewPool(k, cfg.EventCapacity),
		Queues:     queue.NewPool(k, cfg.QueueCapacity),
	}

	idle, err := thread.Init(k, "idle", IdlePriority, func(self *thread.Thread) {
		// The idle task never blocks in the kernel, so the scheduler always
		// has it to fall back to.
		select {}
	})
	if err != nil {
		return nil, err
	}
	r.idle = idle
	return r, nil
}

// NewThread creates and spawns a thread at priority (lower value runs
// first), dormant until Resume is called on the returned *Thread.
func (r *Kernel) NewThread(name string, priority int32, body thread.Body) (*thread.Thread, error) {
	return thread.Init(r.k, name, priority, body)
}

// Run starts the tick loop and boots the idle thread, so from then on the
// idle task is always runnable and takes the CPU whenever no application
// thread is ready.
func (r *Kernel) Run(self *thread.Thread) error {
	r.k.Start()
	return r.idle.Resume(self)
}

// Stop halts the tick loop. The idle thread's goroutine stays parked; no
// timer advances after Stop.
func (r *Kernel) Stop() { r.k.Stop() }

// IsRunning reports whether any task is currently occupying the CPU —
// false only before Run, or in the pathological case that every thread
// (including idle) has been deleted.
func (r *Kernel) IsRunning() bool {
	var running bool
	r.k.Crit.Enter()
	running = r.k.Sched.Running() != nil
	r.k.Crit.Exit()
	return running
}

// Tick steps the kernel's timer wheel and scheduler by exactly one tick,
// for deterministic tests that don't want to wait on the wall clock.
func (r *Kernel) Tick() { r.k.Tick() }

// Config returns the configuration this Kernel was built from.
func (r *Kernel) Config() kernel.Config { return r.k.Config }
