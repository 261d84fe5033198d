package kernel

import "time"

// threadPool is a fixed-capacity store of *Task, kept separate from the
// generic Pool[T] used by the other primitives because a Task's wake
// channel must survive across Acquire/Release cycles — channels aren't
// safely re-creatable mid-flight the way a plain value's fields are.
type threadPool struct {
	tasks []*Task
}

func newThreadPool(capacity int) *threadPool {
	tasks := make([]*Task, capacity)
	for i := range tasks {
		tasks[i] = NewTask(0)
	}
	return &threadPool{tasks: tasks}
}

func (p *threadPool) Capacity() int { return len(p.tasks) }

func (p *threadPool) Acquire() (Handle, *Task, bool) {
	for i, t := range p.tasks {
		if !t.IsInited() {
			return makeHandle(KindThread, i), t, true
		}
	}
	return Invalid, nil, false
}

func (p *threadPool) Get(h Handle) *Task {
	if !h.IsValid() || h.Kind() != KindThread {
		return nil
	}
	idx := h.Index()
	if idx < 0 || idx >= len(p.tasks) {
		return nil
	}
	t := p.tasks[idx]
	if !t.IsInited() {
		return nil
	}
	return t
}

func (p *threadPool) Release(h Handle) {
	if t := p.Get(h); t != nil {
		wake := t.wake
		t.Destroy()
		t.wake = wake
		t.Priority = 0
		t.Status = StatusDormant
	}
}

// Kernel bundles every piece of privileged state a boot needs: the
// critical section, the scheduler, the timer wheel, the privilege
// trampoline, the fixed thread pool, and the trace facility. Grounded on
// kernel/kthread.c's kthread_init, which wires up exactly this set of
// globals before the scheduler's first tick.
type Kernel struct {
	Config  Config
	Trace   *Trace
	Crit    *CriticalSection
	Sched   *Scheduler
	Timers  *TimerWheel
	Tramp   *Trampoline
	Threads *threadPool

	notify chan func()
	done   chan struct{}
	ticker *time.Ticker
}

// New builds a Kernel from cfg. Call Start to begin ticking.
func New(cfg Config) *Kernel {
	crit := &CriticalSection{}
	sched := NewScheduler()
	trace := NewTrace(cfg.TraceConfig())
	k := &Kernel{
		Config:  cfg,
		Trace:   trace,
		Crit:    crit,
		Sched:   sched,
		Timers:  NewTimerWheel(),
		Tramp:   NewTrampoline(crit, sched, trace),
		Threads: newThreadPool(cfg.ThreadCapacity),
		notify:  make(chan func(), 64),
		done:    make(chan struct{}),
	}
	return k
}

// Fail builds a postcode error for component c, kind k, op, traces it
// through this Kernel's Trace facility, and returns it. Call sites outside
// the privilege trampoline (Create/Init argument and capacity checks, which
// never run through Invoke) use this instead of the bare Fail constructor so
// spec.md §7's per-component trace slot is populated for every failing
// postcode, not only the ones raised from inside a privileged routine.
func (k *Kernel) Fail(c Component, kind Kind, op string) error {
	return k.Trace.Failure(Fail(c, kind, op))
}

// AcquireThread claims a Task slot from the fixed thread pool, or ok=false
// if the pool (sized by Config.ThreadCapacity) is exhausted.
func (k *Kernel) AcquireThread() (Handle, *Task, bool) { return k.Threads.Acquire() }

// Thread resolves a Handle to its backing *Task.
func (k *Kernel) Thread(h Handle) *Task { return k.Threads.Get(h) }

// Start launches the tick loop and the notification-drain loop as
// background goroutines. Safe to call once per Kernel.
func (k *Kernel) Start() {
	k.ticker = time.NewTicker(time.Duration(k.Config.TickIntervalMs) * time.Millisecond)
	go k.notifyLoop()
	go k.tickLoop()
}

// Stop halts the tick and notification loops. Safe to call once.
func (k *Kernel) Stop() {
	close(k.done)
	if k.ticker != nil {
		k.ticker.Stop()
	}
}

// Notify queues fn to run on the notification-drain goroutine, outside the
// kernel critical section. Used by event's OnEdge callback, which must
// invoke user code after a state change without holding the lock across it.
func (k *Kernel) Notify(fn func()) { k.notify <- fn }

// notifyLoop runs queued functions (timer callbacks, event edge callbacks)
// outside the critical section, serially, in the order they were queued,
// so timer callbacks run in the order their timers expired — the Go
// analogue of the original deferring ISR-context callbacks to thread
// context rather than running them with interrupts disabled.
func (k *Kernel) notifyLoop() {
	for {
		select {
		case <-k.done:
			return
		case fn := <-k.notify:
			fn()
		}
	}
}

func (k *Kernel) tickLoop() {
	for {
		select {
		case <-k.done:
			return
		case <-k.ticker.C:
			k.Tick()
		}
	}
}

// Tick advances the timer wheel by one tick, runs a schedule point, queues
// any expired timers' callbacks onto the notification loop, and wakes the
// task the schedule point switched to, if any. Exported so tests (and callers driving the kernel
// without a real wall clock) can step time deterministically instead of
// waiting on the ticker.
func (k *Kernel) Tick() {
	k.Crit.Enter()
	expired := k.Timers.Tick()
	for _, tn := range expired {
		if tn.Task != nil {
			task := tn.Task
			task.Timeout = nil
			// A task blocked on a primitive's wait queue carries that
			// primitive's own PendCtx; its timeout is a failure, and the
			// primitive must unlink it from its own queue. A task with no
			// PendCtx is a plain thread.Sleep, whose timeout is success.
			if canceler, ok := task.PendCtx.(TimeoutCanceler); ok {
				task.PendResult = canceler.CancelWait(task)
				task.PendCtx = nil
			}
			task.Status = StatusReady
			k.Sched.EntryTrigger(task, true)
		}
	}
	k.Sched.SchedulePoint()
	woken, rescheduled := k.Sched.ScheduleResultTake()
	k.Crit.Exit()

	for _, tn := range expired {
		tn := tn
		if tn.Callback == nil {
			continue
		}
		k.notify <- func() { tn.Callback(tn) }
	}
	if rescheduled && woken != nil {
		woken.Wake()
	}
}
