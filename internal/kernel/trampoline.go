package kernel

// Trampoline is the single call-in point every blocking primitive (mutex,
// semaphore, event, queue, thread) routes its state-mutating calls through,
// mirroring kernel_privilege_invoke's role across kernel/*.c: take the
// critical section, run the privileged body, run a schedule point, release
// the critical section, then — if the calling task itself lost the CPU —
// park the calling goroutine until it's scheduled back in.
type Trampoline struct {
	crit  *CriticalSection
	sched *Scheduler
	trace *Trace
}

// NewTrampoline builds a Trampoline over the given critical section,
// scheduler, and trace facility. All three are normally owned by a single
// Kernel and shared with every primitive package.
func NewTrampoline(crit *CriticalSection, sched *Scheduler, trace *Trace) *Trampoline {
	return &Trampoline{crit: crit, sched: sched, trace: trace}
}

// Invoke runs fn with the kernel critical section held. self identifies
// the task making the call (nil if the caller is not running inside any
// task's body, e.g. during boot or from the tick goroutine). If self was
// the running task and fn's side effects cause it to lose the CPU, or fn
// leaves self blocked (StatusPending or StatusSuspended), Invoke blocks
// until the scheduler hands the CPU back to self. A caller that neither
// held the CPU nor blocked returns as soon as fn and the schedule point
// are done.
//
// Once self resumes, its PendResult is checked: a non-nil value means the
// wake came from the task's own pend timeout rather than fn's own success
// path (spec.md §5), and is traced and returned in place of err.
func (tr *Trampoline) Invoke(self *Task, fn func() error) error {
	tr.crit.Enter()
	wasRunning := self != nil && tr.sched.Running() == self
	err := fn()
	tr.sched.SchedulePoint()
	woken, rescheduled := tr.sched.ScheduleResultTake()
	running := tr.sched.Running()
	blocked := self != nil && (self.Status == StatusPending || self.Status == StatusSuspended)
	tr.crit.Exit()

	if rescheduled && woken != nil && woken != self {
		woken.Wake()
	}
	if self != nil && running != self && (wasRunning || blocked) {
		self.WaitWake()
		if self.PendResult != nil {
			return tr.trace.Failure(self.PendResult)
		}
	}
	return tr.trace.Failure(err)
}
