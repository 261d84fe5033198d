package kernel

// Status is a task's position in the scheduler's state machine, modeled on
// source/kernel.c's thread status constants and cross-checked against
// avikivity-gcc's runtime2.go _Gidle/_Grunnable/_Grunning/_Gwaiting/_Gdead
// naming.
type Status uint8

const (
	StatusDormant Status = iota
	StatusReady
	StatusRunning
	StatusPending
	StatusSuspended
	StatusDead
)

func (s Status) String() string {
	switch s {
	case StatusDormant:
		return "dormant"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusPending:
		return "pending"
	case StatusSuspended:
		return "suspended"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Analyzer holds the non-stack-dependent half of the original's per-task
// runtime statistics (see DESIGN.md's Open Question decision on
// port_stack_free_estimate: there is no raw stack for Go to scan, so that
// half is dropped and only the timing fields are kept). Nothing in this
// module writes these fields; they stay zero.
type Analyzer struct {
	LastPendMs int64
	LastRunMs  int64
	TotalRunMs int64
}

// Task is the scheduler's view of a thread: its priority, its current
// status, and the one-shot wake channel used to resume the goroutine
// running its body once the scheduler decides it may proceed again. Every
// primitive's wait queue (mutex, semaphore, event, queue) holds *Task
// values via their embedded ObjectHead.Linker, never raw goroutine handles.
type Task struct {
	ObjectHead
	Priority int32
	Status   Status

	// PendCtx is set by whichever primitive a task is blocked on (the
	// *mutex.Mutex or *semaphore.Semaphore itself, or event's and queue's
	// own wait-context types) so Kernel.Tick can cancel a timed-out wait
	// through TimeoutCanceler without knowing the concrete primitive. Typed by convention, per SPEC_FULL.md §11: callers type-
	// assert to the concrete context they expect.
	PendCtx any

	// Timeout is the timer node arming this task's pend timeout, or nil if
	// the task is waiting indefinitely.
	Timeout *TimerNode

	// PendResult is the error a blocked call should return once this task
	// is scheduled back in — nil for an ordinary wake (lock granted,
	// permit given, flags matched, message handed off), or a Timeout
	// postcode when the wake came from the pend timeout instead. Cleared
	// by ExitTrigger whenever a task blocks, so a stale result from a
	// previous blocking call can never leak into the next one.
	PendResult error

	Analyzer Analyzer

	wake chan struct{}
}

// TimeoutCanceler is implemented by a PendCtx value so the kernel's timer
// expiry path can remove a timed-out task from whichever primitive-specific
// wait queue it is blocked on and report the right failure, without the
// kernel needing to know the concrete primitive. CancelWait must unlink the
// task from its wait queue (typically via Remove(&t.Linker)) and return the
// Timeout postcode to deliver; per spec.md §5, it must not otherwise touch
// the primitive's state (count, flags, ring buffer).
type TimeoutCanceler interface {
	CancelWait(t *Task) error
}

// NewTask constructs a Task at the given priority, in the Dormant state.
func NewTask(priority int32) *Task {
	return &Task{Priority: priority, Status: StatusDormant, wake: make(chan struct{}, 1)}
}

// Wake signals the task's goroutine to resume. Non-blocking: at most one
// outstanding wake is ever meaningful, since a task can only be pending on
// one thing at a time.
func (t *Task) Wake() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// WaitWake blocks the calling goroutine until Wake is called.
func (t *Task) WaitWake() { <-t.wake }

func taskOf(n *LinkerNode) *Task {
	if n == nil {
		return nil
	}
	return n.Owner().(*Task)
}

func taskLess(a, b *LinkerNode) bool {
	return taskOf(a).Priority < taskOf(b).Priority
}

// TaskPriorityLess orders two Tasks' LinkerNodes by ascending Priority
// (lower value runs first). Exported so every primitive's wait queue
// (mutex, semaphore, event, queue) can order its blocked tasks the same
// way the scheduler orders its pend list.
func TaskPriorityLess(a, b *LinkerNode) bool { return taskLess(a, b) }

// TaskOf recovers the Task embedding a LinkerNode previously placed on a
// wait queue via its own Linker field.
func TaskOf(n *LinkerNode) *Task { return taskOf(n) }

// Scheduler owns the pend (ready-to-run), entry, and exit lists described
// in spec.md §3, and the single currently-running task. Grounded on
// source/kernel.c's _schedule_entry/_schedule_exit/_schedule_point family
// and on toysched's Scheduler struct owning ordered run queues.
//
// All methods assume the caller already holds the kernel's CriticalSection
// (see critsec.go's doc comment on the single-entry-point nesting model).
type Scheduler struct {
	pend    List
	entry   List
	exit    List
	running *Task

	resultTask       *Task
	resultRescheduled bool
}

// NewScheduler returns an empty Scheduler with no running task.
func NewScheduler() *Scheduler { return &Scheduler{} }

// Running returns the task currently occupying the CPU, or nil before boot.
func (s *Scheduler) Running() *Task { return s.running }

// EntryTrigger marks t ready to run. When immediate is true (the only mode
// spec.md's newer lineage supports — see DESIGN.md Open Question 2) t is
// inserted directly into the priority-ordered pend list; otherwise it is
// staged on the entry list for SchedulePoint to drain.
func (s *Scheduler) EntryTrigger(t *Task, immediate bool) {
	t.Status = StatusReady
	t.PendCtx = nil
	if t.Timeout != nil {
		t.Timeout = nil
	}
	if immediate {
		t.Linker.SetOwner(t)
		s.pend.InsertOrdered(&t.Linker, taskLess)
		return
	}
	t.Linker.SetOwner(t)
	s.entry.Push(&t.Linker, Tail)
}

// ExitTrigger marks t as leaving the ready/running state (the caller has
// already set t.Status to whatever blocking state applies — StatusPending
// or StatusSuspended). When immediate is true, t is removed from the pend
// list right away if that's where it currently sits; otherwise it is
// staged on the exit list for SchedulePoint to drain. Either way, the
// actual "who is running now" transition happens inside SchedulePoint,
// which notices t.Status no longer reads StatusRunning — ExitTrigger
// itself never touches s.running, so staged and immediate exits are
// handled identically by the single piece of code that decides what runs
// next.
//
// Callers that block t on a primitive's own wait queue (mutex, semaphore,
// event, queue) thread t.Linker onto that queue before calling ExitTrigger.
// The immediate path only unlinks t when it is still on the scheduler's own
// pend list, so it never yanks t back off a wait queue it was just placed
// on. ExitTrigger is also the generic "a task is about to block" point, so
// it clears any PendResult left over from a previous blocking call.
func (s *Scheduler) ExitTrigger(t *Task, immediate bool) {
	t.PendResult = nil
	if immediate {
		if t.Linker.List == &s.pend {
			Remove(&t.Linker)
		}
		return
	}
	t.Linker.SetOwner(t)
	s.exit.Push(&t.Linker, Tail)
}

// HasTwoPending reports whether there is at least one other ready task
// besides whichever task is currently running — the condition the
// original's _schedule_can_preempt checks before bothering to context
// switch.
func (s *Scheduler) HasTwoPending() bool {
	if s.running == nil {
		return s.pend.Len() >= 1
	}
	return s.pend.Len() >= 1
}

// SchedulePoint drains the staged exit and entry lists, then decides what
// runs next. If the task that was running is still in StatusRunning, it
// keeps the CPU unless a strictly higher-priority task is now pending, in
// which case it is preempted and reinserted into pend. If the task that
// was running is no longer in StatusRunning (its caller moved it to
// Pending, Suspended, or Dead before calling ExitTrigger), the
// highest-priority pend task — or nobody, if pend is empty — takes over.
// Whenever the running task changes (including to nobody), the change is
// recorded for ScheduleResultTake to report; otherwise nothing is recorded.
func (s *Scheduler) SchedulePoint() {
	it := s.exit.Iterate()
	for n := it.Next(); n != nil; n = it.Next() {
		Remove(n)
	}
	it = s.entry.Iterate()
	for n := it.Next(); n != nil; n = it.Next() {
		t := taskOf(n)
		Remove(n)
		t.Linker.SetOwner(t)
		s.pend.InsertOrdered(&t.Linker, taskLess)
	}

	old := s.running

	if old != nil && old.Status == StatusRunning {
		cand := taskOf(s.pend.Head())
		if cand == nil || cand.Priority >= old.Priority {
			return
		}
		old.Status = StatusReady
		old.Linker.SetOwner(old)
		s.pend.InsertOrdered(&old.Linker, taskLess)
		Remove(&cand.Linker)
		cand.Status = StatusRunning
		s.running = cand
		s.resultTask = cand
		s.resultRescheduled = true
		return
	}

	head := taskOf(s.pend.Head())
	if head == nil {
		if old == nil {
			return
		}
		s.running = nil
		s.resultTask = nil
		s.resultRescheduled = true
		return
	}

	Remove(&head.Linker)
	head.Status = StatusRunning
	s.running = head
	s.resultTask = head
	s.resultRescheduled = true
}

// Requeue re-sorts t's position in the pend list after its Priority has
// changed (priority inheritance boost or revert). A no-op if t is not
// currently on the pend list — e.g. it's running, or blocked elsewhere.
func (s *Scheduler) Requeue(t *Task) {
	if t.Linker.List != &s.pend {
		return
	}
	Remove(&t.Linker)
	t.Linker.SetOwner(t)
	s.pend.InsertOrdered(&t.Linker, taskLess)
}

// ScheduleResultTake returns the task SchedulePoint most recently switched
// to and whether a reschedule actually happened, then clears the pending
// result. Call exactly once per SchedulePoint invocation, from the
// privilege trampoline, to decide whether the caller's goroutine must now
// block on WaitWake.
func (s *Scheduler) ScheduleResultTake() (*Task, bool) {
	t, r := s.resultTask, s.resultRescheduled
	s.resultTask, s.resultRescheduled = nil, false
	return t, r
}
