package kernel

import "github.com/huandu/go-clone"

// Snapshot returns a deep copy of v, safe to hand to a caller outside the
// critical section without risking a data race on the kernel's live state.
// Grounded on kernel/mutex.c's mutex_snapshot()/kernel_snapshot_t pattern,
// where the original copies a primitive's introspection fields into a
// caller-owned struct before releasing the lock.
func Snapshot[T any](v *T) T {
	return *clone.Clone(v).(*T)
}
