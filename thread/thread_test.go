package thread

import (
	"testing"
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
)

func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	cfg := kernel.DefaultConfig()
	cfg.ThreadCapacity = 4
	cfg.TickIntervalMs = 1
	return kernel.New(cfg)
}

func TestInitStartsDormant(t *testing.T) {
	k := newTestKernel(t)
	started := make(chan struct{}, 1)
	th, err := Init(k, "worker", 5, func(self *Thread) { started <- struct{}{} })
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if th.Status() != kernel.StatusDormant {
		t.Fatalf("Status() = %v, want StatusDormant", th.Status())
	}
	select {
	case <-started:
		t.Fatalf("body ran before Resume")
	default:
	}
}

func TestResumeRunsBody(t *testing.T) {
	k := newTestKernel(t)
	ran := make(chan struct{})
	th, err := Init(k, "worker", 5, func(self *Thread) { close(ran) })
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := th.Resume(nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("body never ran after Resume")
	}
}

func TestInitExhaustsCapacity(t *testing.T) {
	k := newTestKernel(t)
	for i := 0; i < k.Config.ThreadCapacity; i++ {
		if _, err := Init(k, "t", 1, func(self *Thread) {}); err != nil {
			t.Fatalf("Init() #%d error = %v", i, err)
		}
	}
	if _, err := Init(k, "overflow", 1, func(self *Thread) {}); err == nil {
		t.Fatalf("expected ResourceExhausted once the thread pool is full")
	}
}

func TestSleepWakesAfterDuration(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})
	th, err := Init(k, "sleeper", 5, func(self *Thread) {
		_ = Sleep(self, 3*time.Millisecond)
		close(done)
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := th.Resume(nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("thread never woke from sleep within 5 ticks")
	}
}
