package rtos

import (
	"testing"
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
)

func newTestCfg() kernel.Config {
	cfg := kernel.DefaultConfig()
	cfg.TickIntervalMs = 1
	return cfg
}

func TestIdleThreadKeepsKernelRunning(t *testing.T) {
	r, err := New(newTestCfg())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.IsRunning() {
		t.Fatalf("kernel should not report running before Run")
	}
	if err := r.Run(nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer r.Stop()

	time.Sleep(20 * time.Millisecond)
	if !r.IsRunning() {
		t.Fatalf("expected the idle thread to keep something running")
	}
}

func TestApplicationThreadPreemptsIdle(t *testing.T) {
	r, err := New(newTestCfg())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer r.Stop()

	ran := make(chan struct{})
	worker, err := r.NewThread("worker", 1, func(self *Thread) { close(ran) })
	if err != nil {
		t.Fatalf("NewThread() error = %v", err)
	}
	if err := worker.Resume(nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("application thread never ran")
	}
}

// TestEndToEndMutexAndSemaphore exercises a producer/consumer pair
// synchronized through a mutex-guarded counter and a semaphore handoff —
// spec.md §8's integration-scenario shape, built from the public facade.
func TestEndToEndMutexAndSemaphore(t *testing.T) {
	r, err := New(newTestCfg())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	defer r.Stop()

	guard, err := r.Mutexes.Create("guard")
	if err != nil {
		t.Fatalf("Mutexes.Create() error = %v", err)
	}
	ready, err := r.Semaphores.CreateBinary("ready", false)
	if err != nil {
		t.Fatalf("Semaphores.CreateBinary() error = %v", err)
	}

	counter := 0
	done := make(chan int, 1)

	consumer, err := r.NewThread("consumer", 5, func(self *Thread) {
		if err := ready.Take(self.Task(), kernel.Forever); err != nil {
			t.Errorf("Take() error = %v", err)
			return
		}
		if err := guard.Lock(self.Task()); err != nil {
			t.Errorf("Lock() error = %v", err)
			return
		}
		v := counter
		_ = guard.Unlock(self.Task())
		done <- v
	})
	if err != nil {
		t.Fatalf("NewThread(consumer) error = %v", err)
	}
	if err := consumer.Resume(nil); err != nil {
		t.Fatalf("Resume(consumer) error = %v", err)
	}

	producer, err := r.NewThread("producer", 5, func(self *Thread) {
		if err := guard.Lock(self.Task()); err != nil {
			t.Errorf("Lock() error = %v", err)
			return
		}
		counter = 42
		_ = guard.Unlock(self.Task())
		if err := ready.Give(self.Task()); err != nil {
			t.Errorf("Give() error = %v", err)
		}
	})
	if err != nil {
		t.Fatalf("NewThread(producer) error = %v", err)
	}
	if err := producer.Resume(nil); err != nil {
		t.Fatalf("Resume(producer) error = %v", err)
	}

	select {
	case v := <-done:
		if v != 42 {
			t.Fatalf("consumer observed counter = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("producer/consumer handoff never completed")
	}
}
