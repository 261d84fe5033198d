package queue

import (
	"bytes"
	"testing"
	"time"

	"github.com/rivenkernel/rtkernel/internal/kernel"
	"github.com/rivenkernel/rtkernel/thread"
)

func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	cfg := kernel.DefaultConfig()
	cfg.TickIntervalMs = 1
	k := kernel.New(cfg)
	k.Start()
	t.Cleanup(k.Stop)
	return k
}

func TestSendReceiveFIFO(t *testing.T) {
	k := newTestKernel(t)
	pool := NewPool(k, 4)
	q, err := pool.Create("q", 4, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	self := kernel.NewTask(5)

	if err := q.Send(self, []byte("ab"), Back, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := q.Send(self, []byte("cd"), Back, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	first, err := q.Receive(self, kernel.Forever)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if !bytes.Equal(first, []byte("ab\x00\x00")) {
		t.Fatalf("first = %q, want zero-padded %q", first, "ab\x00\x00")
	}

	second, err := q.Receive(self, kernel.Forever)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if !bytes.Equal(second, []byte("cd\x00\x00")) {
		t.Fatalf("second = %q, want zero-padded %q", second, "cd\x00\x00")
	}
}

func TestSendFrontJumpsAhead(t *testing.T) {
	k := newTestKernel(t)
	pool := NewPool(k, 4)
	q, err := pool.Create("q", 1, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	self := kernel.NewTask(5)

	if err := q.Send(self, []byte("a"), Back, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := q.Send(self, []byte("b"), Front, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	first, _ := q.Receive(self, kernel.Forever)
	if string(first) != "b" {
		t.Fatalf("first = %q, want %q (front-sent message jumps the queue)", first, "b")
	}
}

func TestSendTruncatesOversizedPayload(t *testing.T) {
	k := newTestKernel(t)
	pool := NewPool(k, 4)
	q, err := pool.Create("q", 2, 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	self := kernel.NewTask(5)

	if err := q.Send(self, []byte("abcdef"), Back, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	got, _ := q.Receive(self, kernel.Forever)
	if string(got) != "ab" {
		t.Fatalf("got = %q, want truncated %q", got, "ab")
	}
}

func TestReceiveBlocksUntilSend(t *testing.T) {
	k := newTestKernel(t)
	pool := NewPool(k, 4)
	q, err := pool.Create("q", 4, 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	received := make(chan []byte, 1)
	waiter, err := thread.Init(k, "waiter", 5, func(self *thread.Thread) {
		msg, err := q.Receive(self.Task(), kernel.Forever)
		if err != nil {
			t.Errorf("Receive() error = %v", err)
			return
		}
		received <- msg
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := waiter.Resume(nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	select {
	case <-received:
		t.Fatalf("Receive returned before any Send")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Send(kernel.NewTask(100), []byte("hi"), Back, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case msg := <-received:
		if !bytes.Equal(msg, []byte("hi\x00\x00")) {
			t.Fatalf("msg = %q, want %q", msg, "hi\x00\x00")
		}
	case <-time.After(time.Second):
		t.Fatalf("Receive never returned after Send")
	}
}

func TestQueueFullBlocksSender(t *testing.T) {
	k := newTestKernel(t)
	pool := NewPool(k, 4)
	q, err := pool.Create("q", 1, 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	self := kernel.NewTask(5)
	if err := q.Send(self, []byte("x"), Back, kernel.Forever); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	sent := make(chan struct{})
	sender, err := thread.Init(k, "sender", 5, func(th *thread.Thread) {
		if err := q.Send(th.Task(), []byte("y"), Back, kernel.Forever); err != nil {
			t.Errorf("Send() error = %v", err)
			return
		}
		close(sent)
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := sender.Resume(nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	select {
	case <-sent:
		t.Fatalf("Send on a full queue returned before any room freed up")
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := q.Receive(kernel.NewTask(100), kernel.Forever); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatalf("blocked Send never completed once room freed up")
	}
}

// TestFourthSendTimesOutThenFifthSucceeds is spec.md §8 scenario 3: a
// queue with no room left times out a bounded Send, and a later Receive
// unblocks a still-waiting sender with success.
func TestFourthSendTimesOutThenFifthSucceeds(t *testing.T) {
	k := newTestKernel(t)
	pool := NewPool(k, 4)
	q, err := pool.Create("q", 4, 3)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	self := kernel.NewTask(5)
	payload := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	for i := 0; i < 3; i++ {
		if err := q.Send(self, payload, Back, kernel.Forever); err != nil {
			t.Fatalf("Send() #%d error = %v", i, err)
		}
	}

	err = q.Send(self, payload, Back, 3*time.Millisecond)
	kerr, ok := err.(*kernel.Error)
	if !ok || kerr.Kind() != kernel.KindTimeout {
		t.Fatalf("fourth Send() error = %v, want Timeout", err)
	}

	blocked := make(chan error, 1)
	sender, err := thread.Init(k, "sender", 5, func(th *thread.Thread) {
		blocked <- q.Send(th.Task(), payload, Back, kernel.Forever)
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := sender.Resume(nil); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	select {
	case <-blocked:
		t.Fatalf("Send on a full queue returned before any room freed up")
	case <-time.After(20 * time.Millisecond):
	}

	msg, err := q.Receive(kernel.NewTask(100), kernel.Forever)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if !bytes.Equal(msg, payload) {
		t.Fatalf("Receive() = %v, want %v", msg, payload)
	}

	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("blocked Send() error = %v, want success", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked Send never completed once room freed up")
	}

	got, err := q.Receive(kernel.NewTask(100), kernel.Forever)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("newest slot = %v, want %v", got, payload)
	}
}
