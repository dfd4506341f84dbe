package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// captureNotifier records sends and can be told to fail.
type captureNotifier struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (c *captureNotifier) Name() string { return "capture" }

func (c *captureNotifier) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.err
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	n := &captureNotifier{}
	d := NewDispatcher(n, 8)
	d.Start()
	defer d.Stop()

	d.Enqueue(Message{To: "pm@acme.test", Subject: "Design completed", Body: "Design is done"})
	d.Enqueue(Message{To: "pm@acme.test", Subject: "Deal won", Body: "Acme won"})

	waitFor(t, func() bool { return n.count() == 2 })
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	// Dispatcher is not started, so nothing drains the queue.
	d := NewDispatcher(&captureNotifier{}, 1)
	defer d.cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Enqueue(Message{Subject: "overflow"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	n := &captureNotifier{err: errors.New("smtp down")}
	d := NewDispatcher(n, 8)
	d.Start()
	defer d.Stop()

	d.Enqueue(Message{Subject: "first"})
	d.Enqueue(Message{Subject: "second"})

	// Both attempts happen despite the first failing; no retries occur.
	waitFor(t, func() bool { return n.count() == 2 })
	time.Sleep(50 * time.Millisecond)
	if got := n.count(); got != 2 {
		t.Errorf("Expected exactly 2 attempts, got %d", got)
	}
}
