package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultQueueSize is the buffered queue length for pending sends.
const DefaultQueueSize = 64

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 10 * time.Second

// Dispatcher drains queued messages to a Notifier on a background
// goroutine so callers never wait on delivery. There are no retries:
// a message gets exactly one attempt.
type Dispatcher struct {
	notifier Notifier
	queue    chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher over the given notifier.
func NewDispatcher(n Notifier, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		notifier:    n,
		queue:       make(chan Message, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: DefaultSendTimeout,
	}
}

// Start begins the delivery loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.deliverLoop()
	log.Printf("Notification dispatcher started (%s)", d.notifier.Name())
}

// Stop drains nothing and waits for the in-flight send, if any, to finish.
// Queued messages that were never attempted are dropped with a log line.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
	if n := len(d.queue); n > 0 {
		log.Printf("Notification dispatcher stopped, dropping %d queued message(s)", n)
	} else {
		log.Println("Notification dispatcher stopped")
	}
}

// Enqueue hands a message to the dispatcher without blocking. When the
// queue is full the message is dropped and logged; the caller's status
// write has already succeeded and must not be held up.
func (d *Dispatcher) Enqueue(msg Message) {
	select {
	case d.queue <- msg:
	default:
		log.Printf("Notification queue full, dropping %q to %s", msg.Subject, msg.To)
	}
}

func (d *Dispatcher) deliverLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case msg := <-d.queue:
			d.deliver(msg)
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, d.sendTimeout)
	defer cancel()

	if err := d.notifier.Send(ctx, msg); err != nil {
		// Logged and swallowed: never surfaced, never retried.
		log.Printf("Notification delivery failed (%s): %v", d.notifier.Name(), err)
	}
}
