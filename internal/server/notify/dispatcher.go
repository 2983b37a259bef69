package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/logging"
)

type job struct {
	kind string
	to   string
	send func(ctx context.Context) error
}

// Dispatcher is a Sender that queues messages for a background worker.
// Its methods never block on delivery and always return nil; delivery
// errors are logged. When the queue is full the message is dropped.
type Dispatcher struct {
	next    Sender
	log     logging.Logger
	timeout time.Duration

	ch        chan job
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a worker delivering through next.
func NewDispatcher(next Sender, bufferSize int, timeout time.Duration, log logging.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logging.Nop{}
	}

	d := &Dispatcher{
		next:    next,
		log:     log,
		timeout: timeout,
		ch:      make(chan job, bufferSize),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case j := <-d.ch:
			d.deliver(j)
		case <-d.done:
			for {
				select {
				case j := <-d.ch:
					d.deliver(j)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := j.send(ctx); err != nil {
		d.failed.Add(1)
		d.log.Error(ctx, "email delivery failed", "kind", j.kind, "to", j.to, "error", err)
		return
	}
	d.log.Debug(ctx, "email delivered", "kind", j.kind, "to", j.to)
}

func (d *Dispatcher) enqueue(ctx context.Context, j job) error {
	if d.closed.Load() {
		d.dropped.Add(1)
		d.log.Warn(ctx, "email dropped after close", "kind", j.kind, "to", j.to)
		return nil
	}
	select {
	case d.ch <- j:
	default:
		d.dropped.Add(1)
		d.log.Warn(ctx, "email queue full, dropping", "kind", j.kind, "to", j.to)
	}
	return nil
}

func (d *Dispatcher) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	return d.enqueue(ctx, job{kind: "verification", to: to, send: func(ctx context.Context) error {
		return d.next.SendVerificationEmail(ctx, to, name, token)
	}})
}

func (d *Dispatcher) SendPasswordResetEmail(ctx context.Context, to, name, code string) error {
	return d.enqueue(ctx, job{kind: "password_reset", to: to, send: func(ctx context.Context) error {
		return d.next.SendPasswordResetEmail(ctx, to, name, code)
	}})
}

func (d *Dispatcher) SendWelcomeEmail(ctx context.Context, to, name string) error {
	return d.enqueue(ctx, job{kind: "welcome", to: to, send: func(ctx context.Context) error {
		return d.next.SendWelcomeEmail(ctx, to, name)
	}})
}

func (d *Dispatcher) SendAccountBlockedEmail(ctx context.Context, to, name string, until time.Time) error {
	return d.enqueue(ctx, job{kind: "account_blocked", to: to, send: func(ctx context.Context) error {
		return d.next.SendAccountBlockedEmail(ctx, to, name, until)
	}})
}

// Dropped is the number of messages discarded without a delivery attempt.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Failed is the number of delivery attempts that returned an error.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})
	d.wg.Wait()
}
