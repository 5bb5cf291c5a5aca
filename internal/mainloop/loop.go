// Package mainloop runs tasks one at a time on a single goroutine.
//
// Clipboard polling, history mutations and listener fan-out are all confined
// to one Loop, so none of that state needs a mutex. Code running elsewhere
// marshals work onto the loop with Post or Do.
package mainloop

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const queueSize = 1024

// Loop is a serialized task queue.
type Loop struct {
	tasks   chan func()
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	logger  *slog.Logger
}

// New starts a loop. Call Close to stop it.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		tasks:   make(chan func(), queueSize),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.stopCh:
			return
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("mainloop: task panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// Post enqueues fn and returns immediately. It reports false when the loop
// has been closed and fn will never run.
func (l *Loop) Post(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.stopped:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from a task already running on the loop.
func (l *Loop) Do(fn func()) bool {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-l.stopped:
		return false
	}
}

// Close stops the loop. Queued tasks that have not started are dropped.
func (l *Loop) Close() {
	if l.closed.CompareAndSwap(false, true) {
		close(l.stopCh)
	}
	<-l.stopped
}

// Timer is a one-shot task scheduled with AfterFunc.
type Timer struct {
	t *time.Timer
}

// Stop prevents the task from being posted. It reports false if the task was
// already posted.
func (t *Timer) Stop() bool {
	return t.t.Stop()
}

// AfterFunc posts fn to the loop once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	return &Timer{t: time.AfterFunc(d, func() { l.Post(fn) })}
}

// Ticker repeatedly posts a task to the loop.
type Ticker struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Every posts fn to the loop every d until the returned ticker is stopped.
func (l *Loop) Every(d time.Duration, fn func()) *Ticker {
	tk := &Ticker{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	t := time.NewTicker(d)
	go func() {
		defer close(tk.done)
		defer t.Stop()
		for {
			select {
			case <-tk.stop:
				return
			case <-l.stopped:
				return
			case <-t.C:
				l.Post(func() {
					if tk.Stopped() {
						return
					}
					fn()
				})
			}
		}
	}()
	return tk
}

// Stop halts the ticker and releases its timer. Ticks that were already
// queued are discarded, so no task runs after Stop returns on the loop.
func (tk *Ticker) Stop() {
	tk.once.Do(func() { close(tk.stop) })
}

// Stopped reports whether Stop has been called.
func (tk *Ticker) Stopped() bool {
	select {
	case <-tk.stop:
		return true
	default:
		return false
	}
}

// Done is closed once the ticker goroutine has exited.
func (tk *Ticker) Done() <-chan struct{} {
	return tk.done
}
