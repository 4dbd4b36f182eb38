package textual

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// WorkerState tracks a worker through its lifecycle. Transitions are
// reported to the owning node as worker state messages.
type WorkerState int

const (
	WorkerPending WorkerState = iota
	WorkerRunning
	WorkerSuccess
	WorkerError
	WorkerCancelled
)

func (s WorkerState) String() string {
	switch s {
	case WorkerPending:
		return "pending"
	case WorkerRunning:
		return "running"
	case WorkerSuccess:
		return "success"
	case WorkerError:
		return "error"
	case WorkerCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Worker is a unit of background work owned by a node. Unmounting the
// node cancels its workers. Work functions must honour their context;
// cancellation is cooperative.
type Worker struct {
	name   string
	node   *Node
	app    *App
	queue  *pump
	cancel context.CancelFunc
	done   chan struct{}

	state atomic.Int32
	err   error

	continueOnError bool
}

// WorkerStateChange is the payload of worker state messages.
type WorkerStateChange struct {
	Worker *Worker
	State  WorkerState
	Err    error
}

// WorkerOption configures a worker at launch.
type WorkerOption func(*Worker)

// WorkerName labels the worker for state messages and errors.
func WorkerName(name string) WorkerOption {
	return func(w *Worker) { w.name = name }
}

// ContinueOnError downgrades a worker failure from a fatal app exit to
// a state-change message the owning node can observe.
func ContinueOnError() WorkerOption {
	return func(w *Worker) { w.continueOnError = true }
}

// RunWorker starts fn on its own goroutine, owned by n. The context is
// cancelled when the worker is cancelled, the node unmounts or the app
// shuts down. State transitions arrive on n's queue as worker state
// messages. By default a returned error takes the app down with a
// traceback.
func (n *Node) RunWorker(fn func(ctx context.Context) error, opts ...WorkerOption) *Worker {
	parent := context.Background()
	if n.app != nil {
		parent = n.app.ctx
	}
	ctx, cancel := context.WithCancel(parent)

	w := &Worker{node: n, app: n.app, queue: n.queue, cancel: cancel, done: make(chan struct{})}
	for _, opt := range opts {
		opt(w)
	}
	n.workers = append(n.workers, w)

	go w.run(ctx, fn)
	return w
}

func (w *Worker) run(ctx context.Context, fn func(ctx context.Context) error) {
	defer close(w.done)

	w.setState(WorkerRunning, nil)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("worker %s panicked: %v\n%s", w.Name(), r, debug.Stack())
			}
		}()
		err = fn(ctx)
	}()

	switch {
	case ctx.Err() != nil && err == nil:
		w.setState(WorkerCancelled, nil)
	case err != nil:
		w.err = err
		w.setState(WorkerError, err)
		if !w.continueOnError && w.app != nil {
			w.app.fatal(fmt.Errorf("worker %s: %w", w.Name(), err), debug.Stack())
		}
	default:
		w.setState(WorkerSuccess, nil)
	}
}

// setState runs on the worker goroutine, so it must not touch mutable
// node fields. It posts straight to the pump captured at launch; a
// pump whose node unmounted in the meantime is unregistered, so the
// message is never dispatched.
func (w *Worker) setState(s WorkerState, err error) {
	w.state.Store(int32(s))
	w.queue.post(NewMessage(MsgWorkerState, WorkerStateChange{Worker: w, State: s, Err: err}).NoBubble())
	if w.app != nil {
		w.app.wakePump(w.queue)
	}
}

// Name returns the worker's label, defaulting to its owner's type.
func (w *Worker) Name() string {
	if w.name != "" {
		return w.name
	}
	return w.node.TypeName() + " worker"
}

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// Cancel requests cancellation. The work function sees its context
// done; Cancel does not wait for it to return.
func (w *Worker) Cancel() { w.cancel() }

// Wait blocks until the worker finishes and returns its error.
func (w *Worker) Wait() error {
	<-w.done
	return w.err
}

// Timer delivers a callback onto its owning node's queue, so the
// callback always runs on the app goroutine. Stop is synchronous: once
// it returns, the callback will not run again even if a tick is
// already queued.
type Timer struct {
	app      *App
	queue    *pump
	stop     chan struct{}
	stopped  atomic.Bool
	interval bool
}

// SetTimer schedules fn once after d.
func (n *Node) SetTimer(d time.Duration, fn func()) *Timer {
	t := &Timer{app: n.app, queue: n.queue, stop: make(chan struct{})}
	n.timers = append(n.timers, t)
	go func() {
		select {
		case <-time.After(d):
			t.post(fn)
		case <-t.stop:
		}
	}()
	return t
}

// SetInterval schedules fn every d until stopped.
func (n *Node) SetInterval(d time.Duration, fn func()) *Timer {
	t := &Timer{app: n.app, queue: n.queue, stop: make(chan struct{}), interval: true}
	n.timers = append(n.timers, t)
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.post(fn)
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

// post runs on the timer goroutine, so it stays off mutable node
// fields and posts to the pump captured at creation. Unmounting stops
// the timer and unregisters the pump, so a tick racing past the
// stopped check still goes nowhere.
func (t *Timer) post(fn func()) {
	if t.stopped.Load() {
		return
	}
	// The guard re-checks at delivery time, covering ticks queued
	// before Stop was called.
	t.queue.post(NewMessage(MsgTimer, func() {
		if !t.stopped.Load() {
			fn()
		}
	}).NoBubble())
	if t.app != nil {
		t.app.wakePump(t.queue)
	}
}

// Stop cancels the timer.
func (t *Timer) Stop() {
	if t.stopped.CompareAndSwap(false, true) {
		close(t.stop)
	}
}
