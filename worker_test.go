package textual

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorker(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Loader"})
		mustMount(t, root, n)
		app.Drain()

		w := n.RunWorker(func(ctx context.Context) error {
			return nil
		}, WorkerName("fetch"))
		if err := w.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if w.State() != WorkerSuccess {
			t.Errorf("State = %v, want success", w.State())
		}
		if w.Name() != "fetch" {
			t.Errorf("Name = %q", w.Name())
		}
	})

	t.Run("state messages reach the node", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		var states []WorkerState
		spec := (&NodeSpec{Type: "Loader"}).On(MsgWorkerState, func(n *Node, m *Message) {
			states = append(states, m.Payload.(WorkerStateChange).State)
		})
		n := NewNode(spec)
		mustMount(t, root, n)
		app.Drain()

		w := n.RunWorker(func(ctx context.Context) error { return nil })
		w.Wait()
		app.Drain()

		if len(states) != 2 || states[0] != WorkerRunning || states[1] != WorkerSuccess {
			t.Errorf("states = %v, want [running success]", states)
		}
	})

	t.Run("error with ContinueOnError", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Loader"})
		mustMount(t, root, n)
		app.Drain()

		boom := errors.New("fetch failed")
		w := n.RunWorker(func(ctx context.Context) error {
			return boom
		}, ContinueOnError())
		if err := w.Wait(); !errors.Is(err, boom) {
			t.Errorf("Wait = %v, want the worker error", err)
		}
		if w.State() != WorkerError {
			t.Errorf("State = %v, want error", w.State())
		}
	})

	t.Run("cancel", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Loader"})
		mustMount(t, root, n)
		app.Drain()

		started := make(chan struct{})
		w := n.RunWorker(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		})
		<-started
		w.Cancel()
		if err := w.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if w.State() != WorkerCancelled {
			t.Errorf("State = %v, want cancelled", w.State())
		}
	})

	t.Run("unmount cancels owned workers", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Loader"})
		mustMount(t, root, n)
		app.Drain()

		started := make(chan struct{})
		w := n.RunWorker(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		})
		<-started
		root.Unmount(n)
		if err := w.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if w.State() != WorkerCancelled {
			t.Errorf("State = %v, want cancelled", w.State())
		}
	})

	t.Run("state changes after unmount are dropped", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		var states []WorkerState
		spec := (&NodeSpec{Type: "Loader"}).On(MsgWorkerState, func(n *Node, m *Message) {
			states = append(states, m.Payload.(WorkerStateChange).State)
		})
		n := NewNode(spec)
		mustMount(t, root, n)
		app.Drain()

		started := make(chan struct{})
		w := n.RunWorker(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		})
		<-started
		app.Drain()
		if len(states) != 1 || states[0] != WorkerRunning {
			t.Fatalf("states = %v, want [running]", states)
		}

		root.Unmount(n)
		if err := w.Wait(); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		app.Drain()
		if len(states) != 1 {
			t.Errorf("states = %v, a message was delivered after unmount", states)
		}
	})

	t.Run("panic surfaces as an error", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Loader"})
		mustMount(t, root, n)
		app.Drain()

		w := n.RunWorker(func(ctx context.Context) error {
			panic("kaboom")
		}, ContinueOnError())
		if err := w.Wait(); err == nil {
			t.Errorf("Wait = nil, want the recovered panic")
		}
		if w.State() != WorkerError {
			t.Errorf("State = %v, want error", w.State())
		}
	})
}

func TestTimer(t *testing.T) {
	t.Run("one shot fires on the app goroutine", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Clock"})
		mustMount(t, root, n)
		app.Drain()

		fired := 0
		n.SetTimer(5*time.Millisecond, func() { fired++ })
		time.Sleep(40 * time.Millisecond)
		if fired != 0 {
			t.Fatalf("callback ran off the app goroutine")
		}
		app.Drain()
		if fired != 1 {
			t.Errorf("fired %d times, want 1", fired)
		}
	})

	t.Run("interval repeats until stopped", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Clock"})
		mustMount(t, root, n)
		app.Drain()

		fired := 0
		timer := n.SetInterval(5*time.Millisecond, func() { fired++ })
		time.Sleep(40 * time.Millisecond)
		app.Drain()
		if fired < 2 {
			t.Errorf("fired %d times, want at least 2", fired)
		}
		timer.Stop()
		app.Drain()
		settled := fired
		time.Sleep(20 * time.Millisecond)
		app.Drain()
		if fired != settled {
			t.Errorf("timer fired after Stop")
		}
	})

	t.Run("stop before the first tick", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Clock"})
		mustMount(t, root, n)
		app.Drain()

		fired := 0
		timer := n.SetTimer(5*time.Millisecond, func() { fired++ })
		timer.Stop()
		time.Sleep(30 * time.Millisecond)
		app.Drain()
		if fired != 0 {
			t.Errorf("stopped timer fired")
		}
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Clock"})
		mustMount(t, root, n)
		app.Drain()

		timer := n.SetTimer(time.Hour, func() {})
		timer.Stop()
		timer.Stop()
	})
}
