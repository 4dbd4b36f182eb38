package textual

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// pump is a node's FIFO message queue. Posting is safe from any
// goroutine; dispatch happens only on the app goroutine, so per-node
// ordering is strict while nothing is promised across nodes.
type pump struct {
	mu    sync.Mutex
	node  *Node
	queue []*Message
}

func newPump(n *Node) *pump { return &pump{node: n} }

func (p *pump) post(m *Message) {
	p.mu.Lock()
	p.queue = append(p.queue, m)
	p.mu.Unlock()
}

func (p *pump) take() *Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	m := p.queue[0]
	p.queue = p.queue[1:]
	return m
}

func (p *pump) pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) > 0
}

func (p *pump) drain() {
	p.mu.Lock()
	p.queue = nil
	p.mu.Unlock()
}

// step delivers at most one queued message and reports whether it did.
func (p *pump) step() bool {
	m := p.take()
	if m == nil {
		return false
	}
	p.node.deliver(m)
	return true
}

// deliver runs a message through the node: registered handler first,
// then the engine default unless prevented, then bubbling unless
// stopped. A panicking handler takes the whole app down with a
// traceback rather than corrupting state silently.
func (n *Node) deliver(m *Message) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic handling %s on %s: %v", m.Type, n.TypeName(), r)
			if n.app != nil {
				n.app.fatal(err, debug.Stack())
				return
			}
			panic(r)
		}
	}()

	if n.spec != nil {
		if h, ok := n.spec.handlers[HandlerName(m.Type)]; ok {
			m.handled = true
			h(n, m)
		}
	}
	if !m.noDefault {
		defaultHandle(n, m)
	}
	if m.bubble && !m.stopped && n.parent != nil {
		n.parent.PostMessage(m)
	}
}

// defaultHandle is the engine's built-in behaviour per message type.
func defaultHandle(n *Node, m *Message) {
	switch m.Type {
	case MsgMount:
		if h, ok := m.Payload.(*MountHandle); ok {
			h.complete()
		}
	case MsgKey:
		if ev, ok := m.Payload.(KeyEvent); ok {
			n.handleKeyDefault(ev, m)
		}
	case MsgTimer:
		if fn, ok := m.Payload.(func()); ok {
			fn()
		}
	case MsgFocus:
		n.SetState(StateFocus, true)
	case MsgBlur:
		n.SetState(StateFocus, false)
	}
}
