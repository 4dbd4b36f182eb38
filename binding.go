package textual

import (
	"errors"
	"strings"
)

// Binding maps a key (or comma-separated alternatives) to an action
// string. Priority bindings are installed on the input router and fire
// before focus dispatch; ordinary bindings run from the focused node's
// key default handler as the Key message bubbles.
type Binding struct {
	Keys        string
	Action      string
	Description string
	Show        bool
	Priority    bool
}

// Matches reports whether the binding covers a key event, by key name
// ("ctrl+c", "up") or plain rune.
func (b Binding) Matches(ev KeyEvent) bool {
	for _, k := range strings.Split(b.Keys, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if k == ev.Name {
			return true
		}
		if ev.Rune != 0 && k == string(ev.Rune) {
			return true
		}
	}
	return false
}

// handleKeyDefault is the engine default for Key messages: run the
// last matching binding on this node's spec. A successful run stops
// the message; a disabled action swallows the key without running; no
// match lets the message bubble on.
func (n *Node) handleKeyDefault(ev KeyEvent, m *Message) {
	for i := len(n.spec.bindings) - 1; i >= 0; i-- {
		b := n.spec.bindings[i]
		if !b.Matches(ev) {
			continue
		}
		err := n.RunAction(b.Action)
		switch {
		case err == nil:
			m.Stop()
		case errors.Is(err, ErrActionDisabled):
			// Swallowed: the binding exists but refuses to run.
		case errors.Is(err, ErrUnknownAction):
			continue
		}
		return
	}
}

// ActiveBindings collects the shown bindings in effect for a node,
// nearest spec first, deduplicated by key.
func (n *Node) ActiveBindings() []Binding {
	var out []Binding
	seen := make(map[string]bool)
	for t := n; t != nil; t = t.parent {
		for i := len(t.spec.bindings) - 1; i >= 0; i-- {
			b := t.spec.bindings[i]
			if !b.Show || seen[b.Keys] {
				continue
			}
			seen[b.Keys] = true
			out = append(out, b)
		}
	}
	return out
}

// priorityBindings filters a spec's bindings to those that bypass
// focus dispatch.
func priorityBindings(spec *NodeSpec) []Binding {
	var out []Binding
	for _, b := range spec.bindings {
		if b.Priority {
			out = append(out, b)
		}
	}
	return out
}
