package textual

import (
	"strings"
	"unicode"
)

// MessageType identifies a kind of message by namespace and name, e.g.
// {"input", "key"} or {"worker", "state_changed"}.
type MessageType struct {
	Namespace string
	Name      string
}

func (t MessageType) String() string { return t.Namespace + "." + t.Name }

// Message types posted by the engine itself.
var (
	MsgMount        = MessageType{"node", "mount"}
	MsgUnmount      = MessageType{"node", "unmount"}
	MsgFocus        = MessageType{"node", "focus"}
	MsgBlur         = MessageType{"node", "blur"}
	MsgKey          = MessageType{"input", "key"}
	MsgTimer        = MessageType{"time", "timer"}
	MsgWorkerState  = MessageType{"worker", "state_changed"}
	MsgAttrMutation = MessageType{"attr", "changed"}
)

// Message is the envelope delivered through node pumps. A message
// bubbles toward the root by default; handlers call Stop to halt
// bubbling or PreventDefault to suppress the engine's default handling
// while letting the message continue upward.
type Message struct {
	Type    MessageType
	Payload any
	Sender  *Node

	bubble    bool
	stopped   bool
	noDefault bool
	handled   bool
}

// NewMessage builds a bubbling message.
func NewMessage(t MessageType, payload any) *Message {
	return &Message{Type: t, Payload: payload, bubble: true}
}

// NoBubble marks the message as point-to-point and returns it.
func (m *Message) NoBubble() *Message {
	m.bubble = false
	return m
}

// Stop halts bubbling after the current node finishes with the message.
func (m *Message) Stop() { m.stopped = true }

// PreventDefault suppresses the engine's default handling for this
// message. Bubbling is unaffected.
func (m *Message) PreventDefault() { m.noDefault = true }

// Stopped reports whether Stop has been called.
func (m *Message) Stopped() bool { return m.stopped }

// DefaultPrevented reports whether PreventDefault has been called.
func (m *Message) DefaultPrevented() bool { return m.noDefault }

// Handled reports whether any node handler ran for this message.
func (m *Message) Handled() bool { return m.handled }

// HandlerName derives the registration key for a message type:
// on_<namespace>_<name>, both parts snake-cased.
func HandlerName(t MessageType) string {
	return "on_" + snakeCase(t.Namespace) + "_" + snakeCase(t.Name)
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MountHandle payload carried by MsgMount; the default handler closes
// the handle once the mount message has been processed.
func newMountMessage(h *MountHandle) *Message {
	return &Message{Type: MsgMount, Payload: h}
}

// KeyEvent is the payload of MsgKey messages for keys no binding or
// router claimed.
type KeyEvent struct {
	Rune rune
	Name string
}
