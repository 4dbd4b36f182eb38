package textual

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrNoRoot is raised when the tree is queried before a root exists.
var ErrNoRoot = errors.New("tree has no root node")

// DirtyFlag marks which pipeline stage a node needs to re-run.
type DirtyFlag uint8

const (
	DirtyStyle DirtyFlag = 1 << iota
	DirtyLayout
	DirtyPaint
)

var nodeSerial atomic.Uint64

// Node is one element of the UI tree. It owns an ordered child
// sequence, a message queue, reactive attribute state and the computed
// style snapshot produced by the resolver.
type Node struct {
	serial   uint64
	spec     *NodeSpec
	id       string
	classes  []string
	classSet map[string]struct{}

	parent   *Node
	children []*Node
	app      *App
	mounted  bool

	computed  ComputedStyle
	overrides []Declaration // synthetic per-node rule, maximal specificity
	states    PseudoState
	dirty     DirtyFlag

	// Layout results. flowRegion is the strategy placement; region adds
	// the node's relative offset. Region() reports the post-offset value.
	flowRegion Region
	region     Region

	// Scrollable content state.
	virtualWidth  int
	virtualHeight int
	scrollX       int
	scrollY       int

	content any // ContentRenderer or LineRenderer

	queue *pump
	attrs map[string]*attrState

	// Bindings from other nodes' attributes into ours, unlinked on
	// unmount so sources stop pushing to a dead node.
	incomingBinds []*attrBinding

	workers []*Worker
	timers  []*Timer
}

// NodeOption configures a node at construction.
type NodeOption func(*Node)

// WithID assigns the node's selector id (matched by "#id").
func WithID(id string) NodeOption {
	return func(n *Node) { n.id = id }
}

// WithClasses adds class tags at construction.
func WithClasses(classes ...string) NodeOption {
	return func(n *Node) {
		for _, c := range classes {
			n.addClass(c)
		}
	}
}

// WithContent sets the node's content renderer. The value must
// implement ContentRenderer or LineRenderer.
func WithContent(content any) NodeOption {
	return func(n *Node) { n.content = content }
}

// NewNode creates an unmounted node from a spec.
func NewNode(spec *NodeSpec, opts ...NodeOption) *Node {
	if spec == nil {
		spec = baseSpec
	}
	spec.build()
	n := &Node{
		serial:   nodeSerial.Add(1),
		spec:     spec,
		classSet: make(map[string]struct{}),
		computed: defaultComputedStyle(),
	}
	n.queue = newPump(n)
	n.initAttrs()
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// TypeName returns the node's type name (matched by selector type).
func (n *Node) TypeName() string { return n.spec.Type }

// ID returns the node's selector id.
func (n *Node) ID() string { return n.id }

// Serial returns the node's process-unique numeric identity.
func (n *Node) Serial() uint64 { return n.serial }

// Parent returns the parent node, nil for the root or unmounted nodes.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in order. The slice is shared;
// callers must not mutate it.
func (n *Node) Children() []*Node { return n.children }

// App returns the application context the node was mounted under.
func (n *Node) App() *App { return n.app }

// Mounted reports whether the node is attached to a tree.
func (n *Node) Mounted() bool { return n.mounted }

// Classes returns the ordered class list.
func (n *Node) Classes() []string { return n.classes }

// HasClass reports whether the node carries the class tag.
func (n *Node) HasClass(class string) bool {
	_, ok := n.classSet[class]
	return ok
}

func (n *Node) addClass(class string) bool {
	if _, ok := n.classSet[class]; ok {
		return false
	}
	n.classSet[class] = struct{}{}
	n.classes = append(n.classes, class)
	return true
}

// AddClass adds a class tag and schedules a style refresh.
func (n *Node) AddClass(class string) {
	if n.addClass(class) {
		n.invalidateStyle()
	}
}

// RemoveClass removes a class tag and schedules a style refresh.
func (n *Node) RemoveClass(class string) {
	if _, ok := n.classSet[class]; !ok {
		return
	}
	delete(n.classSet, class)
	for i, c := range n.classes {
		if c == class {
			n.classes = append(n.classes[:i], n.classes[i+1:]...)
			break
		}
	}
	n.invalidateStyle()
}

// ToggleClass adds the class if absent, removes it if present.
func (n *Node) ToggleClass(class string) {
	if n.HasClass(class) {
		n.RemoveClass(class)
	} else {
		n.AddClass(class)
	}
}

// States returns the node's active pseudo-states.
func (n *Node) States() PseudoState { return n.states }

// SetState switches a pseudo-state (hover/focus/disabled) and triggers
// re-resolution scoped to this node's subtree, not the whole tree.
func (n *Node) SetState(state PseudoState, on bool) {
	prev := n.states
	if on {
		n.states |= state
	} else {
		n.states &^= state
	}
	if n.states != prev {
		n.invalidateStyle()
	}
}

// invalidateStyle marks this node's subtree for re-resolution.
func (n *Node) invalidateStyle() {
	n.walk(func(d *Node) {
		d.dirty |= DirtyStyle
	})
	if n.app != nil {
		n.app.scheduleStyle(n)
	}
}

// walk visits the node and every descendant depth-first.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

// ComputedStyle returns the last resolved style snapshot.
func (n *Node) ComputedStyle() ComputedStyle { return n.computed }

// SetStyle applies a direct style write. It becomes a synthetic
// override rule with maximal specificity scoped to this node; the
// computed style itself is never mutated directly.
func (n *Node) SetStyle(property, value string) error {
	if _, ok := properties[property]; !ok {
		return fmt.Errorf("unknown property %q", property)
	}
	for i := range n.overrides {
		if n.overrides[i].Property == property {
			n.overrides[i].RawValue = value
			n.invalidateStyle()
			return nil
		}
	}
	n.overrides = append(n.overrides, Declaration{Property: property, RawValue: value})
	n.invalidateStyle()
	return nil
}

// ClearStyle removes a previous direct style write.
func (n *Node) ClearStyle(property string) {
	for i := range n.overrides {
		if n.overrides[i].Property == property {
			n.overrides = append(n.overrides[:i], n.overrides[i+1:]...)
			n.invalidateStyle()
			return
		}
	}
}

// Region returns the node's placement including its relative offset.
// Use FlowRegion for the pre-offset placement.
func (n *Node) Region() Region { return n.region }

// FlowRegion returns the placement computed by the layout strategy
// before the node's relative offset is applied.
func (n *Node) FlowRegion() Region { return n.flowRegion }

// SetVirtualSize declares scrollable content larger than the visible
// region.
func (n *Node) SetVirtualSize(width, height int) {
	n.virtualWidth = width
	n.virtualHeight = height
	n.clampScroll()
	n.dirty |= DirtyPaint
	if n.app != nil {
		n.app.scheduleRefresh(n)
	}
}

// VirtualSize returns the declared scrollable content size.
func (n *Node) VirtualSize() (width, height int) {
	return n.virtualWidth, n.virtualHeight
}

// ScrollOffset returns the current scroll position.
func (n *Node) ScrollOffset() (x, y int) { return n.scrollX, n.scrollY }

// ScrollTo sets the scroll offset, clamped to the virtual size.
func (n *Node) ScrollTo(x, y int) {
	n.scrollX, n.scrollY = x, y
	n.clampScroll()
	n.dirty |= DirtyPaint
	if n.app != nil {
		n.app.scheduleRefresh(n)
	}
}

// ScrollBy adjusts the scroll offset relatively.
func (n *Node) ScrollBy(dx, dy int) {
	n.ScrollTo(n.scrollX+dx, n.scrollY+dy)
}

func (n *Node) clampScroll() {
	maxX := n.virtualWidth - n.region.Width
	maxY := n.virtualHeight - n.region.Height
	if n.scrollX > maxX {
		n.scrollX = maxX
	}
	if n.scrollY > maxY {
		n.scrollY = maxY
	}
	if n.scrollX < 0 {
		n.scrollX = 0
	}
	if n.scrollY < 0 {
		n.scrollY = 0
	}
}

// Content returns the node's content renderer.
func (n *Node) Content() any { return n.content }

// SetContent replaces the node's content renderer and schedules a
// repaint.
func (n *Node) SetContent(content any) {
	n.content = content
	n.dirty |= DirtyPaint
	if n.app != nil {
		n.app.scheduleRefresh(n)
	}
}

// MountHandle is returned by Mount. Callers that need the post-mount
// guarantee wait on Done; without waiting, completion is only
// guaranteed by the time the next message on the child's queue runs.
type MountHandle struct {
	Node *Node
	done chan struct{}
	once sync.Once
}

func (h *MountHandle) complete() {
	h.once.Do(func() { close(h.done) })
}

// Done returns a channel closed once the mount message has been
// processed on the child's queue.
func (h *MountHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until mounting completes.
func (h *MountHandle) Wait() { <-h.done }

// MountOption adjusts insertion position.
type MountOption func(*mountConfig)

type mountConfig struct {
	before *Node
	after  *Node
}

// MountBefore inserts the child before the given sibling.
func MountBefore(sibling *Node) MountOption {
	return func(c *mountConfig) { c.before = sibling }
}

// MountAfter inserts the child after the given sibling.
func MountAfter(sibling *Node) MountOption {
	return func(c *mountConfig) { c.after = sibling }
}

// Mount attaches child under n, computes its style, registers its
// message queue and enqueues the Mount message. Child order is stable:
// without options the child is appended.
func (n *Node) Mount(child *Node, opts ...MountOption) (*MountHandle, error) {
	if child == nil {
		return nil, errors.New("cannot mount nil node")
	}
	if child.mounted {
		return nil, fmt.Errorf("node %s#%d is already mounted", child.TypeName(), child.serial)
	}
	if n.app == nil {
		return nil, errors.New("cannot mount under an unmounted node")
	}

	var cfg mountConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	idx := len(n.children)
	switch {
	case cfg.before != nil:
		idx = n.childIndex(cfg.before)
		if idx < 0 {
			return nil, errors.New("mount before: not a child of this node")
		}
	case cfg.after != nil:
		idx = n.childIndex(cfg.after)
		if idx < 0 {
			return nil, errors.New("mount after: not a child of this node")
		}
		idx++
	}

	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child

	child.attachTo(n.app, n)

	handle := &MountHandle{Node: child, done: make(chan struct{})}
	child.PostMessage(newMountMessage(handle))
	n.dirty |= DirtyLayout
	n.app.scheduleLayout(n)
	return handle, nil
}

// attachTo wires the subtree to the app context.
func (n *Node) attachTo(app *App, parent *Node) {
	n.parent = parent
	n.walk(func(d *Node) {
		d.app = app
		d.mounted = true
		d.dirty |= DirtyStyle | DirtyLayout | DirtyPaint
		app.registerPump(d.queue)
		if d.spec.compose != nil && len(d.children) == 0 {
			app.scheduleRecompose(d)
		}
	})
}

func (n *Node) childIndex(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// Unmount removes the subtree rooted at child. Children unmount first,
// pending messages are drained, watchers detach and owned workers and
// timers are cancelled. Unmounting an already-unmounted subtree is a
// no-op.
func (n *Node) Unmount(child *Node) {
	if child == nil || !child.mounted {
		return
	}
	if idx := n.childIndex(child); idx >= 0 {
		n.children = append(n.children[:idx], n.children[idx+1:]...)
	}
	if n.app != nil {
		n.app.compositor.Invalidate(child.region)
	}
	child.teardown()
	n.dirty |= DirtyLayout
	if n.app != nil {
		n.app.scheduleLayout(n)
	}
}

// teardown releases the subtree bottom-up.
func (n *Node) teardown() {
	for len(n.children) > 0 {
		last := n.children[len(n.children)-1]
		n.children = n.children[:len(n.children)-1]
		last.teardown()
	}
	for _, w := range n.workers {
		w.Cancel()
	}
	n.workers = nil
	for _, t := range n.timers {
		t.Stop()
	}
	n.timers = nil
	n.detachWatchers()
	if n.app != nil {
		if n.app.focused == n {
			n.app.focused = nil
		}
		n.app.unregisterPump(n.queue)
	}
	n.queue.drain()
	n.parent = nil
	n.app = nil
	n.mounted = false
}

// PostMessage enqueues a message on this node's FIFO queue.
func (n *Node) PostMessage(m *Message) {
	n.queue.post(m)
	if n.app != nil {
		n.app.wakePump(n.queue)
	}
}

// NodeList is an ordered query result.
type NodeList struct {
	nodes []*Node
}

// Nodes returns the matched nodes in tree order.
func (l *NodeList) Nodes() []*Node { return l.nodes }

// Len returns the number of matches.
func (l *NodeList) Len() int { return len(l.nodes) }

// First returns the first match, nil if empty.
func (l *NodeList) First() *Node {
	if len(l.nodes) == 0 {
		return nil
	}
	return l.nodes[0]
}

// Last returns the last match, nil if empty.
func (l *NodeList) Last() *Node {
	if len(l.nodes) == 0 {
		return nil
	}
	return l.nodes[len(l.nodes)-1]
}

// Filter narrows the list to nodes also matching the selector.
func (l *NodeList) Filter(selector string) (*NodeList, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	out := &NodeList{}
	for _, n := range l.nodes {
		if sel.Matches(n) {
			out.nodes = append(out.nodes, n)
		}
	}
	return out, nil
}

// Exclude removes nodes matching the selector.
func (l *NodeList) Exclude(selector string) (*NodeList, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	out := &NodeList{}
	for _, n := range l.nodes {
		if !sel.Matches(n) {
			out.nodes = append(out.nodes, n)
		}
	}
	return out, nil
}

// Query returns all descendants of n matching the selector, in tree
// order. The receiver itself is not a candidate.
func (n *Node) Query(selector string) (*NodeList, error) {
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	out := &NodeList{}
	for _, c := range n.children {
		c.walk(func(d *Node) {
			if sel.Matches(d) {
				out.nodes = append(out.nodes, d)
			}
		})
	}
	return out, nil
}

// QueryFirst returns the first descendant matching the selector.
func (n *Node) QueryFirst(selector string) (*Node, error) {
	list, err := n.Query(selector)
	if err != nil {
		return nil, err
	}
	return list.First(), nil
}

// QueryLast returns the last descendant matching the selector.
func (n *Node) QueryLast(selector string) (*Node, error) {
	list, err := n.Query(selector)
	if err != nil {
		return nil, err
	}
	return list.Last(), nil
}
