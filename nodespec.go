package textual

import (
	"fmt"
	"sync"
)

// Handler processes one message delivered to a node.
type Handler func(n *Node, m *Message)

// ActionFunc runs a named action with its parsed literal arguments.
type ActionFunc func(n *Node, args []any) error

// NodeSpec declares a node type: selector type name, bundled CSS,
// reactive attributes, message handlers, actions and key bindings.
// A spec is built once on first use and shared by every node of the
// type. Extends merges a parent spec underneath: the child wins where
// names collide.
type NodeSpec struct {
	Type     string
	CSS      string
	Extends  *NodeSpec
	Attrs    []AttrSpec
	Handlers map[string]Handler
	Actions  map[string]ActionFunc
	Bindings []Binding

	// Compose rebuilds the node's children when a recompose-class
	// attribute changes.
	Compose func(n *Node) []*Node

	// CheckAction gates action dispatch and palette visibility.
	CheckAction func(n *Node, name string, args []any) ActionState

	// CanFocus marks nodes of the type as focusable for Tab cycling.
	CanFocus bool

	buildOnce sync.Once
	handlers  map[string]Handler
	actions   map[string]ActionFunc
	bindings  []Binding
	attrs     []AttrSpec
	attrOrder []int // topological, indexes into attrs
	css       string
	compose   func(n *Node) []*Node
	check     func(n *Node, name string, args []any) ActionState
	canFocus  bool
}

var baseSpec = &NodeSpec{Type: "Node"}

// On registers a handler for a message type. Must be called before the
// first node of the type is created.
func (s *NodeSpec) On(t MessageType, h Handler) *NodeSpec {
	if s.Handlers == nil {
		s.Handlers = make(map[string]Handler)
	}
	s.Handlers[HandlerName(t)] = h
	return s
}

// OnAction registers a named action implementation.
func (s *NodeSpec) OnAction(name string, fn ActionFunc) *NodeSpec {
	if s.Actions == nil {
		s.Actions = make(map[string]ActionFunc)
	}
	s.Actions[name] = fn
	return s
}

// Bind adds a key binding.
func (s *NodeSpec) Bind(keys, action, description string) *NodeSpec {
	s.Bindings = append(s.Bindings, Binding{Keys: keys, Action: action, Description: description, Show: true})
	return s
}

// BindPriority adds a key binding that fires before focus dispatch
// whenever any node of this spec is mounted.
func (s *NodeSpec) BindPriority(keys, action, description string) *NodeSpec {
	s.Bindings = append(s.Bindings, Binding{Keys: keys, Action: action, Description: description, Show: true, Priority: true})
	return s
}

// build flattens the extends chain and orders computed attributes.
// An attribute dependency cycle is a programming error and panics.
func (s *NodeSpec) build() {
	s.buildOnce.Do(func() {
		chain := []*NodeSpec{}
		for p := s; p != nil; p = p.Extends {
			chain = append([]*NodeSpec{p}, chain...)
		}

		s.handlers = make(map[string]Handler)
		s.actions = make(map[string]ActionFunc)
		attrByName := make(map[string]int)

		for _, p := range chain {
			if p.CSS != "" {
				s.css += p.CSS + "\n"
			}
			for k, h := range p.Handlers {
				s.handlers[k] = h
			}
			for k, fn := range p.Actions {
				s.actions[k] = fn
			}
			s.bindings = append(s.bindings, p.Bindings...)
			for _, a := range p.Attrs {
				if i, ok := attrByName[a.Name]; ok {
					s.attrs[i] = a
					continue
				}
				attrByName[a.Name] = len(s.attrs)
				s.attrs = append(s.attrs, a)
			}
			if p.Compose != nil {
				s.compose = p.Compose
			}
			if p.CheckAction != nil {
				s.check = p.CheckAction
			}
			if p.CanFocus {
				s.canFocus = true
			}
		}

		order, err := topoSortAttrs(s.attrs, attrByName)
		if err != nil {
			panic(fmt.Sprintf("spec %q: %v", s.Type, err))
		}
		s.attrOrder = order
	})
}

// topoSortAttrs orders attribute indexes so every attribute follows
// its declared dependencies, breaking ties by declaration order.
func topoSortAttrs(attrs []AttrSpec, byName map[string]int) ([]int, error) {
	indeg := make([]int, len(attrs))
	dependents := make([][]int, len(attrs))
	for i, a := range attrs {
		for _, dep := range a.DependsOn {
			d, ok := byName[dep]
			if !ok {
				return nil, fmt.Errorf("attribute %q depends on unknown attribute %q", a.Name, dep)
			}
			dependents[d] = append(dependents[d], i)
			indeg[i]++
		}
	}

	order := make([]int, 0, len(attrs))
	for len(order) < len(attrs) {
		next := -1
		for i := range attrs {
			if indeg[i] == 0 {
				indeg[i] = -1
				next = i
				break
			}
		}
		if next == -1 {
			return nil, fmt.Errorf("attribute dependency cycle")
		}
		order = append(order, next)
		for _, d := range dependents[next] {
			indeg[d]--
		}
	}
	return order, nil
}
