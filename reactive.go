package textual

import (
	"fmt"
	"reflect"
)

// AttrSpec declares one reactive attribute of a node type. Compute
// attributes derive their value from others named in DependsOn;
// setting them directly is an error.
type AttrSpec struct {
	Name string

	Default     any
	DefaultFunc func(n *Node) any

	// Validate may coerce or reject an incoming value before it is
	// stored. Errors return synchronously from Set.
	Validate func(n *Node, value any) (any, error)

	// Compute derives the value whenever a dependency changes.
	Compute   func(n *Node) any
	DependsOn []string

	// Watch is called after a change with old and new values; WatchNew
	// is the single-argument form. At most one fires per change.
	Watch    func(n *Node, old, new any)
	WatchNew func(n *Node, new any)

	// Effect to schedule on change, strongest wins when several
	// attributes change in one turn: Refresh < Layout < Recompose.
	Refresh   bool
	Layout    bool
	Recompose bool

	// AlwaysUpdate runs the full pipeline even when the stored value
	// compares equal to the incoming one.
	AlwaysUpdate bool
}

// attrState is the per-node storage behind one attribute.
type attrState struct {
	spec     *AttrSpec
	value    any
	outgoing []*attrBinding
}

// attrBinding forwards changes of one node's attribute into another's,
// one direction only. The forwarded value passes through the target's
// own validate and watch.
type attrBinding struct {
	src     *Node
	srcAttr string
	dst     *Node
	dstAttr string
}

// initAttrs seeds attribute storage from the spec: defaults first,
// then computed attributes in dependency order.
func (n *Node) initAttrs() {
	if len(n.spec.attrs) == 0 {
		return
	}
	n.attrs = make(map[string]*attrState, len(n.spec.attrs))
	for i := range n.spec.attrs {
		spec := &n.spec.attrs[i]
		st := &attrState{spec: spec, value: spec.Default}
		if spec.DefaultFunc != nil {
			st.value = spec.DefaultFunc(n)
		}
		n.attrs[spec.Name] = st
	}
	for _, i := range n.spec.attrOrder {
		spec := &n.spec.attrs[i]
		if spec.Compute != nil {
			n.attrs[spec.Name].value = spec.Compute(n)
		}
	}
}

// GetAttr returns an attribute's current value, nil if undeclared.
func (n *Node) GetAttr(name string) any {
	if st, ok := n.attrs[name]; ok {
		return st.value
	}
	return nil
}

// SetAttr runs the full reactive pipeline: validate, store, skip if
// unchanged, recompute dependents, fire watchers, schedule the
// strongest declared effect and push outgoing bindings.
func (n *Node) SetAttr(name string, value any) error {
	st, ok := n.attrs[name]
	if !ok {
		return fmt.Errorf("node %s has no attribute %q", n.TypeName(), name)
	}
	if st.spec.Compute != nil {
		return fmt.Errorf("attribute %q is computed and cannot be set", name)
	}
	if st.spec.Validate != nil {
		v, err := st.spec.Validate(n, value)
		if err != nil {
			return err
		}
		value = v
	}
	old := st.value
	if !st.spec.AlwaysUpdate && attrEqual(old, value) {
		return nil
	}
	st.value = value
	n.afterAttrChange(name, old, value)
	return nil
}

// SetAttrSilent stores a value with none of the pipeline: no validate,
// no watch, no recompute, no scheduling.
func (n *Node) SetAttrSilent(name string, value any) error {
	st, ok := n.attrs[name]
	if !ok {
		return fmt.Errorf("node %s has no attribute %q", n.TypeName(), name)
	}
	st.value = value
	return nil
}

// MarkMutated re-enters the pipeline for an attribute whose value was
// mutated in place, where assignment-based change detection cannot
// see the difference.
func (n *Node) MarkMutated(name string) {
	if st, ok := n.attrs[name]; ok {
		n.afterAttrChange(name, st.value, st.value)
	}
}

// afterAttrChange is the post-store half of the pipeline, shared by
// Set, MarkMutated and recomputation.
func (n *Node) afterAttrChange(name string, old, value any) {
	n.recomputeDependents(name)

	st := n.attrs[name]
	switch {
	case st.spec.Watch != nil:
		st.spec.Watch(n, old, value)
	case st.spec.WatchNew != nil:
		st.spec.WatchNew(n, value)
	}

	n.scheduleAttrEffect(st.spec)

	for _, b := range st.outgoing {
		_ = b.dst.SetAttr(b.dstAttr, value)
	}
}

// recomputeDependents re-evaluates computed attributes downstream of
// one change, in topological order, firing their own watchers when
// the derived value actually moved.
func (n *Node) recomputeDependents(changed string) {
	affected := map[string]bool{changed: true}
	for _, i := range n.spec.attrOrder {
		spec := &n.spec.attrs[i]
		if spec.Compute == nil {
			continue
		}
		touched := false
		for _, dep := range spec.DependsOn {
			if affected[dep] {
				touched = true
				break
			}
		}
		if !touched {
			continue
		}
		st := n.attrs[spec.Name]
		old := st.value
		st.value = spec.Compute(n)
		if attrEqual(old, st.value) && !spec.AlwaysUpdate {
			continue
		}
		affected[spec.Name] = true
		switch {
		case spec.Watch != nil:
			spec.Watch(n, old, st.value)
		case spec.WatchNew != nil:
			spec.WatchNew(n, st.value)
		}
		n.scheduleAttrEffect(spec)
	}
}

// scheduleAttrEffect marks the node dirty and asks the app for the
// strongest effect the attribute declares. An unmounted node only
// collects dirty flags.
func (n *Node) scheduleAttrEffect(spec *AttrSpec) {
	switch {
	case spec.Recompose:
		n.dirty |= DirtyLayout | DirtyPaint
		if n.app != nil {
			n.app.scheduleRecompose(n)
		}
	case spec.Layout:
		n.dirty |= DirtyLayout | DirtyPaint
		if n.app != nil {
			n.app.scheduleLayout(n)
		}
	case spec.Refresh:
		n.dirty |= DirtyPaint
		if n.app != nil {
			n.app.scheduleRefresh(n)
		}
	}
}

// BindAttr forwards changes of n's attribute into target's attribute.
// The target receives the source's current value immediately. The link
// is removed when the target unmounts.
func (n *Node) BindAttr(attr string, target *Node, targetAttr string) error {
	st, ok := n.attrs[attr]
	if !ok {
		return fmt.Errorf("node %s has no attribute %q", n.TypeName(), attr)
	}
	if _, ok := target.attrs[targetAttr]; !ok {
		return fmt.Errorf("node %s has no attribute %q", target.TypeName(), targetAttr)
	}
	b := &attrBinding{src: n, srcAttr: attr, dst: target, dstAttr: targetAttr}
	st.outgoing = append(st.outgoing, b)
	target.incomingBinds = append(target.incomingBinds, b)
	return target.SetAttr(targetAttr, st.value)
}

// detachWatchers unlinks every binding targeting this node.
func (n *Node) detachWatchers() {
	for _, b := range n.incomingBinds {
		if st, ok := b.src.attrs[b.srcAttr]; ok {
			for i, o := range st.outgoing {
				if o == b {
					st.outgoing = append(st.outgoing[:i], st.outgoing[i+1:]...)
					break
				}
			}
		}
	}
	n.incomingBinds = nil
}

func attrEqual(a, b any) bool { return reflect.DeepEqual(a, b) }
