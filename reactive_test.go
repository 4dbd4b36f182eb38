package textual

import (
	"errors"
	"testing"
)

func TestReactiveAttrs(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		spec := &NodeSpec{Type: "Counter", Attrs: []AttrSpec{
			{Name: "count", Default: 0},
			{Name: "label", DefaultFunc: func(n *Node) any { return n.TypeName() }},
		}}
		n := NewNode(spec)
		if got := n.GetAttr("count"); got != 0 {
			t.Errorf("count = %v, want 0", got)
		}
		if got := n.GetAttr("label"); got != "Counter" {
			t.Errorf("label = %v, want Counter", got)
		}
		if got := n.GetAttr("missing"); got != nil {
			t.Errorf("undeclared attribute = %v, want nil", got)
		}
	})

	t.Run("set runs watch once", func(t *testing.T) {
		var calls []string
		spec := &NodeSpec{Type: "Counter", Attrs: []AttrSpec{
			{
				Name: "count", Default: 0,
				Watch: func(n *Node, old, new any) {
					calls = append(calls, "watch")
					if old != 0 || new != 5 {
						t.Errorf("watch args = %v, %v, want 0, 5", old, new)
					}
				},
				WatchNew: func(n *Node, new any) {
					calls = append(calls, "watchnew")
				},
			},
		}}
		n := NewNode(spec)
		if err := n.SetAttr("count", 5); err != nil {
			t.Fatalf("SetAttr: %v", err)
		}
		if len(calls) != 1 || calls[0] != "watch" {
			t.Errorf("calls = %v, want exactly one Watch", calls)
		}
	})

	t.Run("equal value short-circuits", func(t *testing.T) {
		watched := 0
		spec := &NodeSpec{Type: "Counter", Attrs: []AttrSpec{
			{Name: "count", Default: 7, WatchNew: func(n *Node, new any) { watched++ }},
		}}
		n := NewNode(spec)
		if err := n.SetAttr("count", 7); err != nil {
			t.Fatalf("SetAttr: %v", err)
		}
		if watched != 0 {
			t.Errorf("watch fired %d times for an unchanged value", watched)
		}
	})

	t.Run("always update bypasses the short-circuit", func(t *testing.T) {
		watched := 0
		spec := &NodeSpec{Type: "Counter", Attrs: []AttrSpec{
			{Name: "count", Default: 7, AlwaysUpdate: true, WatchNew: func(n *Node, new any) { watched++ }},
		}}
		n := NewNode(spec)
		n.SetAttr("count", 7)
		n.SetAttr("count", 7)
		if watched != 2 {
			t.Errorf("watch fired %d times, want 2", watched)
		}
	})

	t.Run("validate coerces and rejects", func(t *testing.T) {
		errNegative := errors.New("count cannot be negative")
		spec := &NodeSpec{Type: "Counter", Attrs: []AttrSpec{
			{
				Name: "count", Default: 0,
				Validate: func(n *Node, v any) (any, error) {
					c := v.(int)
					if c < 0 {
						return nil, errNegative
					}
					if c > 10 {
						c = 10
					}
					return c, nil
				},
			},
		}}
		n := NewNode(spec)
		if err := n.SetAttr("count", -1); !errors.Is(err, errNegative) {
			t.Errorf("SetAttr(-1) = %v, want the validation error", err)
		}
		if got := n.GetAttr("count"); got != 0 {
			t.Errorf("rejected set altered the value: %v", got)
		}
		if err := n.SetAttr("count", 99); err != nil {
			t.Fatalf("SetAttr: %v", err)
		}
		if got := n.GetAttr("count"); got != 10 {
			t.Errorf("count = %v, want clamped to 10", got)
		}
	})

	t.Run("silent set skips the pipeline", func(t *testing.T) {
		watched := 0
		spec := &NodeSpec{Type: "Counter", Attrs: []AttrSpec{
			{Name: "count", Default: 0, WatchNew: func(n *Node, new any) { watched++ }},
		}}
		n := NewNode(spec)
		if err := n.SetAttrSilent("count", 42); err != nil {
			t.Fatalf("SetAttrSilent: %v", err)
		}
		if watched != 0 {
			t.Errorf("silent set fired a watcher")
		}
		if got := n.GetAttr("count"); got != 42 {
			t.Errorf("count = %v, want 42", got)
		}
	})

	t.Run("mark mutated re-enters the pipeline", func(t *testing.T) {
		watched := 0
		spec := &NodeSpec{Type: "List", Attrs: []AttrSpec{
			{Name: "items", Default: []string{}, WatchNew: func(n *Node, new any) { watched++ }},
		}}
		n := NewNode(spec)
		items := n.GetAttr("items").([]string)
		_ = append(items, "x")
		n.MarkMutated("items")
		if watched != 1 {
			t.Errorf("watch fired %d times, want 1", watched)
		}
	})
}

func TestComputedAttrs(t *testing.T) {
	t.Run("recompute in dependency order", func(t *testing.T) {
		// Declared out of order on purpose; the dependency graph decides.
		spec := &NodeSpec{Type: "Calc", Attrs: []AttrSpec{
			{
				Name:      "total",
				DependsOn: []string{"doubled"},
				Compute: func(n *Node) any {
					return n.GetAttr("doubled").(int) + 1
				},
			},
			{
				Name:      "doubled",
				DependsOn: []string{"base"},
				Compute: func(n *Node) any {
					return n.GetAttr("base").(int) * 2
				},
			},
			{Name: "base", Default: 2},
		}}
		n := NewNode(spec)
		if got := n.GetAttr("total"); got != 5 {
			t.Errorf("initial total = %v, want 5", got)
		}
		if err := n.SetAttr("base", 10); err != nil {
			t.Fatalf("SetAttr: %v", err)
		}
		if got := n.GetAttr("doubled"); got != 20 {
			t.Errorf("doubled = %v, want 20", got)
		}
		if got := n.GetAttr("total"); got != 21 {
			t.Errorf("total = %v, want 21", got)
		}
	})

	t.Run("cannot set a computed attribute", func(t *testing.T) {
		spec := &NodeSpec{Type: "Calc", Attrs: []AttrSpec{
			{Name: "base", Default: 1},
			{Name: "doubled", DependsOn: []string{"base"}, Compute: func(n *Node) any {
				return n.GetAttr("base").(int) * 2
			}},
		}}
		n := NewNode(spec)
		if err := n.SetAttr("doubled", 99); err == nil {
			t.Errorf("setting a computed attribute should fail")
		}
	})

	t.Run("dependent watch fires only on real movement", func(t *testing.T) {
		watched := 0
		spec := &NodeSpec{Type: "Calc", Attrs: []AttrSpec{
			{Name: "base", Default: 3},
			{
				Name:      "sign",
				DependsOn: []string{"base"},
				Compute: func(n *Node) any {
					return n.GetAttr("base").(int) >= 0
				},
				WatchNew: func(n *Node, new any) { watched++ },
			},
		}}
		n := NewNode(spec)
		n.SetAttr("base", 7) // sign stays true
		if watched != 0 {
			t.Errorf("watch fired for an unchanged derived value")
		}
		n.SetAttr("base", -7)
		if watched != 1 {
			t.Errorf("watch fired %d times, want 1", watched)
		}
	})

	t.Run("cyclic dependencies panic at build", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Errorf("expected a panic for a dependency cycle")
			}
		}()
		spec := &NodeSpec{Type: "Calc", Attrs: []AttrSpec{
			{Name: "a", DependsOn: []string{"b"}, Compute: func(n *Node) any { return 0 }},
			{Name: "b", DependsOn: []string{"a"}, Compute: func(n *Node) any { return 0 }},
		}}
		NewNode(spec)
	})
}

func TestBindAttr(t *testing.T) {
	counterSpec := func() *NodeSpec {
		return &NodeSpec{Type: "Counter", Attrs: []AttrSpec{{Name: "count", Default: 0}}}
	}

	t.Run("pushes immediately and on change", func(t *testing.T) {
		src := NewNode(counterSpec())
		dst := NewNode(counterSpec())
		src.SetAttr("count", 3)
		if err := src.BindAttr("count", dst, "count"); err != nil {
			t.Fatalf("BindAttr: %v", err)
		}
		if got := dst.GetAttr("count"); got != 3 {
			t.Errorf("bound value = %v, want the source's 3", got)
		}
		src.SetAttr("count", 9)
		if got := dst.GetAttr("count"); got != 9 {
			t.Errorf("bound value = %v, want 9", got)
		}
	})

	t.Run("one direction only", func(t *testing.T) {
		src := NewNode(counterSpec())
		dst := NewNode(counterSpec())
		if err := src.BindAttr("count", dst, "count"); err != nil {
			t.Fatalf("BindAttr: %v", err)
		}
		dst.SetAttr("count", 5)
		if got := src.GetAttr("count"); got != 0 {
			t.Errorf("source moved to %v, binding must be one-way", got)
		}
	})

	t.Run("target validate applies", func(t *testing.T) {
		src := NewNode(counterSpec())
		dst := NewNode(&NodeSpec{Type: "Clamped", Attrs: []AttrSpec{
			{
				Name: "count", Default: 0,
				Validate: func(n *Node, v any) (any, error) {
					if c := v.(int); c > 10 {
						return 10, nil
					}
					return v, nil
				},
			},
		}})
		if err := src.BindAttr("count", dst, "count"); err != nil {
			t.Fatalf("BindAttr: %v", err)
		}
		src.SetAttr("count", 50)
		if got := dst.GetAttr("count"); got != 10 {
			t.Errorf("bound value = %v, want clamped to 10", got)
		}
	})

	t.Run("unknown attributes error", func(t *testing.T) {
		src := NewNode(counterSpec())
		dst := NewNode(counterSpec())
		if err := src.BindAttr("nope", dst, "count"); err == nil {
			t.Errorf("binding an unknown source attribute should fail")
		}
		if err := src.BindAttr("count", dst, "nope"); err == nil {
			t.Errorf("binding an unknown target attribute should fail")
		}
	})

	t.Run("unmounting the target severs the link", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		src := NewNode(counterSpec())
		dst := NewNode(counterSpec())
		mustMount(t, root, src)
		mustMount(t, root, dst)
		app.Drain()

		if err := src.BindAttr("count", dst, "count"); err != nil {
			t.Fatalf("BindAttr: %v", err)
		}
		root.Unmount(dst)
		app.Drain()

		src.SetAttr("count", 4)
		if got := dst.GetAttr("count"); got != 0 {
			t.Errorf("detached target still received %v", got)
		}
	})
}

func TestAttrEffects(t *testing.T) {
	app, root := newTestTree(t, 40, 12)
	spec := &NodeSpec{Type: "Gauge", Attrs: []AttrSpec{
		{Name: "value", Default: 0, Refresh: true},
		{Name: "size", Default: 1, Layout: true},
	}}
	n := NewNode(spec)
	mustMount(t, root, n)
	renderFrame(t, app)

	t.Run("refresh marks paint dirty", func(t *testing.T) {
		n.SetAttr("value", 1)
		if n.dirty&DirtyPaint == 0 {
			t.Errorf("refresh attribute left the node paint-clean")
		}
		if n.dirty&DirtyLayout != 0 {
			t.Errorf("refresh attribute should not dirty layout")
		}
		renderFrame(t, app)
	})

	t.Run("layout marks layout dirty", func(t *testing.T) {
		n.SetAttr("size", 2)
		if n.dirty&DirtyLayout == 0 {
			t.Errorf("layout attribute left the node layout-clean")
		}
		renderFrame(t, app)
	})
}
