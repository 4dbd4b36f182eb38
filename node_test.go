package textual

import "testing"

func TestMount(t *testing.T) {
	t.Run("ordering options", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		a := NewNode(&NodeSpec{Type: "A"})
		b := NewNode(&NodeSpec{Type: "B"})
		c := NewNode(&NodeSpec{Type: "C"})
		d := NewNode(&NodeSpec{Type: "D"})
		mustMount(t, root, a)
		mustMount(t, root, b)
		if _, err := root.Mount(c, MountBefore(a)); err != nil {
			t.Fatalf("MountBefore: %v", err)
		}
		if _, err := root.Mount(d, MountAfter(a)); err != nil {
			t.Fatalf("MountAfter: %v", err)
		}
		app.Drain()

		var order []string
		for _, child := range root.Children() {
			order = append(order, child.TypeName())
		}
		want := []string{"C", "A", "D", "B"}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	})

	t.Run("double mount fails", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		a := NewNode(&NodeSpec{Type: "A"})
		mustMount(t, root, a)
		if _, err := root.Mount(a); err == nil {
			t.Errorf("mounting a mounted node should fail")
		}
	})

	t.Run("mount under a detached node fails", func(t *testing.T) {
		loose := NewNode(&NodeSpec{Type: "Loose"})
		if _, err := loose.Mount(NewNode(&NodeSpec{Type: "A"})); err == nil {
			t.Errorf("mounting under a detached node should fail")
		}
	})

	t.Run("sibling anchor must be a child", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		stranger := NewNode(&NodeSpec{Type: "Stranger"})
		if _, err := root.Mount(NewNode(&NodeSpec{Type: "A"}), MountBefore(stranger)); err == nil {
			t.Errorf("MountBefore with a non-child anchor should fail")
		}
	})

	t.Run("subtree attaches recursively", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		parent := NewNode(&NodeSpec{Type: "Parent"})
		mustMount(t, root, parent)
		child := NewNode(&NodeSpec{Type: "Child"})
		mustMount(t, parent, child)
		app.Drain()

		if !child.Mounted() || child.Parent() != parent {
			t.Errorf("child not wired: mounted=%v parent=%v", child.Mounted(), child.Parent())
		}
	})
}

func TestUnmount(t *testing.T) {
	t.Run("removes the subtree", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		parent := NewNode(&NodeSpec{Type: "Parent"})
		child := NewNode(&NodeSpec{Type: "Child"})
		mustMount(t, root, parent)
		mustMount(t, parent, child)
		app.Drain()

		root.Unmount(parent)
		if parent.Mounted() || child.Mounted() {
			t.Errorf("subtree still mounted after Unmount")
		}
		if len(root.Children()) != 0 {
			t.Errorf("root still has %d children", len(root.Children()))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		a := NewNode(&NodeSpec{Type: "A"})
		mustMount(t, root, a)
		app.Drain()
		root.Unmount(a)
		root.Unmount(a)
		root.Unmount(nil)
	})

	t.Run("clears focus", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		w := NewNode(&NodeSpec{Type: "Widget", CanFocus: true})
		mustMount(t, root, w)
		app.Drain()
		app.SetFocus(w)
		app.Drain()

		root.Unmount(w)
		if app.Focused() != nil {
			t.Errorf("Focused() = %v after unmounting the focused node", app.Focused())
		}
	})

	t.Run("remount works after unmount", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		a := NewNode(&NodeSpec{Type: "A"})
		mustMount(t, root, a)
		app.Drain()
		root.Unmount(a)
		mustMount(t, root, a)
		app.Drain()
		if !a.Mounted() {
			t.Errorf("remounted node not mounted")
		}
	})
}

func TestClasses(t *testing.T) {
	n := NewNode(&NodeSpec{Type: "Widget"}, WithClasses("a", "b"))
	if !n.HasClass("a") || !n.HasClass("b") || n.HasClass("c") {
		t.Errorf("initial classes wrong: %v", n.Classes())
	}
	n.AddClass("c")
	n.AddClass("c")
	if !n.HasClass("c") {
		t.Errorf("AddClass failed")
	}
	if len(n.Classes()) != 3 {
		t.Errorf("duplicate AddClass grew the list: %v", n.Classes())
	}
	n.RemoveClass("b")
	if n.HasClass("b") {
		t.Errorf("RemoveClass failed")
	}
	n.RemoveClass("nope")
}

func TestQuery(t *testing.T) {
	app, root := newTestTree(t, 40, 12)
	side := NewNode(&NodeSpec{Type: "Sidebar"}, WithID("nav"))
	b1 := NewNode(&NodeSpec{Type: "Button"}, WithClasses("primary"))
	b2 := NewNode(&NodeSpec{Type: "Button"})
	b3 := NewNode(&NodeSpec{Type: "Button"}, WithClasses("primary"))
	mustMount(t, root, side)
	mustMount(t, side, b1)
	mustMount(t, side, b2)
	mustMount(t, root, b3)
	app.Drain()

	t.Run("by type", func(t *testing.T) {
		got, err := root.Query("Button")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got.Len() != 3 {
			t.Errorf("Len = %d, want 3", got.Len())
		}
		if got.First() != b1 || got.Last() != b3 {
			t.Errorf("document order broken")
		}
	})

	t.Run("scoped to the receiver", func(t *testing.T) {
		got, err := side.Query("Button")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got.Len() != 2 {
			t.Errorf("Len = %d, want only the sidebar's buttons", got.Len())
		}
	})

	t.Run("by id and class", func(t *testing.T) {
		nav, err := root.QueryFirst("#nav")
		if err != nil {
			t.Fatalf("QueryFirst: %v", err)
		}
		if nav != side {
			t.Errorf("QueryFirst(#nav) = %v", nav)
		}
		primaries, err := root.Query(".primary")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if primaries.Len() != 2 {
			t.Errorf(".primary Len = %d, want 2", primaries.Len())
		}
	})

	t.Run("filter and exclude", func(t *testing.T) {
		buttons, err := root.Query("Button")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		kept, err := buttons.Filter(".primary")
		if err != nil {
			t.Fatalf("Filter: %v", err)
		}
		if kept.Len() != 2 {
			t.Errorf("Filter = %d, want 2", kept.Len())
		}
		rest, err := buttons.Exclude(".primary")
		if err != nil {
			t.Fatalf("Exclude: %v", err)
		}
		if rest.Len() != 1 || rest.First() != b2 {
			t.Errorf("Exclude left %d nodes", rest.Len())
		}
	})

	t.Run("app query includes the root", func(t *testing.T) {
		got, err := app.Query("Screen")
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if got.Len() != 1 || got.First() != root {
			t.Errorf("app query missed the root")
		}
	})

	t.Run("bad selector errors", func(t *testing.T) {
		if _, err := root.Query("Button#"); err == nil {
			t.Errorf("Query with a bad selector should fail")
		}
	})
}

func TestFocusCycle(t *testing.T) {
	app, root := newTestTree(t, 40, 12)
	a := NewNode(&NodeSpec{Type: "Field", CanFocus: true})
	b := NewNode(&NodeSpec{Type: "Field", CanFocus: true})
	c := NewNode(&NodeSpec{Type: "Label"})
	mustMount(t, root, a)
	mustMount(t, root, c)
	mustMount(t, root, b)
	app.Drain()

	app.FocusNext()
	app.Drain()
	if app.Focused() != a {
		t.Fatalf("first FocusNext = %v, want a", app.Focused())
	}
	app.FocusNext()
	app.Drain()
	if app.Focused() != b {
		t.Errorf("second FocusNext = %v, want b (label skipped)", app.Focused())
	}
	app.FocusNext()
	app.Drain()
	if app.Focused() != a {
		t.Errorf("FocusNext did not wrap to a")
	}
	app.FocusPrevious()
	app.Drain()
	if app.Focused() != b {
		t.Errorf("FocusPrevious did not wrap back to b")
	}
}
