package textual

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{"quit", Action{Name: "quit"}},
		{"app.quit", Action{Namespace: "app", Name: "quit"}},
		{"cursor_down", Action{Name: "cursor_down"}},
		{"scroll(3)", Action{Name: "scroll", Args: []any{3}}},
		{"open('file.txt', true)", Action{Name: "open", Args: []any{"file.txt", true}}},
		{`say("a, b", 1.5)`, Action{Name: "say", Args: []any{"a, b", 1.5}}},
		{"table.select_row(2)", Action{Namespace: "table", Name: "select_row", Args: []any{2}}},
		{"noargs()", Action{Name: "noargs"}},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.input)
		if err != nil {
			t.Errorf("ParseAction(%q): %v", tt.input, err)
			continue
		}
		if got.Namespace != tt.want.Namespace || got.Name != tt.want.Name || !reflect.DeepEqual(got.Args, tt.want.Args) {
			t.Errorf("ParseAction(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}

	t.Run("errors", func(t *testing.T) {
		bad := []string{
			"",
			"scroll(3",
			"scroll(unquoted)",
			"scroll('oops)",
			"app.",
			"spaced name(1)",
		}
		for _, input := range bad {
			if _, err := ParseAction(input); err == nil {
				t.Errorf("ParseAction(%q) succeeded, want error", input)
			}
		}
	})

	t.Run("string round trip", func(t *testing.T) {
		a := Action{Namespace: "table", Name: "select_row", Args: []any{2, true}}
		if got := a.String(); got != "table.select_row(2, true)" {
			t.Errorf("String() = %q", got)
		}
	})
}

func TestActionDispatch(t *testing.T) {
	t.Run("walks toward the root", func(t *testing.T) {
		app, _ := newTestApp(t, 40, 12)
		var ranOn string
		spec := (&NodeSpec{Type: "List"}).OnAction("cursor_down", func(n *Node, args []any) error {
			ranOn = n.TypeName()
			return nil
		})
		root := NewNode(&NodeSpec{Type: "Screen"})
		if err := app.SetRoot(root); err != nil {
			t.Fatalf("SetRoot: %v", err)
		}
		list := NewNode(spec)
		item := NewNode(&NodeSpec{Type: "Item"})
		mustMount(t, root, list)
		mustMount(t, list, item)
		app.Drain()

		if err := item.RunAction("cursor_down"); err != nil {
			t.Fatalf("RunAction: %v", err)
		}
		if ranOn != "List" {
			t.Errorf("action ran on %q, want the List ancestor", ranOn)
		}
	})

	t.Run("arguments reach the handler", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		var got []any
		n := NewNode((&NodeSpec{Type: "Table"}).OnAction("select_row", func(n *Node, args []any) error {
			got = args
			return nil
		}))
		mustMount(t, root, n)
		if err := n.RunAction("select_row(2, 'fast')"); err != nil {
			t.Fatalf("RunAction: %v", err)
		}
		if !reflect.DeepEqual(got, []any{2, "fast"}) {
			t.Errorf("args = %v, want [2 fast]", got)
		}
	})

	t.Run("namespace restricts the walk", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		ran := ""
		handler := func(name string) *NodeSpec {
			return (&NodeSpec{Type: name}).OnAction("refresh", func(n *Node, args []any) error {
				ran = n.TypeName()
				return nil
			})
		}
		outer := NewNode(handler("Panel"))
		inner := NewNode(handler("Table"))
		mustMount(t, root, outer)
		mustMount(t, outer, inner)

		if err := inner.RunAction("panel.refresh"); err != nil {
			t.Fatalf("RunAction: %v", err)
		}
		if ran != "Panel" {
			t.Errorf("action ran on %q, want Panel", ran)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		n := NewNode(&NodeSpec{Type: "Widget"})
		mustMount(t, root, n)
		if err := n.RunAction("no_such_thing"); !errors.Is(err, ErrUnknownAction) {
			t.Errorf("RunAction = %v, want ErrUnknownAction", err)
		}
	})

	t.Run("app builtins and registered actions", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		called := 0
		app.OnAction("ping", func(args []any) error {
			called++
			return nil
		})
		n := NewNode(&NodeSpec{Type: "Widget"})
		mustMount(t, root, n)

		if err := n.RunAction("ping"); err != nil {
			t.Fatalf("RunAction: %v", err)
		}
		if err := n.RunAction("app.ping"); err != nil {
			t.Fatalf("RunAction(app.ping): %v", err)
		}
		if called != 2 {
			t.Errorf("app action ran %d times, want 2", called)
		}
	})

	t.Run("node action shadows an app action", func(t *testing.T) {
		app, root := newTestTree(t, 40, 12)
		ran := ""
		app.OnAction("save", func(args []any) error {
			ran = "app"
			return nil
		})
		n := NewNode((&NodeSpec{Type: "Editor"}).OnAction("save", func(n *Node, args []any) error {
			ran = "node"
			return nil
		}))
		mustMount(t, root, n)

		if err := n.RunAction("save"); err != nil {
			t.Fatalf("RunAction: %v", err)
		}
		if ran != "node" {
			t.Errorf("ran %q, want the node handler", ran)
		}

		if err := n.RunAction("app.save"); err != nil {
			t.Fatalf("RunAction(app.save): %v", err)
		}
		if ran != "app" {
			t.Errorf("app namespace should bypass node handlers")
		}
	})
}

func TestCheckAction(t *testing.T) {
	newGated := func(state ActionState) *NodeSpec {
		spec := (&NodeSpec{Type: "Gated"}).OnAction("go", func(n *Node, args []any) error {
			return nil
		})
		spec.CheckAction = func(n *Node, name string, args []any) ActionState {
			return state
		}
		return spec
	}

	t.Run("disabled refuses", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		n := NewNode(newGated(ActionDisabled))
		mustMount(t, root, n)
		if err := n.RunAction("go"); !errors.Is(err, ErrActionDisabled) {
			t.Errorf("RunAction = %v, want ErrActionDisabled", err)
		}
	})

	t.Run("hidden falls through to an ancestor", func(t *testing.T) {
		_, root := newTestTree(t, 40, 12)
		ran := ""
		outer := NewNode((&NodeSpec{Type: "Outer"}).OnAction("go", func(n *Node, args []any) error {
			ran = "outer"
			return nil
		}))
		inner := NewNode(newGated(ActionHidden))
		mustMount(t, root, outer)
		mustMount(t, outer, inner)

		if err := inner.RunAction("go"); err != nil {
			t.Fatalf("RunAction: %v", err)
		}
		if ran != "outer" {
			t.Errorf("hidden action should defer to the ancestor, ran on %q", ran)
		}
	})
}
