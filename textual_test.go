package textual

import (
	"bytes"
	"testing"
)

// newTestApp builds a headless app the tests drive by hand with Drain
// and RenderFrame.
func newTestApp(t *testing.T, width, height int) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := NewAppSize(&out, width, height)
	return app, &out
}

// newTestTree mounts a root and returns it alongside the app.
func newTestTree(t *testing.T, width, height int) (*App, *Node) {
	t.Helper()
	app, _ := newTestApp(t, width, height)
	root := NewNode(&NodeSpec{Type: "Screen"})
	if err := app.SetRoot(root); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	return app, root
}

func mustMount(t *testing.T, parent, child *Node) *MountHandle {
	t.Helper()
	h, err := parent.Mount(child)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return h
}

func mustSetStyle(t *testing.T, n *Node, property, value string) {
	t.Helper()
	if err := n.SetStyle(property, value); err != nil {
		t.Fatalf("SetStyle(%s, %s): %v", property, value, err)
	}
}
