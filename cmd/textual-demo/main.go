package main

import (
	"context"
	"fmt"
	"os"
	"time"

	textual "github.com/Textualize/textual-sub000"
)

const appCSS = `
Header {
	dock: top;
	height: 3;
	background: $primary;
	color: #ffffff;
	border: solid #ffffff 40%;
	text-style: bold;
}

Sidebar {
	dock: left;
	width: 24;
	background: $surface;
	padding: 1 2;
}

Body {
	layout: vertical;
	padding: 1;
}

.clock {
	color: $text-muted;
}

.highlight {
	background: $primary 30%;
}
`

func headerSpec() *textual.NodeSpec {
	return &textual.NodeSpec{Type: "Header"}
}

func sidebarSpec() *textual.NodeSpec {
	spec := &textual.NodeSpec{Type: "Sidebar", CanFocus: true}
	spec.Bind("j,down", "cursor_down", "Move down")
	spec.Bind("k,up", "cursor_up", "Move up")
	spec.Attrs = []textual.AttrSpec{
		{Name: "cursor", Default: 0, Refresh: true},
	}
	spec.OnAction("cursor_down", func(n *textual.Node, _ []any) error {
		return n.SetAttr("cursor", n.GetAttr("cursor").(int)+1)
	})
	spec.OnAction("cursor_up", func(n *textual.Node, _ []any) error {
		if c := n.GetAttr("cursor").(int); c > 0 {
			return n.SetAttr("cursor", c-1)
		}
		return nil
	})
	return spec
}

func bodySpec() *textual.NodeSpec {
	return &textual.NodeSpec{Type: "Body"}
}

func main() {
	app, err := textual.NewApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app.AddCSS(appCSS)
	app.BindPriority("q", "app.quit")
	app.BindPriority("<C-c>", "app.quit")

	root := textual.NewNode(&textual.NodeSpec{Type: "Screen"})

	header := textual.NewNode(headerSpec(),
		textual.WithContent(textual.NewText(" textual demo")))
	sidebar := textual.NewNode(sidebarSpec(),
		textual.WithContent(textual.NewText("colors\nlayout\nworkers\ntimers")))
	body := textual.NewNode(bodySpec(), textual.WithID("body"))
	clock := textual.NewNode(&textual.NodeSpec{Type: "Static"},
		textual.WithClasses("clock"),
		textual.WithContent(textual.NewText("")))

	if err := app.SetRoot(root); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	must(root.Mount(header))
	must(root.Mount(sidebar))
	must(root.Mount(body))
	must(body.Mount(clock))

	app.SetFocus(sidebar)

	clock.SetInterval(time.Second, func() {
		clock.SetContent(textual.NewText(time.Now().Format("15:04:05")))
	})

	clock.RunWorker(func(ctx context.Context) error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case t := <-ticker.C:
				app.Post(func() {
					header.SetContent(textual.NewText(fmt.Sprintf(" textual demo - up %s", t.Format("15:04:05"))))
				})
			}
		}
	}, textual.WorkerName("uptime"))

	if err := app.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func must(_ *textual.MountHandle, err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
