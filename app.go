package textual

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kungfusheep/riffkey"
)

// App drives the whole engine from a single goroutine: it owns the
// node tree, the stylesheet and resolver, the layout and paint passes,
// and every node's message pump. Other goroutines hand work in through
// Post and Invoke.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	screen     *Screen
	compositor *Compositor
	sheet      *Stylesheet
	resolver   *Resolver
	themes     map[string]*Theme

	root    *Node
	focused *Node

	router *riffkey.Router
	input  *riffkey.Input
	reader *riffkey.Reader

	invoke chan func()
	wake   chan struct{}

	pumps      map[*pump]struct{}
	adopted    map[*NodeSpec]bool
	actions    map[string]func(args []any) error
	providers  []CommandProvider
	recompose  map[*Node]struct{}
	needStyle  bool
	needLayout bool
	needPaint  bool

	running  bool
	fatalErr error
}

// NewApp builds an app on the real terminal.
func NewApp() (*App, error) {
	screen, err := NewScreen(nil)
	if err != nil {
		return nil, err
	}
	a := newApp(screen)
	a.router = riffkey.NewRouter().Name("app")
	a.input = riffkey.NewInput(a.router)
	a.reader = riffkey.NewReader(os.Stdin)
	a.installKeyRoutes()
	return a, nil
}

// NewAppSize builds a headless app with a fixed screen size, for tests
// and virtual terminals. Output goes to w; there is no input loop, so
// the caller drives the app with Drain and RenderFrame.
func NewAppSize(w io.Writer, width, height int) *App {
	return newApp(NewScreenSize(w, width, height))
}

func newApp(screen *Screen) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		ctx:        ctx,
		cancel:     cancel,
		screen:     screen,
		compositor: NewCompositor(),
		sheet:      NewStylesheet(),
		themes:     map[string]*Theme{DefaultTheme.Name: DefaultTheme},
		invoke:     make(chan func(), 64),
		wake:       make(chan struct{}, 1),
		pumps:      make(map[*pump]struct{}),
		adopted:    make(map[*NodeSpec]bool),
		actions:    make(map[string]func(args []any) error),
		recompose:  make(map[*Node]struct{}),
	}
	a.resolver = NewResolver(a.sheet, DefaultTheme)
	a.actions["quit"] = func([]any) error { a.Quit(); return nil }
	a.actions["focus_next"] = func([]any) error { a.FocusNext(); return nil }
	a.actions["focus_previous"] = func([]any) error { a.FocusPrevious(); return nil }
	a.AddProvider(bindingCommands{})
	return a
}

// Screen returns the app's screen.
func (a *App) Screen() *Screen { return a.screen }

// Stylesheet returns the app's stylesheet for author additions.
func (a *App) Stylesheet() *Stylesheet { return a.sheet }

// Root returns the root node, nil before SetRoot.
func (a *App) Root() *Node { return a.root }

// Focused returns the focused node, nil when nothing has focus.
func (a *App) Focused() *Node { return a.focused }

// AddCSS registers author-origin CSS.
func (a *App) AddCSS(css string) {
	a.sheet.AddSource(css, OriginAuthor)
	a.restyleAll()
}

// AddProvider registers a command palette provider.
func (a *App) AddProvider(p CommandProvider) {
	a.providers = append(a.providers, p)
}

// Commands queries the palette providers.
func (a *App) Commands(query string) ([]Command, []error) {
	return SearchCommands(a, query, a.providers)
}

// OnAction registers an app-level action.
func (a *App) OnAction(name string, fn func(args []any) error) {
	a.actions[name] = fn
}

func (a *App) runBuiltinAction(act Action) error {
	if fn, ok := a.actions[act.Name]; ok {
		return fn(act.Args)
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, act.Name)
}

// RegisterTheme adds a named theme.
func (a *App) RegisterTheme(t *Theme) { a.themes[t.Name] = t }

// SetTheme activates a registered theme and re-resolves every style.
func (a *App) SetTheme(name string) error {
	t, ok := a.themes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q", name)
	}
	a.resolver.SetTheme(t)
	a.restyleAll()
	return nil
}

func (a *App) restyleAll() {
	if a.root == nil {
		return
	}
	a.root.invalidateStyle()
}

// SetRoot mounts the root of the tree. Called once before Run.
func (a *App) SetRoot(root *Node) error {
	if a.root != nil {
		return errors.New("root already set")
	}
	a.root = root
	root.attachTo(a, nil)
	handle := &MountHandle{Node: root, done: make(chan struct{})}
	root.PostMessage(newMountMessage(handle))
	a.needStyle = true
	a.needLayout = true
	a.needPaint = true
	return nil
}

// Query matches a selector against the whole tree, the root included.
// Calling it before SetRoot is a programming error and panics with
// ErrNoRoot.
func (a *App) Query(selector string) (*NodeList, error) {
	if a.root == nil {
		panic(ErrNoRoot)
	}
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	list, err := a.root.Query(selector)
	if err != nil {
		return nil, err
	}
	if sel.Matches(a.root) {
		list.nodes = append([]*Node{a.root}, list.nodes...)
	}
	return list, nil
}

// registerPump makes a node's queue visible to the scheduler and
// adopts its spec's bundled CSS on first sight.
func (a *App) registerPump(p *pump) {
	a.pumps[p] = struct{}{}
	if spec := p.node.spec; !a.adopted[spec] {
		a.adopted[spec] = true
		if spec.css != "" {
			a.sheet.AddSource(spec.css, OriginBundled)
		}
	}
}

func (a *App) unregisterPump(p *pump) {
	delete(a.pumps, p)
}

// wakePump nudges the scheduler after a post.
func (a *App) wakePump(p *pump) {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *App) scheduleStyle(n *Node) {
	a.needStyle = true
	a.needPaint = true
	a.wakePump(nil)
}

func (a *App) scheduleLayout(n *Node) {
	a.needLayout = true
	a.needPaint = true
	a.wakePump(nil)
}

func (a *App) scheduleRefresh(n *Node) {
	a.needPaint = true
	a.wakePump(nil)
}

func (a *App) scheduleRecompose(n *Node) {
	a.recompose[n] = struct{}{}
	a.needLayout = true
	a.needPaint = true
	a.wakePump(nil)
}

// Post hands fn to the app goroutine. Safe from any goroutine; the
// only way workers may touch the tree.
func (a *App) Post(fn func()) {
	select {
	case a.invoke <- fn:
	case <-a.ctx.Done():
	}
}

// Invoke runs fn on the app goroutine and waits for it.
func (a *App) Invoke(fn func()) {
	done := make(chan struct{})
	a.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-a.ctx.Done():
	}
}

// SetFocus moves focus, emitting blur and focus messages.
func (a *App) SetFocus(n *Node) {
	if a.focused == n {
		return
	}
	if prev := a.focused; prev != nil {
		prev.PostMessage(NewMessage(MsgBlur, nil).NoBubble())
	}
	a.focused = n
	if n != nil {
		n.PostMessage(NewMessage(MsgFocus, nil).NoBubble())
	}
}

// focusables returns the focusable nodes in tree order.
func (a *App) focusables() []*Node {
	if a.root == nil {
		return nil
	}
	var out []*Node
	a.root.walk(func(n *Node) {
		if n.spec.canFocus && n.computed.Display() != "none" {
			out = append(out, n)
		}
	})
	return out
}

// FocusNext moves focus to the next focusable node in tree order.
func (a *App) FocusNext() { a.cycleFocus(1) }

// FocusPrevious moves focus to the previous focusable node.
func (a *App) FocusPrevious() { a.cycleFocus(-1) }

func (a *App) cycleFocus(dir int) {
	nodes := a.focusables()
	if len(nodes) == 0 {
		return
	}
	idx := -1
	for i, n := range nodes {
		if n == a.focused {
			idx = i
			break
		}
	}
	idx += dir
	switch {
	case idx < 0:
		idx = len(nodes) - 1
	case idx >= len(nodes):
		idx = 0
	}
	a.SetFocus(nodes[idx])
}

// fatal records an unrecoverable error and stops the loop. The stack
// is printed after the terminal is restored.
func (a *App) fatal(err error, stack []byte) {
	if a.fatalErr == nil {
		a.fatalErr = err
		if len(stack) > 0 {
			a.fatalErr = fmt.Errorf("%w\n%s", err, stack)
		}
	}
	a.Quit()
}

// Quit stops the app loop.
func (a *App) Quit() {
	a.running = false
	a.cancel()
}

// postKey hands a key from the input goroutine to the app goroutine.
func (a *App) postKey(ev KeyEvent) {
	a.Post(func() { a.routeKey(ev) })
}

// routeKey dispatches a key: spec-declared priority bindings fire
// first, regardless of focus; otherwise the key goes to the focused
// node, falling back to the root, and bubbles from there.
func (a *App) routeKey(ev KeyEvent) {
	if a.dispatchPriority(ev) {
		return
	}
	target := a.focused
	if target == nil {
		target = a.root
	}
	if target != nil {
		target.PostMessage(NewMessage(MsgKey, ev))
	}
}

// dispatchPriority runs the first mounted node's priority binding
// matching the key. The key never reaches the tree when one fires,
// even if the action turns out to be disabled.
func (a *App) dispatchPriority(ev KeyEvent) bool {
	if a.root == nil {
		return false
	}
	var hit *Node
	var action string
	a.root.walk(func(n *Node) {
		if hit != nil {
			return
		}
		for _, b := range priorityBindings(n.spec) {
			if b.Matches(ev) {
				hit, action = n, b.Action
				return
			}
		}
	})
	if hit == nil {
		return false
	}
	if err := hit.RunAction(action); err != nil && !errors.Is(err, ErrUnknownAction) && !errors.Is(err, ErrActionDisabled) {
		a.fatal(err, nil)
	}
	return true
}

// namedKeys maps riffkey patterns to key names delivered in Key
// messages.
var namedKeys = map[string]string{
	"<Up>": "up", "<Down>": "down", "<Left>": "left", "<Right>": "right",
	"<CR>": "enter", "<Esc>": "escape", "<Tab>": "tab", "<BS>": "backspace",
	"<Space>": "space", "<Home>": "home", "<End>": "end",
	"<PageUp>": "pageup", "<PageDown>": "pagedown", "<Del>": "delete",
}

func (a *App) installKeyRoutes() {
	for pattern, name := range namedKeys {
		n := name
		a.router.Handle(pattern, func(_ riffkey.Match) {
			a.postKey(KeyEvent{Name: n})
		})
	}
	for c := 'a'; c <= 'z'; c++ {
		pattern := fmt.Sprintf("<C-%c>", c)
		name := fmt.Sprintf("ctrl+%c", c)
		a.router.Handle(pattern, func(_ riffkey.Match) {
			a.postKey(KeyEvent{Name: name})
		})
	}
	a.router.HandleUnmatched(func(k riffkey.Key) bool {
		if k.Rune != 0 && k.Mod == riffkey.ModNone {
			a.postKey(KeyEvent{Rune: k.Rune, Name: string(k.Rune)})
		}
		return true
	})
}

// BindPriority installs a binding on the input router itself: it fires
// before focus dispatch and the key never reaches the tree. Pattern is
// riffkey syntax ("<C-p>", "q").
func (a *App) BindPriority(pattern, action string) {
	if a.router == nil {
		return
	}
	a.router.Handle(pattern, func(_ riffkey.Match) {
		a.Post(func() {
			target := a.root
			if a.focused != nil {
				target = a.focused
			}
			if target == nil {
				return
			}
			if err := target.RunAction(action); err != nil && !errors.Is(err, ErrUnknownAction) && !errors.Is(err, ErrActionDisabled) {
				a.fatal(err, nil)
			}
		})
	})
}

// Run takes over the terminal and blocks until Quit or a fatal error.
func (a *App) Run() error {
	if a.root == nil {
		return ErrNoRoot
	}
	a.running = true

	if err := a.screen.EnterRawMode(); err != nil {
		return err
	}
	defer a.screen.ExitRawMode()

	if a.input != nil {
		go func() {
			a.input.Run(a.reader, func(handled bool) {})
		}()
	}

	a.Drain()
	a.RenderFrame()

	for a.running {
		select {
		case fn := <-a.invoke:
			fn()
		case <-a.wake:
		case <-a.screen.ResizeChan():
			if a.root != nil {
				a.root.walk(func(n *Node) { n.dirty |= DirtyLayout | DirtyPaint })
			}
			a.needLayout = true
			a.needPaint = true
		case <-a.ctx.Done():
			a.running = false
		}
		a.Drain()
		if a.running {
			a.RenderFrame()
		}
	}

	if a.input != nil {
		os.Stdin.Close()
	}
	return a.fatalErr
}

// Drain processes every queued message on every pump until all queues
// are empty. Messages posted during processing, including bubbled
// ones, are handled in the same drain.
func (a *App) Drain() {
	for {
		progressed := false
		for p := range a.pumps {
			for p.step() {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// RenderFrame runs the coalesced style, recompose, layout and paint
// passes and flushes the screen. Pending effects collapse into at most
// one of each pass per frame.
func (a *App) RenderFrame() error {
	if a.root == nil {
		return ErrNoRoot
	}

	for len(a.recompose) > 0 {
		pending := a.recompose
		a.recompose = make(map[*Node]struct{})
		for n := range pending {
			a.recomposeNode(n)
		}
		a.Drain()
	}

	if a.needStyle || a.root.dirty&DirtyStyle != 0 {
		if a.resolver.resolveSubtree(a.root) {
			a.needLayout = true
		}
		a.needStyle = false
	}

	if a.needLayout {
		viewport := Region{Width: a.screen.Width(), Height: a.screen.Height()}
		stale, err := layoutTree(a.root, viewport)
		if err != nil {
			return err
		}
		for _, r := range stale {
			a.compositor.Invalidate(r)
		}
		a.needLayout = false
	}

	if a.needPaint {
		a.compositor.Render(a.root, a.screen.Buffer())
		a.screen.Flush()
		a.needPaint = false
	}
	return nil
}

// recomposeNode replaces a node's children with a fresh composition.
func (a *App) recomposeNode(n *Node) {
	if n.spec.compose == nil || !n.mounted {
		return
	}
	for len(n.children) > 0 {
		n.Unmount(n.children[len(n.children)-1])
	}
	for _, child := range n.spec.compose(n) {
		if _, err := n.Mount(child); err != nil {
			a.fatal(err, nil)
			return
		}
	}
}
