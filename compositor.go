package textual

import (
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// ContentRenderer renders a node's whole content at a given width.
// Used for ordinary widgets whose content is cheap to produce.
type ContentRenderer interface {
	RenderContent(width int) []Strip
}

// LineRenderer renders one virtual line at a time, for content far
// larger than the viewport. The compositor only asks for the lines the
// scroll window exposes.
type LineRenderer interface {
	VirtualSize(width int) (w, h int)
	RenderLine(y, width int) Strip
}

// TextContent is the basic ContentRenderer: static lines of text,
// hard-wrapped at the render width.
type TextContent struct {
	Text string
}

// NewText wraps a string for use with WithContent.
func NewText(text string) *TextContent { return &TextContent{Text: text} }

func (t *TextContent) RenderContent(width int) []Strip {
	var strips []Strip
	for _, line := range strings.Split(t.Text, "\n") {
		strips = append(strips, TextStrip(line, DefaultStyle()))
	}
	return strips
}

func (t *TextContent) Measure(maxWidth int) (w, h int) {
	for _, line := range strings.Split(t.Text, "\n") {
		if lw := TextStrip(line, DefaultStyle()).Width(); lw > w {
			w = lw
		}
		h++
	}
	return w, h
}

// Compositor paints a node tree into a buffer. Nodes are grouped into
// named layers painted in declared order, tree order within a layer;
// a node's children paint above it.
type Compositor struct {
	layerOrder []string
	layerRank  map[string]int
	painted    bool
	pending    []Region

	// Per-frame cache of whole-content renders, so a node spanning
	// several dirty rows renders once.
	contentCache map[*Node][]Strip
}

// NewCompositor declares the layer paint order. The unnamed default
// layer always paints first; layers not declared here paint after the
// declared ones in first-seen order.
func NewCompositor(layers ...string) *Compositor {
	c := &Compositor{layerRank: make(map[string]int)}
	c.layerOrder = append(c.layerOrder, "")
	c.layerRank[""] = 0
	for _, l := range layers {
		if _, ok := c.layerRank[l]; !ok {
			c.layerRank[l] = len(c.layerOrder)
			c.layerOrder = append(c.layerOrder, l)
		}
	}
	return c
}

// Invalidate queues a region for repaint on the next render even if no
// mounted node claims it any more, covering cells vacated by unmounted
// or shrunk nodes.
func (c *Compositor) Invalidate(r Region) {
	if !r.Empty() {
		c.pending = append(c.pending, r)
	}
}

// DirtyRegions collects the visible regions of paint-dirty nodes,
// together with any invalidated vacated regions, and reduces them to a
// minimal set of non-overlapping rectangles.
func (c *Compositor) DirtyRegions(root *Node) []Region {
	regions := append([]Region(nil), c.pending...)
	root.walk(func(n *Node) {
		if n.dirty&DirtyPaint != 0 && !n.region.Empty() {
			regions = append(regions, n.region)
		}
	})
	return MergeRegions(regions)
}

// MergeRegions unions overlapping rectangles until none overlap.
func MergeRegions(regions []Region) []Region {
	out := append([]Region(nil), regions...)
	for {
		merged := false
		for i := 0; i < len(out) && !merged; i++ {
			for j := i + 1; j < len(out); j++ {
				if out[i].Overlaps(out[j]) {
					out[i] = out[i].Union(out[j])
					out = append(out[:j], out[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			return out
		}
	}
}

// paintEntry is one node queued for painting with its clip rectangle
// and accumulated opacity.
type paintEntry struct {
	node    *Node
	clip    Region
	opacity float64
	layer   int
	order   int
}

// Render paints the tree into buf. The first render paints everything;
// later renders repaint only nodes intersecting the dirty region set.
// Paint-dirty flags are cleared afterwards.
func (c *Compositor) Render(root *Node, buf *Buffer) {
	viewport := Region{Width: buf.Width(), Height: buf.Height()}

	var dirty []Region
	if !c.painted {
		dirty = []Region{viewport}
	} else {
		dirty = c.DirtyRegions(root)
	}
	c.pending = nil
	if len(dirty) == 0 {
		return
	}
	c.painted = true
	c.contentCache = make(map[*Node][]Strip)

	entries := c.collect(root, viewport, 1.0, nil)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].layer < entries[j].layer })

	for _, region := range dirty {
		for y := region.Y; y < region.Bottom(); y++ {
			for x := region.X; x < region.Right(); x++ {
				buf.Set(x, y, EmptyCell())
			}
		}
	}

	for _, e := range entries {
		for _, region := range dirty {
			clipped := e.clip.Intersection(region)
			if clipped.Empty() {
				continue
			}
			c.paintNode(e.node, buf, clipped, e.opacity)
		}
	}

	root.walk(func(n *Node) { n.dirty &^= DirtyPaint })
}

// collect flattens the tree into paint entries. Children clip to the
// parent's region and inherit its opacity product. A node on an
// undeclared layer gets a rank after all declared ones.
func (c *Compositor) collect(n *Node, clip Region, opacity float64, entries []paintEntry) []paintEntry {
	if n.computed.Display() == "none" {
		return entries
	}
	opacity *= n.computed.Opacity()

	nodeClip := n.region.Intersection(clip)
	layer := n.computed.Layer()
	rank, ok := c.layerRank[layer]
	if !ok {
		rank = len(c.layerOrder)
		c.layerRank[layer] = rank
		c.layerOrder = append(c.layerOrder, layer)
	}

	if n.computed.Visible() && !nodeClip.Empty() && opacity > 0 {
		entries = append(entries, paintEntry{node: n, clip: nodeClip, opacity: opacity, layer: rank, order: len(entries)})
	}

	// Overflow is hidden: children clip at the parent boundary even
	// when painted on another layer.
	for _, child := range n.children {
		entries = c.collect(child, nodeClip, opacity, entries)
	}
	return entries
}

// paintNode draws one node's background, border and content into buf,
// restricted to clip.
func (c *Compositor) paintNode(n *Node, buf *Buffer, clip Region, opacity float64) {
	style := n.computed
	bg := style.Background().WithAlpha(opacity)
	fg := style.Color().WithAlpha(opacity)
	attr := style.TextAttr()

	fill := n.region.Intersection(clip)
	for y := fill.Y; y < fill.Bottom(); y++ {
		for x := fill.X; x < fill.Right(); x++ {
			under := buf.Get(x, y)
			blended := BlendColors(under.Style.BG, bg)
			if blended == under.Style.BG {
				continue
			}
			buf.Set(x, y, Cell{Rune: ' ', Style: Style{FG: under.Style.FG, BG: blended}})
		}
	}

	if border := style.Border(); border.Set {
		c.paintBorder(n, buf, border, bg, opacity)
	}

	content := contentRegion(n)
	visible := content.Intersection(clip)
	if visible.Empty() || n.content == nil {
		return
	}

	for row := visible.Y; row < visible.Bottom(); row++ {
		strip, ok := c.contentLine(n, content, row-content.Y)
		if !ok {
			continue
		}
		c.paintStrip(buf, strip, content.X, row, visible, fg, bg, attr)
	}
}

// contentLine produces the strip for one visible content row, already
// cropped to the horizontal scroll window.
func (c *Compositor) contentLine(n *Node, content Region, row int) (Strip, bool) {
	virtualRow := row + n.scrollY
	switch r := n.content.(type) {
	case LineRenderer:
		_, vh := r.VirtualSize(content.Width)
		if virtualRow < 0 || virtualRow >= vh {
			return Strip{}, false
		}
		width := max(n.virtualWidth, content.Width)
		strip := r.RenderLine(virtualRow, width)
		return strip.Crop(n.scrollX, n.scrollX+content.Width), true
	case ContentRenderer:
		strips, ok := c.contentCache[n]
		if !ok {
			strips = r.RenderContent(content.Width)
			c.contentCache[n] = strips
		}
		if virtualRow < 0 || virtualRow >= len(strips) {
			return Strip{}, false
		}
		return strips[virtualRow].Crop(n.scrollX, n.scrollX+content.Width), true
	}
	return Strip{}, false
}

// paintStrip writes a strip's cells at (x, row), clipped horizontally.
// Segment styles default to the node's colors; the foreground blends
// against the cell's resolved background.
func (c *Compositor) paintStrip(buf *Buffer, strip Strip, x, row int, clip Region, fg, bg Color, attr Attribute) {
	for _, seg := range strip.Segments() {
		segFG := seg.Style.FG
		if segFG.Mode == ColorDefault {
			segFG = fg
		}
		segBG := seg.Style.BG
		if segBG.Mode == ColorDefault || segBG.A == 0 {
			segBG = Transparent
		}
		segAttr := seg.Style.Attr | attr

		for _, r := range seg.Text {
			w := runewidth.RuneWidth(r)
			if w == 0 {
				w = 1
			}
			if x >= clip.Right() {
				return
			}
			if x+w <= clip.X {
				x += w
				continue
			}
			under := buf.Get(x, row)
			cellBG := BlendColors(under.Style.BG, segBG)
			cellFG := BlendColors(cellBG, segFG)
			buf.Set(x, row, Cell{Rune: r, Style: Style{FG: cellFG, BG: cellBG, Attr: segAttr}})
			for i := 1; i < w; i++ {
				buf.Set(x+i, row, Cell{Rune: 0, Style: Style{FG: cellFG, BG: cellBG, Attr: segAttr}})
			}
			x += w
		}
	}
}

// paintBorder draws the node's border inside its region edge.
func (c *Compositor) paintBorder(n *Node, buf *Buffer, border BorderSpec, bg Color, opacity float64) {
	// The frame is always drawn whole; cells outside the dirty clip
	// come out identical and the screen diff drops them.
	r := n.region
	color := border.Color.WithAlpha(opacity)
	under := buf.Get(r.X, r.Y)
	style := Style{FG: BlendColors(under.Style.BG, color), BG: BlendColors(under.Style.BG, bg)}
	buf.DrawBorder(r.X, r.Y, r.Width, r.Height, border.Chars, style)
}
