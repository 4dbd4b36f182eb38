package textual

import "errors"

// ErrCyclicAuto reports an auto-size dependency cycle: a child's
// intrinsic size depends on a container whose size depends on the
// child. This is a configuration error, not a recoverable condition.
var ErrCyclicAuto = errors.New("cyclic auto-size dependency")

// Region is an axis-aligned rectangle in terminal cell coordinates.
type Region struct {
	X, Y          int
	Width, Height int
}

// Right returns the first column beyond the region.
func (r Region) Right() int { return r.X + r.Width }

// Bottom returns the first row beyond the region.
func (r Region) Bottom() int { return r.Y + r.Height }

// Empty reports whether the region covers no cells.
func (r Region) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether the cell (x, y) lies inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Overlaps reports whether two regions share any cell.
func (r Region) Overlaps(o Region) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Intersection returns the shared area of two regions.
func (r Region) Intersection(o Region) Region {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.Right(), o.Right())
	y2 := min(r.Bottom(), o.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Region{}
	}
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Union returns the smallest region covering both.
func (r Region) Union(o Region) Region {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x1 := min(r.X, o.X)
	y1 := min(r.Y, o.Y)
	x2 := max(r.Right(), o.Right())
	y2 := max(r.Bottom(), o.Bottom())
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Translate returns the region moved by (dx, dy).
func (r Region) Translate(dx, dy int) Region {
	r.X += dx
	r.Y += dy
	return r
}

// Shrink returns the region inset by the spacing on each edge.
func (r Region) Shrink(s Spacing) Region {
	r.X += s.Left
	r.Y += s.Top
	r.Width -= s.Horizontal()
	r.Height -= s.Vertical()
	if r.Width < 0 {
		r.Width = 0
	}
	if r.Height < 0 {
		r.Height = 0
	}
	return r
}

// Measurer lets content report its intrinsic size for auto dimensions.
type Measurer interface {
	// Measure returns the natural (width, height) given the available
	// width, which may be -1 when the container's own width is still
	// being determined.
	Measure(maxWidth int) (width, height int)
}

// layoutPass carries state for one recursive layout computation.
type layoutPass struct {
	measuring map[*Node]bool
	stale     []Region
	err       error
}

// layoutTree computes a Region for every visible node under root.
// root occupies the viewport. The first cyclic auto dependency or
// other configuration error aborts the pass. The returned regions are
// the cells vacated by nodes that moved or shrank; the compositor must
// repaint them.
func layoutTree(root *Node, viewport Region) ([]Region, error) {
	p := &layoutPass{measuring: make(map[*Node]bool)}
	root.flowRegion = viewport
	root.region = viewport
	p.layoutChildren(root)
	root.walk(func(n *Node) { n.dirty &^= DirtyLayout })
	return p.stale, p.err
}

// place commits a node's final region. A node that moved or shrank is
// repainted and its old cells are remembered as stale.
func (p *layoutPass) place(c *Node, r Region) {
	if c.region != r {
		c.dirty |= DirtyPaint
		if !c.region.Empty() {
			p.stale = append(p.stale, c.region)
		}
	}
	c.region = r
}

// contentRegion strips border and padding from a node's region.
// Margin is the parent's concern and already excluded.
func contentRegion(n *Node) Region {
	r := n.region
	if n.computed.Border().Set {
		r = r.Shrink(Spacing{1, 1, 1, 1})
	}
	return r.Shrink(n.computed.Padding())
}

// layoutChildren places n's children inside its content region per the
// node's layout strategy, handles docked children first, then applies
// per-child relative offsets and recurses.
func (p *layoutPass) layoutChildren(n *Node) {
	if p.err != nil || len(n.children) == 0 {
		return
	}

	avail := contentRegion(n)

	var flow []*Node
	for _, c := range n.children {
		if c.computed.Display() == "none" {
			c.flowRegion = Region{}
			p.place(c, Region{})
			continue
		}
		if dock := c.computed.Dock(); dock != "" {
			avail = p.placeDocked(c, dock, avail)
			continue
		}
		flow = append(flow, c)
	}

	switch n.computed.Layout() {
	case "horizontal":
		p.layoutStack(avail, flow, true)
	case "grid":
		p.layoutGrid(n, avail, flow)
	case "center":
		p.layoutCenter(avail, flow)
	default:
		p.layoutStack(avail, flow, false)
	}

	for _, c := range n.children {
		if c.computed.Display() == "none" {
			continue
		}
		p.place(c, c.flowRegion.Translate(c.computed.OffsetX(), c.computed.OffsetY()))
		c.clampScroll()
		p.layoutChildren(c)
	}
}

// resolveDim resolves a width/height dimension against the available
// extent. Fractional units resolve to 0 here; the stack and grid
// strategies distribute them from remaining space. A percent dimension
// against an unknown (-1) extent is a cyclic dependency.
func (p *layoutPass) resolveDim(n *Node, d Dimension, avail int, horizontal bool) int {
	switch d.Unit {
	case UnitCells:
		return int(d.Amount)
	case UnitPercent:
		if avail < 0 {
			p.fail(ErrCyclicAuto)
			return 0
		}
		return int(d.Amount * float64(avail) / 100)
	case UnitFraction:
		return 0
	default:
		return p.intrinsicSize(n, avail, horizontal)
	}
}

// intrinsicSize measures a node's natural extent along one axis.
// Containers derive it from their children; leaf content is asked via
// Measurer or a renderer. Re-entering a node already being measured
// means the auto dependency is cyclic.
func (p *layoutPass) intrinsicSize(n *Node, avail int, horizontal bool) int {
	if p.measuring[n] {
		p.fail(ErrCyclicAuto)
		return 0
	}
	p.measuring[n] = true
	defer delete(p.measuring, n)

	insetW, insetH := boxInsets(n)

	if n.content != nil {
		w, h := p.measureContent(n, childAvail(avail, insetW))
		if horizontal {
			return w + insetW
		}
		return h + insetH
	}

	// Container: combine children's intrinsic sizes per our strategy.
	vertical := n.computed.Layout() != "horizontal"
	sum, maxSize := 0, 0
	frac := false
	for _, c := range n.children {
		if c.computed.Display() == "none" || c.computed.Dock() != "" {
			continue
		}
		var size int
		if horizontal {
			if c.computed.Width().Unit == UnitFraction {
				frac = true
			}
			size = p.resolveDim(c, c.computed.Width(), childAvail(avail, insetW), true) + c.computed.Margin().Horizontal()
		} else {
			if c.computed.HeightDim().Unit == UnitFraction {
				frac = true
			}
			size = p.resolveDim(c, c.computed.HeightDim(), childAvail(avail, insetH), false) + c.computed.Margin().Vertical()
		}
		sum += size
		if size > maxSize {
			maxSize = size
		}
	}
	// A fractional child stretches to whatever it is offered, so an
	// auto container holding one claims the full available extent.
	if frac && avail >= 0 {
		return avail
	}
	// Along the major axis sizes add up; across it the widest child wins.
	if horizontal {
		if vertical {
			return maxSize + insetW
		}
		return sum + insetW
	}
	if vertical {
		return sum + insetH
	}
	return maxSize + insetH
}

func childAvail(avail, inset int) int {
	if avail < 0 {
		return -1
	}
	return max(avail-inset, 0)
}

// measureContent asks a node's content for its natural size.
func (p *layoutPass) measureContent(n *Node, maxWidth int) (w, h int) {
	switch c := n.content.(type) {
	case Measurer:
		return c.Measure(maxWidth)
	case LineRenderer:
		return c.VirtualSize(maxWidth)
	case ContentRenderer:
		if maxWidth < 0 {
			maxWidth = 0
		}
		strips := c.RenderContent(maxWidth)
		for _, s := range strips {
			if s.Width() > w {
				w = s.Width()
			}
		}
		return w, len(strips)
	}
	return 0, 0
}

// boxInsets returns the horizontal and vertical space consumed by the
// node's own border and padding.
func boxInsets(n *Node) (w, h int) {
	pad := n.computed.Padding()
	w = pad.Horizontal()
	h = pad.Vertical()
	if n.computed.Border().Set {
		w += 2
		h += 2
	}
	return w, h
}

func (p *layoutPass) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
