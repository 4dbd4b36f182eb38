package textual

// placeDocked pins a child to one edge of the available area and
// returns the area that remains for later children. A docked child
// spans the full edge; its size along the dock axis comes from its
// explicit dimension, falling back to intrinsic size.
func (p *layoutPass) placeDocked(c *Node, dock string, avail Region) Region {
	m := c.computed.Margin()
	inner := avail.Shrink(m)

	switch dock {
	case "top", "bottom":
		h := p.dockExtent(c, c.computed.HeightDim(), inner.Height, false)
		if dock == "top" {
			c.flowRegion = Region{X: inner.X, Y: inner.Y, Width: inner.Width, Height: h}
			avail.Y += h + m.Vertical()
		} else {
			c.flowRegion = Region{X: inner.X, Y: inner.Bottom() - h, Width: inner.Width, Height: h}
		}
		avail.Height -= h + m.Vertical()
	case "left", "right":
		w := p.dockExtent(c, c.computed.Width(), inner.Width, true)
		if dock == "left" {
			c.flowRegion = Region{X: inner.X, Y: inner.Y, Width: w, Height: inner.Height}
			avail.X += w + m.Horizontal()
		} else {
			c.flowRegion = Region{X: inner.Right() - w, Y: inner.Y, Width: w, Height: inner.Height}
		}
		avail.Width -= w + m.Horizontal()
	}
	if avail.Width < 0 {
		avail.Width = 0
	}
	if avail.Height < 0 {
		avail.Height = 0
	}
	return avail
}

// dockExtent resolves a docked child's size along its dock axis.
// Fractional sizes make no sense here and fall back to intrinsic.
func (p *layoutPass) dockExtent(c *Node, d Dimension, avail int, horizontal bool) int {
	if d.Unit == UnitFraction {
		d = Auto
	}
	size := p.resolveDim(c, d, avail, horizontal)
	return min(size, avail)
}

// layoutCenter sizes each child to its own dimensions (intrinsic for
// auto) and centers it in the available area. Children stack on top of
// each other; paint order decides visibility.
func (p *layoutPass) layoutCenter(avail Region, children []*Node) {
	for _, c := range children {
		m := c.computed.Margin()
		inner := avail.Shrink(m)

		w := p.centerExtent(c, c.computed.Width(), inner.Width, true)
		h := p.centerExtent(c, c.computed.HeightDim(), inner.Height, false)

		c.flowRegion = Region{
			X:      inner.X + (inner.Width-w)/2,
			Y:      inner.Y + (inner.Height-h)/2,
			Width:  w,
			Height: h,
		}
	}
}

func (p *layoutPass) centerExtent(c *Node, d Dimension, avail int, horizontal bool) int {
	if d.Unit == UnitFraction {
		return avail
	}
	return min(p.resolveDim(c, d, avail, horizontal), avail)
}
