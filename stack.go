package textual

// layoutStack places children in a single row or column. Fixed and
// percent sizes resolve first; fractional sizes share whatever space
// remains in proportion to their fr amounts. Cross-axis auto fills the
// container.
func (p *layoutPass) layoutStack(avail Region, children []*Node, horizontal bool) {
	if len(children) == 0 {
		return
	}

	mainAvail := avail.Height
	if horizontal {
		mainAvail = avail.Width
	}

	sizes := make([]int, len(children))
	var fracTotal float64
	remaining := mainAvail

	for i, c := range children {
		d := c.computed.HeightDim()
		marginMain := c.computed.Margin().Vertical()
		if horizontal {
			d = c.computed.Width()
			marginMain = c.computed.Margin().Horizontal()
		}
		if d.Unit == UnitFraction {
			fracTotal += d.Amount
			remaining -= marginMain
			sizes[i] = -1
			continue
		}
		sizes[i] = p.resolveDim(c, d, mainAvail, horizontal)
		remaining -= sizes[i] + marginMain
	}

	// Distribute leftover space among fractional children, giving
	// the rounding remainder to the last one.
	if fracTotal > 0 {
		if remaining < 0 {
			remaining = 0
		}
		given := 0
		last := -1
		for i, c := range children {
			if sizes[i] != -1 {
				continue
			}
			d := c.computed.HeightDim()
			if horizontal {
				d = c.computed.Width()
			}
			sizes[i] = int(d.Amount / fracTotal * float64(remaining))
			given += sizes[i]
			last = i
		}
		if last >= 0 {
			sizes[last] += remaining - given
		}
	}

	pos := avail.Y
	if horizontal {
		pos = avail.X
	}
	for i, c := range children {
		m := c.computed.Margin()
		if horizontal {
			h := p.crossSize(c, c.computed.HeightDim(), avail.Height-m.Vertical())
			c.flowRegion = Region{X: pos + m.Left, Y: avail.Y + m.Top, Width: sizes[i], Height: h}
			pos += sizes[i] + m.Horizontal()
		} else {
			w := p.crossSize(c, c.computed.Width(), avail.Width-m.Horizontal())
			c.flowRegion = Region{X: avail.X + m.Left, Y: pos + m.Top, Width: w, Height: sizes[i]}
			pos += sizes[i] + m.Vertical()
		}
	}
}

// crossSize resolves the cross-axis dimension, where auto and fr both
// mean "fill the container".
func (p *layoutPass) crossSize(n *Node, d Dimension, avail int) int {
	if avail < 0 {
		avail = 0
	}
	switch d.Unit {
	case UnitAuto, UnitFraction:
		return avail
	}
	return p.resolveDim(n, d, avail, false)
}
