package textual

import (
	"strings"
)

// gridTrack is one parsed entry of grid-columns / grid-rows.
type gridTrack struct {
	dim Dimension
}

// parseTracks parses a whitespace-separated track list such as
// "auto 1fr 10". An empty list or any unparseable entry yields nil,
// which callers treat as "all tracks 1fr".
func parseTracks(raw string) []gridTrack {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	tracks := make([]gridTrack, 0, len(fields))
	for _, f := range fields {
		d, err := ParseDimension(f)
		if err != nil {
			return nil
		}
		tracks = append(tracks, gridTrack{dim: d})
	}
	return tracks
}

// layoutGrid places children left to right, top to bottom, into a grid
// with a fixed column count. Rows beyond the declared row tracks are
// created on demand and size like the last declared track, or 1fr when
// none were declared.
func (p *layoutPass) layoutGrid(n *Node, avail Region, children []*Node) {
	if len(children) == 0 {
		return
	}

	cols := n.computed.GridSize()
	if cols < 1 {
		cols = 1
	}
	rows := (len(children) + cols - 1) / cols

	colTracks := normalizeTracks(parseTracks(n.computed.GridColumns()), cols)
	rowTracks := normalizeTracks(parseTracks(n.computed.GridRows()), rows)

	colSizes := p.sizeTracks(colTracks, avail.Width, children, cols, true)
	rowSizes := p.sizeTracks(rowTracks, avail.Height, children, cols, false)

	y := avail.Y
	for row := 0; row < rows; row++ {
		x := avail.X
		for col := 0; col < cols; col++ {
			i := row*cols + col
			if i >= len(children) {
				break
			}
			c := children[i]
			m := c.computed.Margin()
			cell := Region{X: x, Y: y, Width: colSizes[col], Height: rowSizes[row]}.Shrink(m)
			c.flowRegion = p.fitInCell(c, cell)
			x += colSizes[col]
		}
		y += rowSizes[row]
	}
}

// normalizeTracks pads or truncates a track list to count entries,
// repeating the last declared track for overflow rows.
func normalizeTracks(tracks []gridTrack, count int) []gridTrack {
	out := make([]gridTrack, count)
	for i := range out {
		switch {
		case i < len(tracks):
			out[i] = tracks[i]
		case len(tracks) > 0:
			out[i] = tracks[len(tracks)-1]
		default:
			out[i] = gridTrack{dim: Fr(1)}
		}
	}
	return out
}

// sizeTracks resolves track dimensions against the available extent.
// auto tracks take the largest intrinsic size of their occupants;
// fractional tracks share the remainder.
func (p *layoutPass) sizeTracks(tracks []gridTrack, avail int, children []*Node, cols int, horizontal bool) []int {
	sizes := make([]int, len(tracks))
	var fracTotal float64
	remaining := avail

	for t, track := range tracks {
		switch track.dim.Unit {
		case UnitFraction:
			fracTotal += track.dim.Amount
			sizes[t] = -1
		case UnitAuto:
			sizes[t] = p.trackIntrinsic(children, cols, t, horizontal)
			remaining -= sizes[t]
		case UnitPercent:
			sizes[t] = int(track.dim.Amount * float64(avail) / 100)
			remaining -= sizes[t]
		default:
			sizes[t] = int(track.dim.Amount)
			remaining -= sizes[t]
		}
	}

	if fracTotal > 0 {
		if remaining < 0 {
			remaining = 0
		}
		given, last := 0, -1
		for t, track := range tracks {
			if sizes[t] != -1 {
				continue
			}
			sizes[t] = int(track.dim.Amount / fracTotal * float64(remaining))
			given += sizes[t]
			last = t
		}
		if last >= 0 {
			sizes[last] += remaining - given
		}
	}
	return sizes
}

// trackIntrinsic measures the widest (or tallest) occupant of a track.
func (p *layoutPass) trackIntrinsic(children []*Node, cols, track int, horizontal bool) int {
	size := 0
	for i, c := range children {
		var in bool
		if horizontal {
			in = i%cols == track
		} else {
			in = i/cols == track
		}
		if !in {
			continue
		}
		s := p.intrinsicSize(c, -1, horizontal)
		if horizontal {
			s += c.computed.Margin().Horizontal()
		} else {
			s += c.computed.Margin().Vertical()
		}
		if s > size {
			size = s
		}
	}
	return size
}

// fitInCell applies a child's own explicit size inside its grid cell,
// defaulting to filling the cell.
func (p *layoutPass) fitInCell(c *Node, cell Region) Region {
	r := cell
	if d := c.computed.Width(); d.Unit == UnitCells || d.Unit == UnitPercent {
		r.Width = min(p.resolveDim(c, d, cell.Width, true), cell.Width)
	}
	if d := c.computed.HeightDim(); d.Unit == UnitCells || d.Unit == UnitPercent {
		r.Height = min(p.resolveDim(c, d, cell.Height, false), cell.Height)
	}
	return r
}
