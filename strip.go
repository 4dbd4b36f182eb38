package textual

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Segment is a run of text sharing one style.
type Segment struct {
	Text  string
	Style Style
}

// Width returns the display width of the segment in cells.
func (s Segment) Width() int {
	return runewidth.StringWidth(s.Text)
}

// Strip is one visible row of a node's content: an ordered sequence of
// styled segments with a declared total cell width. Strips are the unit
// of line-oriented rendering.
type Strip struct {
	segments []Segment
	width    int
}

// NewStrip builds a strip from segments. The declared width is the sum
// of the segment widths.
func NewStrip(segments ...Segment) Strip {
	w := 0
	for _, seg := range segments {
		w += seg.Width()
	}
	return Strip{segments: segments, width: w}
}

// TextStrip builds a single-segment strip.
func TextStrip(text string, style Style) Strip {
	return NewStrip(Segment{Text: text, Style: style})
}

// BlankStrip returns a strip of width spaces in the given style.
func BlankStrip(width int, style Style) Strip {
	if width <= 0 {
		return Strip{}
	}
	return NewStrip(Segment{Text: strings.Repeat(" ", width), Style: style})
}

// Segments returns the strip's segments.
func (s Strip) Segments() []Segment {
	return s.segments
}

// Width returns the declared cell width.
func (s Strip) Width() int {
	return s.width
}

// Text returns the unstyled text of the strip.
func (s Strip) Text() string {
	var b strings.Builder
	for _, seg := range s.segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Pad extends the strip to the given width with spaces in the given
// style. Strips already at least that wide are returned unchanged.
func (s Strip) Pad(width int, style Style) Strip {
	if s.width >= width {
		return s
	}
	segs := append(append([]Segment(nil), s.segments...),
		Segment{Text: strings.Repeat(" ", width-s.width), Style: style})
	return Strip{segments: segs, width: width}
}

// Crop returns the cells in [start, end) as a new strip. This is how the
// compositor applies a horizontal scroll window. A wide rune straddling
// the boundary is replaced by a space so widths stay exact.
func (s Strip) Crop(start, end int) Strip {
	if start < 0 {
		start = 0
	}
	if end > s.width {
		end = s.width
	}
	if start >= end {
		return Strip{}
	}

	var out []Segment
	pos := 0
	for _, seg := range s.segments {
		segW := seg.Width()
		if pos+segW <= start {
			pos += segW
			continue
		}
		if pos >= end {
			break
		}

		var b strings.Builder
		cell := pos
		for _, r := range seg.Text {
			rw := runewidth.RuneWidth(r)
			if rw == 0 {
				rw = 1
			}
			if cell+rw <= start {
				cell += rw
				continue
			}
			if cell >= end {
				break
			}
			if cell < start || cell+rw > end {
				// wide rune straddles the window edge
				for i := max(cell, start); i < min(cell+rw, end); i++ {
					b.WriteByte(' ')
				}
			} else {
				b.WriteRune(r)
			}
			cell += rw
		}
		if b.Len() > 0 {
			out = append(out, Segment{Text: b.String(), Style: seg.Style})
		}
		pos += segW
	}
	return NewStrip(out...)
}

// ApplyStyle overlays colors onto every segment: non-default foreground
// or background of the overlay replace the segment's own.
func (s Strip) ApplyStyle(overlay Style) Strip {
	segs := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		st := seg.Style
		if overlay.FG.Mode != ColorDefault {
			st.FG = overlay.FG
		}
		if overlay.BG.Mode != ColorDefault {
			st.BG = overlay.BG
		}
		st.Attr |= overlay.Attr
		segs[i] = Segment{Text: seg.Text, Style: st}
	}
	return Strip{segments: segs, width: s.width}
}

// Equal reports whether two strips render identically.
func (s Strip) Equal(other Strip) bool {
	if s.width != other.width || len(s.segments) != len(other.segments) {
		return false
	}
	for i := range s.segments {
		if s.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}
