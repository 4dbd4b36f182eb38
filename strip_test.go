package textual

import "testing"

func TestStrip(t *testing.T) {
	t.Run("width from segments", func(t *testing.T) {
		s := NewStrip(
			Segment{Text: "ab", Style: DefaultStyle()},
			Segment{Text: "cd", Style: DefaultStyle().Bold()},
		)
		if s.Width() != 4 {
			t.Errorf("Width = %d, want 4", s.Width())
		}
		if s.Text() != "abcd" {
			t.Errorf("Text = %q, want abcd", s.Text())
		}
	})

	t.Run("wide runes count double", func(t *testing.T) {
		s := TextStrip("日本", DefaultStyle())
		if s.Width() != 4 {
			t.Errorf("Width = %d, want 4", s.Width())
		}
	})

	t.Run("pad", func(t *testing.T) {
		s := TextStrip("ab", DefaultStyle()).Pad(5, DefaultStyle())
		if s.Width() != 5 {
			t.Errorf("Width = %d, want 5", s.Width())
		}
		if s.Text() != "ab   " {
			t.Errorf("Text = %q", s.Text())
		}
		if got := s.Pad(3, DefaultStyle()); got.Width() != 5 {
			t.Errorf("padding narrower than the strip changed it")
		}
	})

	t.Run("blank", func(t *testing.T) {
		if got := BlankStrip(3, DefaultStyle()); got.Text() != "   " {
			t.Errorf("BlankStrip = %q", got.Text())
		}
		if got := BlankStrip(0, DefaultStyle()); got.Width() != 0 {
			t.Errorf("zero-width blank has width %d", got.Width())
		}
	})
}

func TestStripCrop(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		want       string
	}{
		{"interior", "abcdef", 1, 4, "bcd"},
		{"full range", "abcdef", 0, 6, "abcdef"},
		{"past the end clamps", "abc", 0, 10, "abc"},
		{"negative start clamps", "abc", -2, 2, "ab"},
		{"empty window", "abc", 2, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TextStrip(tt.text, DefaultStyle()).Crop(tt.start, tt.end)
			if got.Text() != tt.want {
				t.Errorf("Crop(%d,%d) = %q, want %q", tt.start, tt.end, got.Text(), tt.want)
			}
			if got.Width() != len(tt.want) {
				t.Errorf("cropped width = %d, want %d", got.Width(), len(tt.want))
			}
		})
	}

	t.Run("split wide rune becomes a space", func(t *testing.T) {
		// 日 spans cells 0-1; cropping from cell 1 cuts it in half.
		got := TextStrip("日x", DefaultStyle()).Crop(1, 3)
		if got.Width() != 2 {
			t.Errorf("width = %d, want 2", got.Width())
		}
		if got.Text() != " x" {
			t.Errorf("Text = %q, want the half rune blanked", got.Text())
		}
	})

	t.Run("crop across segments", func(t *testing.T) {
		s := NewStrip(
			Segment{Text: "abc", Style: DefaultStyle()},
			Segment{Text: "def", Style: DefaultStyle().Bold()},
		)
		got := s.Crop(2, 4)
		if got.Text() != "cd" {
			t.Errorf("Text = %q, want cd", got.Text())
		}
		if len(got.Segments()) != 2 {
			t.Errorf("segments = %d, want the style split kept", len(got.Segments()))
		}
	})
}

func TestStripApplyStyle(t *testing.T) {
	s := TextStrip("ab", DefaultStyle()).ApplyStyle(DefaultStyle().Foreground(Red))
	for _, seg := range s.Segments() {
		if seg.Style.FG != Red {
			t.Errorf("segment fg = %+v, want red", seg.Style.FG)
		}
	}
}
