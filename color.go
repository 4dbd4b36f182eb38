package textual

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color literal syntax accepted by the style system:
//
//	#rgb #rgba #rrggbb #rrggbbaa
//	rgb(r, g, b)  rgba(r, g, b, a)   a in 0..1
//	named constants ("red", "bright_blue", "transparent", ...)
//
// Any form may carry a trailing alpha percentage ("red 50%") which scales
// the color's alpha. Variables are substituted before this parser runs.

// ansiNames maps basic color names to the 16-color palette.
var ansiNames = map[string]Color{
	"black":          Black,
	"red":            Red,
	"green":          Green,
	"yellow":         Yellow,
	"blue":           Blue,
	"magenta":        Magenta,
	"cyan":           Cyan,
	"white":          White,
	"bright_black":   BrightBlack,
	"bright_red":     BrightRed,
	"bright_green":   BrightGreen,
	"bright_yellow":  BrightYellow,
	"bright_blue":    BrightBlue,
	"bright_magenta": BrightMagenta,
	"bright_cyan":    BrightCyan,
	"bright_white":   BrightWhite,
}

// webNames is a small set of truecolor names beyond the ANSI palette.
var webNames = map[string]Color{
	"gray":   RGB(0x80, 0x80, 0x80),
	"grey":   RGB(0x80, 0x80, 0x80),
	"orange": RGB(0xFF, 0xA5, 0x00),
	"purple": RGB(0x80, 0x00, 0x80),
	"pink":   RGB(0xFF, 0xC0, 0xCB),
	"brown":  RGB(0xA5, 0x2A, 0x2A),
	"navy":   RGB(0x00, 0x00, 0x80),
	"teal":   RGB(0x00, 0x80, 0x80),
	"olive":  RGB(0x80, 0x80, 0x00),
	"maroon": RGB(0x80, 0x00, 0x00),
	"lime":   RGB(0x00, 0xFF, 0x00),
	"silver": RGB(0xC0, 0xC0, 0xC0),
	"gold":   RGB(0xFF, 0xD7, 0x00),
}

// ParseColor parses a color literal, including an optional trailing
// alpha percentage.
func ParseColor(input string) (Color, error) {
	s := strings.TrimSpace(input)
	alphaScale := -1

	// Trailing "NN%" scales alpha.
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		tail := strings.TrimSpace(s[i+1:])
		if strings.HasSuffix(tail, "%") {
			pct, err := strconv.Atoi(strings.TrimSuffix(tail, "%"))
			if err != nil || pct < 0 || pct > 100 {
				return Color{}, fmt.Errorf("invalid alpha percentage %q", tail)
			}
			alphaScale = pct
			s = strings.TrimSpace(s[:i])
		}
	}

	c, err := parseColorBase(s)
	if err != nil {
		return Color{}, err
	}
	if alphaScale >= 0 {
		c.A = uint8(int(c.A) * alphaScale / 100)
	}
	return c, nil
}

func parseColorBase(s string) (Color, error) {
	lower := strings.ToLower(s)

	switch {
	case lower == "transparent":
		return Transparent, nil
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s)
	case strings.HasPrefix(lower, "rgba(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[5:len(s)-1], true)
	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[4:len(s)-1], false)
	}

	if c, ok := ansiNames[lower]; ok {
		return c, nil
	}
	if c, ok := webNames[lower]; ok {
		return c, nil
	}
	return Color{}, fmt.Errorf("unknown color %q", s)
}

func parseHexColor(s string) (Color, error) {
	digits := s[1:]
	hexByte := func(hi, lo byte) (uint8, bool) {
		h, ok1 := hexVal(hi)
		l, ok2 := hexVal(lo)
		return h<<4 | l, ok1 && ok2
	}

	var r, g, b, a uint8
	a = 255
	ok := true
	switch len(digits) {
	case 3, 4:
		// #rgb / #rgba - each digit doubled
		var vals [4]uint8
		for i := 0; i < len(digits); i++ {
			v, o := hexVal(digits[i])
			vals[i] = v<<4 | v
			ok = ok && o
		}
		r, g, b = vals[0], vals[1], vals[2]
		if len(digits) == 4 {
			a = vals[3]
		}
	case 6, 8:
		var o1, o2, o3 bool
		r, o1 = hexByte(digits[0], digits[1])
		g, o2 = hexByte(digits[2], digits[3])
		b, o3 = hexByte(digits[4], digits[5])
		ok = o1 && o2 && o3
		if len(digits) == 8 {
			var o4 bool
			a, o4 = hexByte(digits[6], digits[7])
			ok = ok && o4
		}
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	if !ok {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	return RGBA(r, g, b, a), nil
}

func hexVal(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func parseRGBFunc(args string, hasAlpha bool) (Color, error) {
	parts := strings.Split(args, ",")
	want := 3
	if hasAlpha {
		want = 4
	}
	if len(parts) != want {
		return Color{}, fmt.Errorf("expected %d arguments, got %d", want, len(parts))
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return Color{}, fmt.Errorf("invalid channel value %q", parts[i])
		}
		ch[i] = uint8(v)
	}

	a := uint8(255)
	if hasAlpha {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || f < 0 || f > 1 {
			return Color{}, fmt.Errorf("invalid alpha value %q", parts[3])
		}
		a = uint8(f*255 + 0.5)
	}
	return RGBA(ch[0], ch[1], ch[2], a), nil
}

// basic16 is the xterm RGB rendition of the 16 base colors, used so that
// palette colors can participate in alpha blending.
var basic16 = [16][3]uint8{
	{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
	{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
	{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

// rgbComponents resolves any non-default color to RGB channels.
// Terminal-default colors have no known channels and report ok=false.
func rgbComponents(c Color) (r, g, b uint8, ok bool) {
	switch c.Mode {
	case ColorRGB:
		return c.R, c.G, c.B, true
	case Color16:
		rgb := basic16[c.Index&0x0F]
		return rgb[0], rgb[1], rgb[2], true
	case Color256:
		return palette256(c.Index)
	}
	return 0, 0, 0, false
}

// palette256 converts a 256-palette index to RGB using the standard
// 16 + 6x6x6 cube + 24 grayscale layout.
func palette256(idx uint8) (r, g, b uint8, ok bool) {
	switch {
	case idx < 16:
		rgb := basic16[idx]
		return rgb[0], rgb[1], rgb[2], true
	case idx < 232:
		i := idx - 16
		cube := func(v uint8) uint8 {
			if v == 0 {
				return 0
			}
			return 55 + v*40
		}
		return cube(i / 36), cube(i / 6 % 6), cube(i % 6), true
	default:
		v := 8 + (idx-232)*10
		return v, v, v, true
	}
}

// BlendColors composites over on top of under using over's alpha.
// If over is opaque the result is over; if fully transparent, under.
// Blending happens in RGB space; colors whose channels cannot be
// determined (terminal defaults) pass through unblended.
func BlendColors(under, over Color) Color {
	if over.A == 255 {
		return over
	}
	if over.A == 0 {
		return under
	}
	or, og, ob, ok := rgbComponents(over)
	if !ok {
		return over
	}
	ur, ug, ub, ok := rgbComponents(under)
	if !ok {
		// Unknown base; treat the terminal default as black.
		ur, ug, ub = 0, 0, 0
	}

	base := colorful.Color{R: float64(ur) / 255, G: float64(ug) / 255, B: float64(ub) / 255}
	top := colorful.Color{R: float64(or) / 255, G: float64(og) / 255, B: float64(ob) / 255}
	mixed := base.BlendRgb(top, float64(over.A)/255).Clamped()

	return RGB(uint8(mixed.R*255+0.5), uint8(mixed.G*255+0.5), uint8(mixed.B*255+0.5))
}

// WithAlpha returns the color with its alpha scaled by factor (0..1).
func (c Color) WithAlpha(factor float64) Color {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	c.A = uint8(float64(c.A)*factor + 0.5)
	return c
}
