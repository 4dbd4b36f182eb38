package textual

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the payload of a style Value.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueString
	ValueInt
	ValueFloat
	ValueColor
	ValueDimension
	ValueSpacing
	ValueBorder
)

// Unit qualifies a Dimension.
type Unit uint8

const (
	UnitCells    Unit = iota // fixed number of cells
	UnitAuto                 // size to content
	UnitFraction             // share of remaining space (fr)
	UnitPercent              // percentage of container
)

// Dimension is a width/height style value.
type Dimension struct {
	Unit   Unit
	Amount float64
}

// Cells returns a fixed-cell dimension.
func Cells(n int) Dimension { return Dimension{Unit: UnitCells, Amount: float64(n)} }

// Auto is the content-sized dimension.
var Auto = Dimension{Unit: UnitAuto}

// Fr returns a fractional dimension.
func Fr(n float64) Dimension { return Dimension{Unit: UnitFraction, Amount: n} }

// Percent returns a percentage dimension.
func Percent(n float64) Dimension { return Dimension{Unit: UnitPercent, Amount: n} }

// Spacing is a per-edge cell count (margin, padding).
type Spacing struct {
	Top, Right, Bottom, Left int
}

// Horizontal returns left+right.
func (s Spacing) Horizontal() int { return s.Left + s.Right }

// Vertical returns top+bottom.
func (s Spacing) Vertical() int { return s.Top + s.Bottom }

// BorderSpec is the parsed form of the "border" shorthand (style + color).
type BorderSpec struct {
	Set   bool
	Chars BorderChars
	Color Color
}

// Value is a single resolved style property value. All payload fields
// are comparable so computed styles can be compared with ==.
type Value struct {
	Kind    ValueKind
	Str     string
	Int     int
	Float   float64
	Color   Color
	Dim     Dimension
	Spacing Spacing
	Border  BorderSpec
}

func stringValue(s string) Value     { return Value{Kind: ValueString, Str: s} }
func intValue(n int) Value           { return Value{Kind: ValueInt, Int: n} }
func floatValue(f float64) Value     { return Value{Kind: ValueFloat, Float: f} }
func colorValue(c Color) Value       { return Value{Kind: ValueColor, Color: c} }
func dimValue(d Dimension) Value     { return Value{Kind: ValueDimension, Dim: d} }
func spacingValue(s Spacing) Value   { return Value{Kind: ValueSpacing, Spacing: s} }
func borderValue(b BorderSpec) Value { return Value{Kind: ValueBorder, Border: b} }

// PropertyDef describes one style property: its engine default, whether
// it inherits from the parent's computed style, and how raw declaration
// text parses into a Value. Every layout-relevant property has a default,
// so resolution can never leave a required property unresolved.
type PropertyDef struct {
	Name      string
	Inherited bool
	Default   Value
	Parse     func(raw string) (Value, error)
}

func parseColorValue(raw string) (Value, error) {
	c, err := ParseColor(raw)
	if err != nil {
		return Value{}, err
	}
	return colorValue(c), nil
}

func parseStringValue(allowed ...string) func(string) (Value, error) {
	return func(raw string) (Value, error) {
		s := strings.ToLower(strings.TrimSpace(raw))
		for _, a := range allowed {
			if s == a {
				return stringValue(s), nil
			}
		}
		return Value{}, fmt.Errorf("expected one of %v, got %q", allowed, raw)
	}
}

func parseAnyString(raw string) (Value, error) {
	return stringValue(strings.TrimSpace(raw)), nil
}

func parseIntValue(raw string) (Value, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Value{}, fmt.Errorf("expected integer, got %q", raw)
	}
	return intValue(n), nil
}

func parseFloatValue(raw string) (Value, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Value{}, fmt.Errorf("expected number, got %q", raw)
	}
	return floatValue(f), nil
}

func parseOpacity(raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid opacity %q", raw)
		}
		s = strconv.FormatFloat(pct/100, 'f', -1, 64)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return Value{}, fmt.Errorf("invalid opacity %q", raw)
	}
	return floatValue(f), nil
}

// ParseDimension parses "auto", "12", "1fr" or "50%".
func ParseDimension(raw string) (Dimension, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "auto":
		return Auto, nil
	case strings.HasSuffix(s, "fr"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "fr"), 64)
		if err != nil || f < 0 {
			return Dimension{}, fmt.Errorf("invalid fraction %q", raw)
		}
		return Fr(f), nil
	case strings.HasSuffix(s, "%"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil || f < 0 {
			return Dimension{}, fmt.Errorf("invalid percentage %q", raw)
		}
		return Percent(f), nil
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Dimension{}, fmt.Errorf("invalid dimension %q", raw)
		}
		return Cells(n), nil
	}
}

func parseDimensionValue(raw string) (Value, error) {
	d, err := ParseDimension(raw)
	if err != nil {
		return Value{}, err
	}
	return dimValue(d), nil
}

// parseSpacing accepts the 1, 2 and 4 value shorthands.
func parseSpacing(raw string) (Value, error) {
	fields := strings.Fields(raw)
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Value{}, fmt.Errorf("invalid spacing %q", raw)
		}
		nums[i] = n
	}
	switch len(nums) {
	case 1:
		return spacingValue(Spacing{nums[0], nums[0], nums[0], nums[0]}), nil
	case 2:
		return spacingValue(Spacing{nums[0], nums[1], nums[0], nums[1]}), nil
	case 4:
		return spacingValue(Spacing{nums[0], nums[1], nums[2], nums[3]}), nil
	default:
		return Value{}, fmt.Errorf("spacing takes 1, 2 or 4 values, got %d", len(nums))
	}
}

// parseBorder accepts "none" or "<style> <color>".
func parseBorder(raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	if strings.ToLower(s) == "none" {
		return borderValue(BorderSpec{}), nil
	}
	name, rest, _ := strings.Cut(s, " ")
	chars, ok := borderCharsByName[strings.ToLower(name)]
	if !ok {
		return Value{}, fmt.Errorf("unknown border style %q", name)
	}
	color := DefaultColor()
	if rest = strings.TrimSpace(rest); rest != "" {
		c, err := ParseColor(rest)
		if err != nil {
			return Value{}, err
		}
		color = c
	}
	return borderValue(BorderSpec{Set: true, Chars: chars, Color: color}), nil
}

// parseTextStyle accepts a space-separated attribute list ("bold italic").
func parseTextStyle(raw string) (Value, error) {
	var attr Attribute
	for _, f := range strings.Fields(strings.ToLower(raw)) {
		switch f {
		case "none":
		case "bold":
			attr = attr.With(AttrBold)
		case "dim":
			attr = attr.With(AttrDim)
		case "italic":
			attr = attr.With(AttrItalic)
		case "underline":
			attr = attr.With(AttrUnderline)
		case "blink":
			attr = attr.With(AttrBlink)
		case "reverse":
			attr = attr.With(AttrInverse)
		case "strike":
			attr = attr.With(AttrStrikethrough)
		default:
			return Value{}, fmt.Errorf("unknown text style %q", f)
		}
	}
	return intValue(int(attr)), nil
}

// properties is the engine's property registry. Inherited properties
// propagate from the parent computed style when unset locally.
var properties = map[string]PropertyDef{
	"color":        {Name: "color", Inherited: true, Default: colorValue(DefaultColor()), Parse: parseColorValue},
	"background":   {Name: "background", Default: colorValue(Transparent), Parse: parseColorValue},
	"text-style":   {Name: "text-style", Inherited: true, Default: intValue(0), Parse: parseTextStyle},
	"opacity":      {Name: "opacity", Default: floatValue(1), Parse: parseOpacity},
	"width":        {Name: "width", Default: dimValue(Auto), Parse: parseDimensionValue},
	"height":       {Name: "height", Default: dimValue(Auto), Parse: parseDimensionValue},
	"margin":       {Name: "margin", Default: spacingValue(Spacing{}), Parse: parseSpacing},
	"padding":      {Name: "padding", Default: spacingValue(Spacing{}), Parse: parseSpacing},
	"border":       {Name: "border", Default: borderValue(BorderSpec{}), Parse: parseBorder},
	"layout":       {Name: "layout", Default: stringValue("vertical"), Parse: parseStringValue("vertical", "horizontal", "grid", "center")},
	"dock":         {Name: "dock", Default: stringValue(""), Parse: parseStringValue("", "top", "right", "bottom", "left")},
	"offset-x":     {Name: "offset-x", Default: intValue(0), Parse: parseIntValue},
	"offset-y":     {Name: "offset-y", Default: intValue(0), Parse: parseIntValue},
	"grid-size":    {Name: "grid-size", Default: intValue(1), Parse: parseIntValue},
	"grid-columns": {Name: "grid-columns", Default: stringValue(""), Parse: parseAnyString},
	"grid-rows":    {Name: "grid-rows", Default: stringValue(""), Parse: parseAnyString},
	"layer":        {Name: "layer", Default: stringValue(""), Parse: parseAnyString},
	"display":      {Name: "display", Default: stringValue("block"), Parse: parseStringValue("block", "none")},
	"visibility":   {Name: "visibility", Default: stringValue("visible"), Parse: parseStringValue("visible", "hidden")},
}

// PropertyNames returns the registered property names, sorted.
func PropertyNames() []string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputedStyle is the fully resolved style for one node: every
// registered property has a final value after cascade, inheritance and
// variable substitution. It is derived data and never mutated in place.
type ComputedStyle struct {
	values map[string]Value
}

func newComputedStyle() ComputedStyle {
	return ComputedStyle{values: make(map[string]Value, len(properties))}
}

// Get returns the value for a property, falling back to the engine
// default for unknown names.
func (cs ComputedStyle) Get(name string) Value {
	if cs.values != nil {
		if v, ok := cs.values[name]; ok {
			return v
		}
	}
	if def, ok := properties[name]; ok {
		return def.Default
	}
	return Value{}
}

// Equal reports whether two computed styles resolve every property to
// the same value.
func (cs ComputedStyle) Equal(other ComputedStyle) bool {
	for name := range properties {
		if cs.Get(name) != other.Get(name) {
			return false
		}
	}
	return true
}

// Typed accessors.

func (cs ComputedStyle) Color() Color      { return cs.Get("color").Color }
func (cs ComputedStyle) Background() Color { return cs.Get("background").Color }
func (cs ComputedStyle) TextAttr() Attribute {
	return Attribute(cs.Get("text-style").Int)
}
func (cs ComputedStyle) Opacity() float64     { return cs.Get("opacity").Float }
func (cs ComputedStyle) Width() Dimension     { return cs.Get("width").Dim }
func (cs ComputedStyle) HeightDim() Dimension { return cs.Get("height").Dim }
func (cs ComputedStyle) Margin() Spacing      { return cs.Get("margin").Spacing }
func (cs ComputedStyle) Padding() Spacing     { return cs.Get("padding").Spacing }
func (cs ComputedStyle) Border() BorderSpec   { return cs.Get("border").Border }
func (cs ComputedStyle) Layout() string       { return cs.Get("layout").Str }
func (cs ComputedStyle) Dock() string         { return cs.Get("dock").Str }
func (cs ComputedStyle) OffsetX() int         { return cs.Get("offset-x").Int }
func (cs ComputedStyle) OffsetY() int         { return cs.Get("offset-y").Int }
func (cs ComputedStyle) GridSize() int        { return cs.Get("grid-size").Int }
func (cs ComputedStyle) GridColumns() string  { return cs.Get("grid-columns").Str }
func (cs ComputedStyle) GridRows() string     { return cs.Get("grid-rows").Str }
func (cs ComputedStyle) Layer() string        { return cs.Get("layer").Str }
func (cs ComputedStyle) Display() string      { return cs.Get("display").Str }
func (cs ComputedStyle) Visible() bool        { return cs.Get("visibility").Str != "hidden" }

// TextStyle folds color, background and attributes into a paint Style.
func (cs ComputedStyle) TextStyle() Style {
	return Style{FG: cs.Color(), BG: cs.Background(), Attr: cs.TextAttr()}
}
