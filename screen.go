package textual

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mattn/go-runewidth"
	"golang.org/x/sys/unix"
)

// Screen owns the terminal: raw mode, the alternate buffer, resize
// signals, and a double-buffered diff flush that writes only the cells
// that changed since the previous frame.
type Screen struct {
	front  *Buffer
	back   *Buffer
	writer io.Writer
	fd     int

	width  int
	height int

	origTermios *unix.Termios
	inRawMode   bool

	resizeChan chan Size
	sigChan    chan os.Signal

	lastStyle Style
	buf       bytes.Buffer

	// Protects buffers against the resize goroutine.
	mu sync.Mutex
}

// Size is a terminal extent in cells.
type Size struct {
	Width  int
	Height int
}

// NewScreen builds a screen on the given writer, nil meaning stdout.
// Dimensions come from the terminal, falling back to 80x24 when the
// writer is not one.
func NewScreen(w io.Writer) (*Screen, error) {
	if w == nil {
		w = os.Stdout
	}
	fd := int(os.Stdout.Fd())
	width, height, err := terminalSize(fd)
	if err != nil {
		width, height = 80, 24
	}
	return newScreen(w, fd, width, height), nil
}

// NewScreenSize builds a screen with fixed dimensions, for tests and
// non-terminal output.
func NewScreenSize(w io.Writer, width, height int) *Screen {
	return newScreen(w, -1, width, height)
}

func newScreen(w io.Writer, fd, width, height int) *Screen {
	return &Screen{
		front:      NewBuffer(width, height),
		back:       NewBuffer(width, height),
		writer:     w,
		fd:         fd,
		width:      width,
		height:     height,
		resizeChan: make(chan Size, 1),
		sigChan:    make(chan os.Signal, 1),
		lastStyle:  DefaultStyle(),
	}
}

func terminalSize(fd int) (int, int, error) {
	ws, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}

// Size returns the current dimensions.
func (s *Screen) Size() Size { return Size{Width: s.width, Height: s.height} }

// Width returns the screen width in cells.
func (s *Screen) Width() int { return s.width }

// Height returns the screen height in cells.
func (s *Screen) Height() int { return s.height }

// Buffer returns the back buffer the compositor draws into.
func (s *Screen) Buffer() *Buffer { return s.back }

// ResizeChan delivers terminal size changes.
func (s *Screen) ResizeChan() <-chan Size { return s.resizeChan }

// EnterRawMode switches the terminal to raw input, the alternate
// buffer and a hidden cursor, and starts watching SIGWINCH.
func (s *Screen) EnterRawMode() error {
	if s.inRawMode || s.fd < 0 {
		return nil
	}

	termios, err := unix.IoctlGetTermios(s.fd, ioctlGetTermios)
	if err != nil {
		return fmt.Errorf("get termios: %w", err)
	}
	s.origTermios = termios

	raw := *termios
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Cflag |= unix.CS8
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, &raw); err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	s.inRawMode = true

	signal.Notify(s.sigChan, syscall.SIGWINCH)
	go s.watchResize()

	s.writeString("\x1b[?1049h") // alternate screen
	s.writeString("\x1b[2J")     // clear so front matches the terminal
	s.writeString("\x1b[H")
	s.writeString("\x1b[?25l") // hide cursor

	return nil
}

// ExitRawMode restores the terminal.
func (s *Screen) ExitRawMode() error {
	if !s.inRawMode {
		return nil
	}

	s.writeString("\x1b[?25h")
	s.writeString("\x1b[?1049l")

	signal.Stop(s.sigChan)

	if s.origTermios != nil {
		if err := unix.IoctlSetTermios(s.fd, ioctlSetTermios, s.origTermios); err != nil {
			return fmt.Errorf("restore termios: %w", err)
		}
	}
	s.inRawMode = false
	return nil
}

func (s *Screen) watchResize() {
	for range s.sigChan {
		width, height, err := terminalSize(s.fd)
		if err != nil || (width == s.width && height == s.height) {
			continue
		}
		s.mu.Lock()
		s.width = width
		s.height = height
		s.front.Resize(width, height)
		s.back.Resize(width, height)
		s.front.Clear()
		s.back.Clear()
		s.writeString("\x1b[2J")
		s.mu.Unlock()
		select {
		case s.resizeChan <- Size{Width: width, Height: height}:
		default:
		}
	}
}

// FlushStats describes the most recent flush.
type FlushStats struct {
	DirtyRows    int
	ChangedRows  int
	BytesWritten int
}

var lastFlushStats FlushStats

// GetFlushStats returns statistics from the last flush. Only
// meaningful from the app goroutine.
func GetFlushStats() FlushStats { return lastFlushStats }

var debugFlush = os.Getenv("TEXTUAL_DEBUG_FLUSH") != ""

// Flush diffs the back buffer against the front and writes only the
// changed cells, repositioning the cursor per run. A frame identical
// to the previous one writes nothing at all.
func (s *Screen) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()

	dirtyRows, changedRows := 0, 0
	cursorX, cursorY := -1, -1

	for y := 0; y < s.height; y++ {
		if !s.back.RowDirty(y) {
			continue
		}
		dirtyRows++

		rowChanged := false
		for x := 0; x < s.width; x++ {
			cell := s.back.Get(x, y)
			if cell == s.front.Get(x, y) {
				continue
			}
			// Placeholder halves of wide runes carry no output.
			if cell.Rune == 0 {
				s.front.Set(x, y, cell)
				continue
			}
			if !rowChanged {
				rowChanged = true
				changedRows++
			}

			if cursorX != x || cursorY != y {
				s.buf.WriteString("\x1b[")
				s.writeIntToBuf(y + 1)
				s.buf.WriteByte(';')
				s.writeIntToBuf(x + 1)
				s.buf.WriteByte('H')
			}

			s.writeCell(&s.buf, cell)
			s.front.Set(x, y, cell)

			rw := runewidth.RuneWidth(cell.Rune)
			if rw == 0 {
				rw = 1
			}
			cursorX = x + rw
			cursorY = y
		}
	}

	if changedRows > 0 {
		s.buf.WriteString("\x1b[0m")
		s.lastStyle = DefaultStyle()
	}

	written := s.buf.Len()
	if written > 0 {
		s.writer.Write(s.buf.Bytes())
	}
	s.back.ClearDirtyFlags()

	lastFlushStats = FlushStats{DirtyRows: dirtyRows, ChangedRows: changedRows, BytesWritten: written}
	if debugFlush {
		fmt.Fprintf(os.Stderr, "flush: %d dirty rows, %d changed rows, %d bytes\n",
			dirtyRows, changedRows, written)
	}
}

// FlushFull redraws every cell without diffing.
func (s *Screen) FlushFull() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Reset()
	s.buf.WriteString("\x1b[2J\x1b[H")

	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			cell := s.back.Get(x, y)
			if cell.Rune == 0 {
				s.front.Set(x, y, cell)
				continue
			}
			s.writeCell(&s.buf, cell)
			s.front.Set(x, y, cell)
		}
		if y < s.height-1 {
			s.buf.WriteString("\r\n")
		}
	}

	s.buf.WriteString("\x1b[0m")
	s.lastStyle = DefaultStyle()

	s.writer.Write(s.buf.Bytes())
	s.back.ClearDirtyFlags()
	lastFlushStats = FlushStats{DirtyRows: s.height, ChangedRows: s.height, BytesWritten: s.buf.Len()}
}

func (s *Screen) writeCell(buf *bytes.Buffer, cell Cell) {
	if !cell.Style.Equal(s.lastStyle) {
		s.writeStyle(buf, cell.Style)
		s.lastStyle = cell.Style
	}
	buf.WriteRune(cell.Rune)
}

func (s *Screen) writeStyle(buf *bytes.Buffer, style Style) {
	buf.WriteString("\x1b[0")

	if style.Attr.Has(AttrBold) {
		buf.WriteString(";1")
	}
	if style.Attr.Has(AttrDim) {
		buf.WriteString(";2")
	}
	if style.Attr.Has(AttrItalic) {
		buf.WriteString(";3")
	}
	if style.Attr.Has(AttrUnderline) {
		buf.WriteString(";4")
	}
	if style.Attr.Has(AttrBlink) {
		buf.WriteString(";5")
	}
	if style.Attr.Has(AttrInverse) {
		buf.WriteString(";7")
	}
	if style.Attr.Has(AttrStrikethrough) {
		buf.WriteString(";9")
	}

	s.writeColor(buf, style.FG, true)
	s.writeColor(buf, style.BG, false)

	buf.WriteString("m")
}

func (s *Screen) writeColor(buf *bytes.Buffer, c Color, fg bool) {
	switch c.Mode {
	case ColorDefault:
		if fg {
			buf.WriteString(";39")
		} else {
			buf.WriteString(";49")
		}
	case Color16:
		base := 30
		if !fg {
			base = 40
		}
		idx := int(c.Index)
		if idx >= 8 {
			base += 60
			idx -= 8
		}
		buf.WriteByte(';')
		s.writeIntToBuf(base + idx)
	case Color256:
		if fg {
			buf.WriteString(";38;5;")
		} else {
			buf.WriteString(";48;5;")
		}
		s.writeIntToBuf(int(c.Index))
	case ColorRGB:
		if fg {
			buf.WriteString(";38;2;")
		} else {
			buf.WriteString(";48;2;")
		}
		s.writeIntToBuf(int(c.R))
		buf.WriteByte(';')
		s.writeIntToBuf(int(c.G))
		buf.WriteByte(';')
		s.writeIntToBuf(int(c.B))
	}
}

// writeIntToBuf appends a decimal without allocating.
func (s *Screen) writeIntToBuf(n int) {
	if n == 0 {
		s.buf.WriteByte('0')
		return
	}
	if n < 0 {
		s.buf.WriteByte('-')
		n = -n
	}
	var scratch [10]byte
	i := len(scratch)
	for n > 0 {
		i--
		scratch[i] = byte('0' + n%10)
		n /= 10
	}
	s.buf.Write(scratch[i:])
}

func (s *Screen) writeString(str string) {
	io.WriteString(s.writer, str)
}

// Clear empties the back buffer.
func (s *Screen) Clear() { s.back.Clear() }

// ShowCursor makes the terminal cursor visible.
func (s *Screen) ShowCursor() { s.writeString("\x1b[?25h") }

// HideCursor hides the terminal cursor.
func (s *Screen) HideCursor() { s.writeString("\x1b[?25l") }

// MoveCursor positions the cursor, zero-indexed.
func (s *Screen) MoveCursor(x, y int) {
	var scratch [32]byte
	b := scratch[:0]
	b = append(b, "\x1b["...)
	b = appendInt(b, y+1)
	b = append(b, ';')
	b = appendInt(b, x+1)
	b = append(b, 'H')
	s.writer.Write(b)
}

func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	if n < 0 {
		b = append(b, '-')
		n = -n
	}
	var scratch [10]byte
	i := len(scratch)
	for n > 0 {
		i--
		scratch[i] = byte('0' + n%10)
		n /= 10
	}
	return append(b, scratch[i:]...)
}
