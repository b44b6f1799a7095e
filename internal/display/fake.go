package display

import (
	"strings"
	"sync"
)

// Fake is an in-memory 16x2 display. It is safe for concurrent use so that a
// renderer can read it while the controller writes.
type Fake struct {
	mu     sync.Mutex
	cells  [Rows][Columns]byte
	col    int
	row    int
	blink  bool
	clears int
	closed bool

	// Err, if set, is returned by every call.
	Err error
}

// NewFake returns a blank display.
func NewFake() *Fake {
	f := &Fake{}
	f.blank()
	return f
}

func (f *Fake) blank() {
	for r := range f.cells {
		for c := range f.cells[r] {
			f.cells[r][c] = ' '
		}
	}
	f.col, f.row = 0, 0
}

// Clear blanks the buffer.
func (f *Fake) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.blank()
	f.clears++
	return nil
}

// SetCursor moves the write position. Out-of-range positions are clamped.
func (f *Fake) SetCursor(col, row int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.col = min(max(col, 0), Columns-1)
	f.row = min(max(row, 0), Rows-1)
	return nil
}

// Write stores s at the cursor. Characters past the last column are dropped.
func (f *Fake) Write(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for i := 0; i < len(s); i++ {
		if f.col < Columns {
			f.cells[f.row][f.col] = s[i]
		}
		f.col++
	}
	if f.col > Columns-1 {
		f.col = Columns - 1
	}
	return nil
}

// SetBlink records the blink state.
func (f *Fake) SetBlink(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.blink = on
	return nil
}

// Close marks the display closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Line returns row with trailing spaces removed.
func (f *Fake) Line(row int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.TrimRight(string(f.cells[row][:]), " ")
}

// Lines returns both rows padded to the full width.
func (f *Fake) Lines() [Rows]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [Rows]string
	for r := range f.cells {
		out[r] = string(f.cells[r][:])
	}
	return out
}

// Cursor returns the current cursor position and blink state.
func (f *Fake) Cursor() (col, row int, blink bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.col, f.row, f.blink
}

// Clears returns how many times Clear succeeded.
func (f *Fake) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
