package scanner

import (
	"strings"
	"sync"
	"time"
)

// Key identifies non-character keys the buffer reacts to.
type Key int

const (
	KeyNone Key = iota
	KeyEnter
)

// KeyEvent is one keystroke from the input stream. Time is the arrival
// timestamp; the zero value means "now".
type KeyEvent struct {
	Rune rune
	Key  Key
	Time time.Time
}

// Mode gates whether keystrokes feed the buffer. While an operator is typing
// into a text field the session switches to ModeTextEntry and scans are not
// collected, so a barcode can never corrupt the field and the field can never
// pollute a scan.
type Mode int

const (
	ModeArmed Mode = iota
	ModeTextEntry
)

// BufferConfig holds the scan boundary parameters.
type BufferConfig struct {
	// Timeout is the inter-keystroke timeout. No keystroke within it clears
	// the buffer; a gap longer than twice it starts a new scan.
	Timeout   time.Duration
	MinLength int
	MaxLength int
}

func (c BufferConfig) withDefaults() BufferConfig {
	if c.Timeout <= 0 {
		c.Timeout = 100 * time.Millisecond
	}
	if c.MinLength <= 0 {
		c.MinLength = 8
	}
	if c.MaxLength <= 0 {
		c.MaxLength = 20
	}
	return c
}

// Buffer accumulates keystrokes into candidate barcodes and emits a completed
// scan when an Enter arrives with a plausible buffer length. Hardware
// scanners type fast; anything slower than the timeout is treated as a stale
// partial scan and discarded.
type Buffer struct {
	mu     sync.Mutex
	cfg    BufferConfig
	chars  []rune
	lastAt time.Time
	mode   Mode
	timer  *time.Timer
	gen    uint64
	onScan func(code string)
	closed bool
}

// NewBuffer creates a scan buffer. onScan is invoked, outside the buffer
// lock, once per completed scan.
func NewBuffer(cfg BufferConfig, onScan func(code string)) *Buffer {
	return &Buffer{
		cfg:    cfg.withDefaults(),
		onScan: onScan,
	}
}

// accepts reports whether the rune belongs to the barcode alphabet.
func accepts(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

// Handle feeds one keystroke into the buffer.
func (b *Buffer) Handle(ev KeyEvent) {
	b.mu.Lock()

	if b.closed || b.mode == ModeTextEntry {
		b.mu.Unlock()
		return
	}

	if ev.Key == KeyEnter {
		code := strings.TrimSpace(string(b.chars))
		emit := len(b.chars) >= b.cfg.MinLength && len(b.chars) <= b.cfg.MaxLength
		b.reset()
		b.mu.Unlock()

		if emit && b.onScan != nil {
			b.onScan(code)
		}
		return
	}

	if !accepts(ev.Rune) {
		b.mu.Unlock()
		return
	}

	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}

	// A long silence means whatever is in the buffer belongs to an earlier,
	// abandoned scan.
	if !b.lastAt.IsZero() && at.Sub(b.lastAt) > 2*b.cfg.Timeout {
		b.chars = b.chars[:0]
	}

	b.chars = append(b.chars, ev.Rune)
	if len(b.chars) > b.cfg.MaxLength {
		b.reset()
		b.mu.Unlock()
		return
	}

	b.lastAt = at
	b.armTimer()
	b.mu.Unlock()
}

// reset clears the buffer and invalidates any pending timer. Caller must
// hold mu.
func (b *Buffer) reset() {
	b.chars = b.chars[:0]
	b.lastAt = time.Time{}
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// armTimer schedules the idle expiry for the current buffer generation.
// Caller must hold mu.
func (b *Buffer) armTimer() {
	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.cfg.Timeout, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed || b.gen != gen {
			return
		}
		b.chars = b.chars[:0]
		b.lastAt = time.Time{}
	})
}

// SetMode switches input gating. Entering text-entry mode discards any
// partial scan.
func (b *Buffer) SetMode(mode Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mode == mode {
		return
	}
	b.mode = mode
	if mode == ModeTextEntry {
		b.reset()
	}
}

// Mode returns the current input mode.
func (b *Buffer) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Pending returns the number of buffered characters. Used by tests and the
// session status endpoint.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chars)
}

// Close discards the buffer and stops its timer. Further keystrokes are
// ignored.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.reset()
}
