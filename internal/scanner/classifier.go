package scanner

import (
	"strings"
	"sync"
	"time"

	"inventory-ledger/internal/models"
	"inventory-ledger/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Key identifies the kind of key behind an input event
type Key int

const (
	// KeyRune is a printable character carried in KeyEvent.Rune
	KeyRune Key = iota
	// KeyEnter terminates a scan when the buffer is non-empty
	KeyEnter
	// KeyBackspace is the field's ordinary deletion key
	KeyBackspace
	// KeyOther covers arrows, function keys and other non-printables
	KeyOther
)

// KeyEvent is one raw key event forwarded from an attached text field.
// Time is the event's own timestamp, not the arrival time, so that
// recorded or synthetic streams classify identically to live input.
type KeyEvent struct {
	Key  Key
	Rune rune
	Time time.Time
}

// Handler receives classified scan events
type Handler func(models.ScanEvent)

// Classifier disambiguates scanner-generated keystroke bursts from
// human typing on a single input stream. Scanner hardware emits
// characters faster than the timeout; a human's slower cadence lets
// the gap or the flush timer segment the buffer into separate
// attempts that rarely reach the length threshold.
//
// The classifier knows nothing about the ledger: it is a pure
// input-shape transformer, one instance per attached field.
type Classifier struct {
	timeout   time.Duration
	minLength int
	logger    *zap.Logger

	mu      sync.Mutex
	handler Handler
	buffer  []rune
	last    time.Time
	timer   *time.Timer
	gen     uint64
}

// NewClassifier creates a classifier with the given inter-keystroke
// timeout and minimum scan length. Non-positive arguments fall back to
// the defaults (100ms, 3).
func NewClassifier(timeout time.Duration, minLength int) *Classifier {
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	if minLength <= 0 {
		minLength = 3
	}
	return &Classifier{
		timeout:   timeout,
		minLength: minLength,
		logger:    util.GetLogger(),
	}
}

// OnScan registers the handler for classified scan events. At most one
// event is delivered per accumulation window.
func (c *Classifier) OnScan(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Feed consumes one key event and reports whether the event was
// consumed by the classifier. A consumed terminator must not be acted
// on by the field again; everything else passes through.
func (c *Classifier) Feed(ev KeyEvent) bool {
	c.mu.Lock()

	var emit *models.ScanEvent
	consumed := false

	switch ev.Key {
	case KeyEnter:
		if len(c.buffer) > 0 {
			emit = c.finalizeLocked(ev.Time)
			consumed = true
		}

	case KeyBackspace:
		// Buffer is abandoned; the field performs its normal deletion.
		c.clearLocked()

	case KeyOther:
		// A scanner burst never contains navigation keys, so any such
		// key marks the buffer as human typing.
		c.clearLocked()

	case KeyRune:
		if len(c.buffer) > 0 && ev.Time.Sub(c.last) > c.timeout {
			// Slow arrival: the previous accumulation stands alone.
			emit = c.finalizeLocked(ev.Time)
		}
		c.buffer = append(c.buffer, ev.Rune)
		c.last = ev.Time
		c.armTimerLocked()
	}

	handler := c.handler
	c.mu.Unlock()

	if emit != nil && handler != nil {
		handler(*emit)
	}
	return consumed
}

// Reset clears all accumulation state. Call when detaching a field.
func (c *Classifier) Reset() {
	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
}

// armTimerLocked (re)arms the single-shot flush deadline. The
// generation counter guards against a stale timer firing after it was
// logically canceled.
func (c *Classifier) armTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.timeout, func() { c.flushExpired(gen) })
}

func (c *Classifier) flushExpired(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	emit := c.finalizeLocked(time.Now())
	handler := c.handler
	c.mu.Unlock()

	if emit != nil && handler != nil {
		handler(*emit)
	}
}

// finalizeLocked closes the current accumulation window. It emits at
// most one event, and always resets the buffer and timing state even
// when the length threshold is not met.
func (c *Classifier) finalizeLocked(at time.Time) *models.ScanEvent {
	code := strings.TrimSpace(string(c.buffer))
	c.clearLocked()

	if len([]rune(code)) < c.minLength {
		if code != "" {
			util.ScanBurstsDiscardedTotal.Inc()
		}
		return nil
	}

	util.ScansClassifiedTotal.Inc()
	c.logger.Debug("Scan classified", zap.String("code", code))
	return &models.ScanEvent{
		EventID: uuid.New().String(),
		Code:    code,
		At:      at,
	}
}

// clearLocked drops the buffer and cancels any pending flush
func (c *Classifier) clearLocked() {
	c.buffer = c.buffer[:0]
	c.last = time.Time{}
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
