package scanner

import (
	"sync"
	"testing"
	"time"

	"inventory-ledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers emitted scan events; the flush timer delivers from
// its own goroutine, so access is locked.
type collector struct {
	mu     sync.Mutex
	events []models.ScanEvent
}

func (c *collector) handle(ev models.ScanEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) codes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Code)
	}
	return out
}

func newTestClassifier(t *testing.T, timeout time.Duration, minLength int) (*Classifier, *collector) {
	t.Helper()
	c := NewClassifier(timeout, minLength)
	col := &collector{}
	c.OnScan(col.handle)
	t.Cleanup(c.Reset)
	return c, col
}

// feedBurst delivers runes with the given synthetic inter-key gap
func feedBurst(c *Classifier, start time.Time, gap time.Duration, s string) time.Time {
	at := start
	for _, r := range s {
		c.Feed(KeyEvent{Key: KeyRune, Rune: r, Time: at})
		at = at.Add(gap)
	}
	return at
}

func TestFastBurstWithEnterEmitsOnce(t *testing.T) {
	c, col := newTestClassifier(t, 100*time.Millisecond, 3)

	start := time.Now()
	at := feedBurst(c, start, 10*time.Millisecond, "123")
	consumed := c.Feed(KeyEvent{Key: KeyEnter, Time: at.Add(150 * time.Millisecond)})

	assert.True(t, consumed, "the terminator of a scan must be suppressed")
	assert.Equal(t, []string{"123"}, col.codes())
}

func TestSlowTypingNeverMerges(t *testing.T) {
	c, col := newTestClassifier(t, 100*time.Millisecond, 3)

	start := time.Now()
	at := feedBurst(c, start, 300*time.Millisecond, "123")
	c.Feed(KeyEvent{Key: KeyEnter, Time: at})

	assert.NotContains(t, col.codes(), "123",
		"characters slower than the timeout must never merge into one scan")
}

func TestTrailingTimerFlushes(t *testing.T) {
	c, col := newTestClassifier(t, 50*time.Millisecond, 3)

	feedBurst(c, time.Now(), 5*time.Millisecond, "5901234123457")

	// No terminator: the flush deadline segments the burst.
	require.Eventually(t, func() bool {
		return len(col.codes()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"5901234123457"}, col.codes())
}

func TestShortBurstBelowMinLength(t *testing.T) {
	c, col := newTestClassifier(t, 50*time.Millisecond, 3)

	feedBurst(c, time.Now(), 5*time.Millisecond, "12")
	time.Sleep(200 * time.Millisecond)

	assert.Empty(t, col.codes())
}

func TestEnterOnEmptyBufferPassesThrough(t *testing.T) {
	c, col := newTestClassifier(t, 100*time.Millisecond, 3)

	consumed := c.Feed(KeyEvent{Key: KeyEnter, Time: time.Now()})

	assert.False(t, consumed, "an empty field's Enter keeps its ordinary meaning")
	assert.Empty(t, col.codes())
}

func TestBackspaceClearsWithoutEmitting(t *testing.T) {
	c, col := newTestClassifier(t, 50*time.Millisecond, 3)

	at := feedBurst(c, time.Now(), 5*time.Millisecond, "123")
	consumed := c.Feed(KeyEvent{Key: KeyBackspace, Time: at})
	assert.False(t, consumed, "the field performs its normal deletion")

	// Neither the canceled timer nor a follow-up Enter may emit.
	time.Sleep(150 * time.Millisecond)
	consumed = c.Feed(KeyEvent{Key: KeyEnter, Time: at.Add(150 * time.Millisecond)})
	assert.False(t, consumed)
	assert.Empty(t, col.codes())
}

func TestNavigationKeyDiscardsBuffer(t *testing.T) {
	c, col := newTestClassifier(t, 50*time.Millisecond, 3)

	at := feedBurst(c, time.Now(), 5*time.Millisecond, "456")
	c.Feed(KeyEvent{Key: KeyOther, Time: at})

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, col.codes())
}

func TestCanceledTimerNeverFiresStaleFinalize(t *testing.T) {
	c, col := newTestClassifier(t, 50*time.Millisecond, 3)

	at := feedBurst(c, time.Now(), 5*time.Millisecond, "123")
	c.Feed(KeyEvent{Key: KeyEnter, Time: at})
	require.Equal(t, []string{"123"}, col.codes())

	// Long after the original deadline, no duplicate appears.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"123"}, col.codes())
}

func TestSeparateBurstsEmitSeparately(t *testing.T) {
	c, col := newTestClassifier(t, 100*time.Millisecond, 3)

	start := time.Now()
	at := feedBurst(c, start, 10*time.Millisecond, "1234567890128")
	c.Feed(KeyEvent{Key: KeyEnter, Time: at})

	at = at.Add(2 * time.Second)
	at = feedBurst(c, at, 10*time.Millisecond, "TEST-BARCODE-123")
	c.Feed(KeyEvent{Key: KeyEnter, Time: at})

	assert.Equal(t, []string{"1234567890128", "TEST-BARCODE-123"}, col.codes())
}

func TestScanEventCarriesIdentity(t *testing.T) {
	c, col := newTestClassifier(t, 100*time.Millisecond, 3)

	at := feedBurst(c, time.Now(), 10*time.Millisecond, "ABC")
	c.Feed(KeyEvent{Key: KeyEnter, Time: at})

	require.Len(t, col.events, 1)
	assert.NotEmpty(t, col.events[0].EventID)
	assert.False(t, col.events[0].At.IsZero())
}

func TestWhitespaceTrimmedBeforeThreshold(t *testing.T) {
	c, col := newTestClassifier(t, 100*time.Millisecond, 3)

	// Two characters padded with a space: trims to length 2, below the
	// threshold.
	start := time.Now()
	c.Feed(KeyEvent{Key: KeyRune, Rune: '1', Time: start})
	c.Feed(KeyEvent{Key: KeyRune, Rune: '2', Time: start.Add(10 * time.Millisecond)})
	c.Feed(KeyEvent{Key: KeyRune, Rune: ' ', Time: start.Add(20 * time.Millisecond)})
	c.Feed(KeyEvent{Key: KeyEnter, Time: start.Add(30 * time.Millisecond)})

	assert.Empty(t, col.codes())
}
