// Package secureclip copies generated passwords to the system clipboard and
// wipes them after a timeout.
package secureclip

import (
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/cockroachdb/errors"
)

// DefaultTimeout is how long a password stays on the clipboard by default.
const DefaultTimeout = 30 * time.Second

// Clipper owns the clipboard for one process. The clipboard is cleared
// timeout after the most recent Clip.
type Clipper struct {
	timeout time.Duration
	write   func(string) error

	mu    sync.Mutex
	timer *time.Timer
}

// New returns a Clipper writing to the system clipboard.
func New(timeout time.Duration) *Clipper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Clipper{timeout: timeout, write: clipboard.WriteAll}
}

// Timeout returns the delay before the clipboard is cleared.
func (c *Clipper) Timeout() time.Duration { return c.timeout }

// Clip copies secret to the clipboard and schedules it to be cleared,
// replacing any earlier schedule.
func (c *Clipper) Clip(secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(secret); err != nil {
		return errors.Wrap(err, "write clipboard")
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.timeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.write("")
		c.timer = nil
	})
	return nil
}

// Clear wipes the clipboard now and cancels the pending clear.
func (c *Clipper) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return errors.Wrap(c.write(""), "clear clipboard")
}
