package secureclip

import (
	"sync"
	"testing"
	"time"
)

// fakeBoard stands in for the system clipboard.
type fakeBoard struct {
	mu       sync.Mutex
	contents string
}

func (f *fakeBoard) write(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = s
	return nil
}

func (f *fakeBoard) read() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contents
}

func newTestClipper(timeout time.Duration) (*Clipper, *fakeBoard) {
	board := &fakeBoard{}
	c := New(timeout)
	c.write = board.write
	return c, board
}

func TestSecureClip(t *testing.T) {
	c, board := newTestClipper(100 * time.Millisecond)
	if err := c.Clip("test"); err != nil {
		t.Fatal(err)
	}
	if board.read() != "test" {
		t.Fatal("password was not copied")
	}

	time.Sleep(c.Timeout() + 100*time.Millisecond)
	if board.read() != "" {
		t.Fatal("did not clear clipboard contents after timeout")
	}
}

func TestSecureClipStaggeredCalls(t *testing.T) {
	c, board := newTestClipper(200 * time.Millisecond)
	if err := c.Clip("test1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(120 * time.Millisecond)
	if err := c.Clip("test2"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(120 * time.Millisecond)
	if board.read() != "test2" {
		t.Fatal("clipboard prematurely cleared")
	}
	time.Sleep(200 * time.Millisecond)
	if board.read() != "" {
		t.Fatal("clipboard was not cleared")
	}
}

func TestClear(t *testing.T) {
	c, board := newTestClipper(time.Hour)
	if err := c.Clip("secret"); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if board.read() != "" {
		t.Fatal("clipboard was not cleared")
	}
}

func TestDefaultTimeout(t *testing.T) {
	if New(0).Timeout() != DefaultTimeout {
		t.Fatal("expected default timeout")
	}
}
