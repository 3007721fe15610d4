package domain

import "sync/atomic"

// CancelToken is a shared cooperative cancellation flag. Each discovery run
// and each layout engine owns its own token.
type CancelToken struct {
	flag atomic.Bool
}

// NewCancelToken returns an unset token
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel sets the flag
func (c *CancelToken) Cancel() {
	if c != nil {
		c.flag.Store(true)
	}
}

// Reset clears the flag
func (c *CancelToken) Reset() {
	if c != nil {
		c.flag.Store(false)
	}
}

// Cancelled reports whether the flag is set. A nil token is never cancelled.
func (c *CancelToken) Cancelled() bool {
	return c != nil && c.flag.Load()
}
