package timebudget

// Countdown is not safe for concurrent use; the owner serializes Tick calls.
type Countdown struct {
	remaining int
	expired   bool
}

func NewCountdown(remainingSeconds int) *Countdown {
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	return &Countdown{remaining: remainingSeconds, expired: remainingSeconds == 0}
}

func (c *Countdown) Remaining() int {
	return c.remaining
}

// Tick consumes one second. expired is reported on the tick that reaches
// zero and never again.
func (c *Countdown) Tick() (remaining int, expired bool) {
	if c.expired {
		return 0, false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.expired = true
		return 0, true
	}
	return c.remaining, false
}

func (c *Countdown) Reset(remainingSeconds int) {
	if remainingSeconds < 0 {
		remainingSeconds = 0
	}
	c.remaining = remainingSeconds
	c.expired = remainingSeconds == 0
}
