package replay

// MinuteMS is the replay clock's fixed step size (spec.md §3).
const MinuteMS int64 = 60_000

// Clock is the virtual time cursor the DispatchLoop advances one minute
// at a time from start to end (spec.md §3, §4.4). It exposes
// RewindOneStep as a flag the loop sets mid-scan rather than mutating
// the clock value directly, per spec.md §9's guidance to express the
// rewind as "retry this window" rather than literal `clock -= MINUTE_MS`
// arithmetic scattered through the scan.
type Clock struct {
	now         int64
	end         int64
	retryWindow bool
}

// NewClock creates a clock starting at startMS and terminating once it
// advances past endMS.
func NewClock(startMS, endMS int64) *Clock {
	return &Clock{now: startMS, end: endMS}
}

// Now returns the current window's lower bound in ms.
func (c *Clock) Now() int64 { return c.now }

// Done reports whether the clock has advanced past its end bound
// (spec.md §4.4, "done" state).
func (c *Clock) Done() bool { return c.now > c.end }

// RewindOneStep marks the current window for a re-scan instead of
// advancing on the next Advance call. It may be called any number of
// times within one pass; only whether it was called at least once
// matters (spec.md §4.4).
func (c *Clock) RewindOneStep() { c.retryWindow = true }

// Advance applies the net effect of the pass just scanned: if
// RewindOneStep was called since the last Advance, the clock does not
// move (the same window will be rescanned); otherwise it steps forward
// by one minute (spec.md §4.3, §4.4).
func (c *Clock) Advance() {
	if c.retryWindow {
		c.retryWindow = false
		return
	}
	c.now += MinuteMS
}
