package core

import "time"

// Clock measures elapsed wall time in seconds.
type Clock struct {
	startTime float64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

func now() float64 {
	return float64(time.Now().UnixNano()) * 1e-9
}

// Updates the clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = now() - c.startTime
	}
}

// Starts the clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = now()
	c.elapsed = 0
}

// Stops the clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Elapsed returns seconds since Start, as of the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
