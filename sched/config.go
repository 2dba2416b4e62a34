package sched

import "time"

// Config tunes a Scheduler. The zero value is valid; unset fields fall
// back to the documented defaults.
type Config struct {
	// QuantumTicks is the number of timer ticks a non-real-time thread
	// may run before a reschedule is requested (spec §4.1 Preemption).
	// **Defaults to 8, if 0.**
	QuantumTicks int32

	// TickInterval is the wall-clock period between timer ticks driving
	// quantum decrement (spec §2.2). **Defaults to 10ms, if 0.**
	TickInterval time.Duration

	// TimerResolution is passed through to the underlying timer.Service.
	// **Defaults to 1ms, if 0.**
	TimerResolution time.Duration
}

func (c *Config) quantumTicks() int32 {
	if c == nil || c.QuantumTicks <= 0 {
		return 8
	}
	return c.QuantumTicks
}

func (c *Config) tickInterval() time.Duration {
	if c == nil || c.TickInterval <= 0 {
		return 10 * time.Millisecond
	}
	return c.TickInterval
}

func (c *Config) timerResolution() time.Duration {
	if c == nil || c.TimerResolution <= 0 {
		return time.Millisecond
	}
	return c.TimerResolution
}
