package transport

import "time"

// BackoffPolicy defines reconnect pacing: the delay grows by Step for each
// consecutive failure, clamped between Floor and Ceiling.
type BackoffPolicy struct {
	Step    time.Duration
	Floor   time.Duration
	Ceiling time.Duration
}

// DefaultBackoffPolicy matches the remote control endpoint contract:
// 5s per failure, never below 1s, never above 60s.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Step:    5 * time.Second,
		Floor:   time.Second,
		Ceiling: 60 * time.Second,
	}
}

// Delay returns the pause before the next attempt given the number of
// consecutive failures observed before the one that just happened. A fresh
// failure streak (failures == 0) waits the floor value.
func (p BackoffPolicy) Delay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	d := time.Duration(failures) * p.Step
	if p.Ceiling > 0 && d > p.Ceiling {
		d = p.Ceiling
	}
	if d < p.Floor {
		d = p.Floor
	}
	return d
}

func (p BackoffPolicy) withDefaults() BackoffPolicy {
	def := DefaultBackoffPolicy()
	if p.Step <= 0 {
		p.Step = def.Step
	}
	if p.Floor <= 0 {
		p.Floor = def.Floor
	}
	if p.Ceiling <= 0 {
		p.Ceiling = def.Ceiling
	}
	return p
}
