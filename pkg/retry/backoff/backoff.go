// Package backoff provides delay schedules for retry.Backoff.
package backoff

import (
	"math"
	"time"
)

// Strategy returns the delay to wait after the given attempt, counting from 1.
type Strategy func(attempts uint) time.Duration

// Constant waits interval after every attempt.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// BinaryExponential doubles the delay after every attempt, starting at
// baseDelay: baseDelay, 2*baseDelay, 4*baseDelay, ...
//
// The delay saturates at math.MaxInt64 instead of overflowing.
func BinaryExponential(baseDelay time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		if attempts == 0 {
			attempts = 1
		}

		shift := attempts - 1
		if shift >= 63 || baseDelay > math.MaxInt64>>shift {
			return math.MaxInt64
		}
		return baseDelay << shift
	}
}
