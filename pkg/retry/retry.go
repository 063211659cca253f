// Package retry re-executes failing actions under a chain of strategies.
package retry

import (
	"context"
	"time"

	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

// Action is a function to be performed in a retriable manner.
type Action func() error

// Strategy decides, after a failed attempt, whether the action should run
// again. Strategies may block, eg. to back off.
type Strategy func(attempts uint, err error) bool

// Retry runs action until it succeeds or one of the strategies declines
// another attempt, returning the number of attempts made and the last error.
//
// Strategies are consulted in order and the first refusal wins, so blocking
// strategies belong at the end of the chain.
func Retry(action Action, strategies ...Strategy) (uint, error) {
	var attempts uint
	for {
		attempts++

		err := action()
		if err == nil {
			return attempts, nil
		}

		for _, s := range strategies {
			if !s(attempts, err) {
				return attempts, err
			}
		}
	}
}

// Limit caps the total number of attempts, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableFunc only retries errors for which isRetriable returns true.
func RetriableFunc(isRetriable func(err error) bool) Strategy {
	return func(_ uint, err error) bool {
		return isRetriable(err)
	}
}

// Backoff sleeps for the delay given by strategy, capped at maxBackoff.
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, _ error) bool {
		delay := strategy(attempts)
		if delay > maxBackoff || delay < 0 {
			delay = maxBackoff
		}
		sleeperImpl.Sleep(delay)
		return true
	}
}

// Context stops retrying once ctx is done. Place it after Backoff so that a
// cancellation during the delay is observed before the next attempt.
func Context(ctx context.Context) Strategy {
	return func(uint, error) bool {
		return ctx.Err() == nil
	}
}

type sleeper interface {
	Sleep(time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

var sleeperImpl sleeper = realSleeper{}
