package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrContextDone   = errors.New("context cancelled")
	ErrLockHeld      = errors.New("lock already held")

	// ErrHalted is returned by the risk manager's halt gate (spec.md §4.6).
	ErrHalted = errors.New("trading halted")
	// ErrKillSwitchActive marks execution paths short-circuited by the kill switch.
	ErrKillSwitchActive = errors.New("kill switch active")
	// ErrBreakerOpen marks execution paths short-circuited by the circuit breaker.
	ErrBreakerOpen = errors.New("circuit breaker open")
	// ErrNoToken is returned by the kill switch token validator when no token
	// is configured (fail-closed, spec.md §4.8).
	ErrNoToken = errors.New("no kill switch token configured")
	// ErrStaleData marks a feed read that has no fresh value yet or has
	// exceeded its staleness threshold.
	ErrStaleData = errors.New("stale data")
)
