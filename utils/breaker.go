package utils

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned while the breaker refuses traffic.
var ErrBreakerOpen = errors.New("circuit breaker is open")

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

// Breaker protects the inventory and payment backends from probe storms.
// After too many failures in a window it opens and fails calls fast; after
// the cooldown one trial request decides whether it closes again.
type Breaker struct {
	name         string
	window       time.Duration
	cooldown     time.Duration
	minRequests  uint32
	failureRatio float64

	mu        sync.Mutex
	state     BreakerState
	requests  uint32
	failures  uint32
	openUntil time.Time
	windowEnd time.Time
}

func NewBreaker(name string) *Breaker {
	return &Breaker{
		name:         name,
		window:       60 * time.Second,
		cooldown:     30 * time.Second,
		minRequests:  10,
		failureRatio: 0.6,
	}
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err == nil)
	return err
}

// State reports the current state, advancing open -> half-open after the
// cooldown.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(time.Now())
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.advance(now)
	if b.state == BreakerOpen {
		return ErrBreakerOpen
	}
	b.requests++
	return nil
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if success {
		if b.state == BreakerHalfOpen {
			b.reset(now)
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen {
		b.trip(now)
		return
	}
	if b.requests >= b.minRequests &&
		float64(b.failures)/float64(b.requests) >= b.failureRatio {
		b.trip(now)
	}
}

func (b *Breaker) advance(now time.Time) {
	switch b.state {
	case BreakerOpen:
		if now.After(b.openUntil) {
			b.state = BreakerHalfOpen
			b.requests = 0
			b.failures = 0
		}
	case BreakerClosed:
		if now.After(b.windowEnd) {
			b.reset(now)
		}
	}
}

func (b *Breaker) trip(now time.Time) {
	b.state = BreakerOpen
	b.openUntil = now.Add(b.cooldown)
}

func (b *Breaker) reset(now time.Time) {
	b.state = BreakerClosed
	b.requests = 0
	b.failures = 0
	b.windowEnd = now.Add(b.window)
}
