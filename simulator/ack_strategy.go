package main

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func roll(p float64) bool {
	if p <= 0 {
		return false
	}
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64() < p
}

// AckStrategy decides whether and when an order message is acknowledged.
type AckStrategy interface {
	// Ack blocks until the ack should be sent and reports whether to send it.
	Ack(ctx context.Context, messageID string) bool
}

// AutoAck acknowledges every message after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, _ string) bool {
	return wait(ctx, a.Delay)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, _ string) bool {
	if roll(r.DropRate) {
		return false
	}
	return wait(ctx, r.Delay)
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
