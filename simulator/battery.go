package main

import "sync"

// Battery models the energy level of a simulated vehicle in percent.
type Battery struct {
	mu    sync.Mutex
	level int
	drain int
}

// NewBattery returns a battery at the given level losing drain percent per
// driven step.
func NewBattery(level, drain int) *Battery {
	return &Battery{level: clamp(level), drain: drain}
}

// Step drains the battery for one driven step and returns the new level.
func (b *Battery) Step() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = clamp(b.level - b.drain)
	return b.level
}

// Level returns the current energy level.
func (b *Battery) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
