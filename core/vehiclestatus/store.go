// Package vehiclestatus keeps the last known status of every vehicle together
// with the last decision the kernel took for it.
package vehiclestatus

import (
	"context"
	"sort"
	"sync"
	"time"
)

// LastDecision mirrors the summary of a kernel decision.
type LastDecision struct {
	Kind      string    `json:"kind"`
	Order     string    `json:"order"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Status captures the current known state of a vehicle.
type Status struct {
	VehicleID        string       `json:"vehicle_id"`
	State            string       `json:"state"`
	ProcState        string       `json:"proc_state"`
	IntegrationLevel string       `json:"integration_level,omitempty"`
	Position         string       `json:"position,omitempty"`
	EnergyLevel      int          `json:"energy_level"`
	TransportOrder   string       `json:"transport_order,omitempty"`
	Paused           bool         `json:"paused,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
	LastDecision     LastDecision `json:"last_decision"`
}

type Filter struct {
	State     string
	ProcState string
}

// Matches reports whether st passes the filter.
func (f Filter) Matches(st Status) bool {
	if f.State != "" && st.State != f.State {
		return false
	}
	return f.ProcState == "" || st.ProcState == f.ProcState
}

// Store persists vehicle statuses. Set keeps the last decision already
// recorded for the vehicle.
type Store interface {
	Set(ctx context.Context, st Status) error
	Get(ctx context.Context, id string) (Status, bool, error)
	List(ctx context.Context, f Filter) ([]Status, error)
	RecordDecision(ctx context.Context, id string, dec LastDecision) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) Set(_ context.Context, st Status) error {
	s.mu.Lock()
	st.LastDecision = s.data[st.VehicleID].LastDecision
	s.data[st.VehicleID] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Status, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok, nil
}

func (s *MemoryStore) RecordDecision(_ context.Context, id string, dec LastDecision) error {
	s.mu.Lock()
	st := s.data[id]
	if st.VehicleID == "" {
		st.VehicleID = id
	}
	st.LastDecision = dec
	s.data[id] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Matches(st) {
			res = append(res, st)
		}
	}
	SortByID(res)
	return res, nil
}

// SortByID orders statuses by vehicle id.
func SortByID(sts []Status) {
	sort.Slice(sts, func(i, j int) bool { return sts[i].VehicleID < sts[j].VehicleID })
}
