// Package logging persists the dispatcher's decisions (assignments, reroutes
// and cycle summaries) so they can be queried after the fact.
package logging

import (
	"context"
	"slices"
	"time"
)

// Kind classifies a decision record.
type Kind string

const (
	KindAssignment Kind = "assignment"
	KindReroute    Kind = "reroute"
	KindCycle      Kind = "cycle"
	KindWithdrawal Kind = "withdrawal"
)

// LogRecord captures one decision of the kernel.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Vehicle   string    `json:"vehicle,omitempty"`
	Order     string    `json:"order,omitempty"`
	OrderType string    `json:"order_type,omitempty"`
	Costs     *Costs    `json:"costs,omitempty"`
	Reroute   *Reroute  `json:"reroute,omitempty"`
	Cycle     *Cycle    `json:"cycle,omitempty"`
}

// Costs are the routing costs of an assignment.
type Costs struct {
	Initial  int64 `json:"initial"`
	Complete int64 `json:"complete"`
}

// Reroute describes how a vehicle's route was replaced.
type Reroute struct {
	Type       string `json:"type"`
	Strategy   bool   `json:"strategy"`
	Restricted int    `json:"restricted_steps"`
}

// Cycle summarizes a dispatch cycle.
type Cycle struct {
	Assignments int   `json:"assignments"`
	Reserved    int   `json:"reserved"`
	Parked      int   `json:"parked"`
	Requeued    int   `json:"requeued"`
	DurationMs  int64 `json:"duration_ms"`
}

// LogQuery defines filters for retrieving records. Zero fields match all.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	Vehicle string
	Order   string
	Kinds   []Kind
	// Limit keeps only the most recent matches when positive.
	Limit int
}

// Matches reports whether r passes every filter of q.
func (q LogQuery) Matches(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Vehicle != "" && r.Vehicle != q.Vehicle {
		return false
	}
	if q.Order != "" && r.Order != q.Order {
		return false
	}
	return len(q.Kinds) == 0 || slices.Contains(q.Kinds, r.Kind)
}

func (q LogQuery) tail(res []LogRecord) []LogRecord {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
