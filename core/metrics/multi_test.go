package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/agvkernel/core/model"
)

type recordSink struct {
	assignments int
	reroutes    int
	err         error
}

func (r *recordSink) RecordAssignments([]AssignmentEvent) error {
	r.assignments++
	return r.err
}

func (r *recordSink) RecordReroute(RerouteEvent) error {
	r.reroutes++
	return nil
}

type assignmentsOnly struct{ count int }

func (a *assignmentsOnly) RecordAssignments([]AssignmentEvent) error {
	a.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &assignmentsOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordAssignments([]AssignmentEvent{{Vehicle: "V1", Order: "T1"}}))
	require.NoError(t, m.RecordReroute(RerouteEvent{Vehicle: "V1", Type: model.ReroutingForced}))
	require.NoError(t, m.RecordCycle(CycleEvent{Assignments: 1}))
	assert.Equal(t, 1, s1.assignments)
	assert.Equal(t, 1, s1.reroutes)
	assert.Equal(t, 1, s2.count)
}

func TestMultiSink_ErrorsDoNotStopFanout(t *testing.T) {
	boom := errors.New("write failed")
	s1 := &recordSink{err: boom}
	s2 := &assignmentsOnly{}
	err := NewMultiSink(s1, s2).RecordAssignments(nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.count)
}
