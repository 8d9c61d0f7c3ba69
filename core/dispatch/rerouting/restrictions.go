package rerouting

import (
	"github.com/kilianp07/agvkernel/core/dispatch"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
)

// refreshPaths replaces the path of every step with the live object so that
// lock states are current.
func refreshPaths(objects services.ObjectService, driveOrders []model.DriveOrder) ([]model.DriveOrder, error) {
	res := make([]model.DriveOrder, 0, len(driveOrders))
	for _, d := range driveOrders {
		if d.Route == nil {
			res = append(res, d)
			continue
		}
		steps := make([]model.Step, 0, len(d.Route.Steps))
		for _, s := range d.Route.Steps {
			if s.Path == nil {
				steps = append(steps, s)
				continue
			}
			p, err := objects.Path(s.Path.Name)
			if err != nil {
				return nil, err
			}
			steps = append(steps, s.WithPath(&p))
		}
		res = append(res, d.WithRoute(model.NewRoute(steps)))
	}
	return res, nil
}

func containsLockedPath(driveOrders []model.DriveOrder) bool {
	for _, d := range driveOrders {
		if d.Route == nil {
			continue
		}
		for _, s := range d.Route.Steps {
			if s.Path != nil && s.Path.Locked {
				return true
			}
		}
	}
	return false
}

// executionTest stops allowing execution at the first restricted step. Once
// a step is refused, every later step is refused too.
type executionTest struct {
	strategy dispatch.ReroutingImpossibleStrategy
	source   string
	allowed  bool
}

func newExecutionTest(strategy dispatch.ReroutingImpossibleStrategy, source string) *executionTest {
	return &executionTest{strategy: strategy, source: source, allowed: true}
}

func (t *executionTest) test(s model.Step) bool {
	if !t.allowed {
		return false
	}
	switch t.strategy {
	case dispatch.PauseImmediately:
		if t.source == "" || s.SourcePoint == t.source {
			t.allowed = false
		}
	case dispatch.PauseAtPathLock:
		if s.Path != nil && s.Path.Locked {
			t.allowed = false
		}
	}
	return t.allowed
}

// markRestrictedSteps flags the steps the vehicle must not execute. Routes
// without any locked path are returned unchanged, whatever the strategy. An
// empty source pauses PAUSE_IMMEDIATELY before the first step.
func markRestrictedSteps(driveOrders []model.DriveOrder, strategy dispatch.ReroutingImpossibleStrategy, source string) []model.DriveOrder {
	if strategy == dispatch.IgnorePathLocks || !containsLockedPath(driveOrders) {
		return driveOrders
	}
	test := newExecutionTest(strategy, source)
	res := make([]model.DriveOrder, 0, len(driveOrders))
	for _, d := range driveOrders {
		if d.Route == nil {
			res = append(res, d)
			continue
		}
		steps := make([]model.Step, 0, len(d.Route.Steps))
		for _, s := range d.Route.Steps {
			steps = append(steps, s.WithExecutionAllowed(test.test(s)))
		}
		res = append(res, d.WithRoute(model.NewRoute(steps)))
	}
	return res
}

func restrictedSteps(driveOrders []model.DriveOrder) int {
	n := 0
	for _, d := range driveOrders {
		if d.Route == nil {
			continue
		}
		for _, s := range d.Route.Steps {
			if !s.ExecutionAllowed {
				n++
			}
		}
	}
	return n
}
