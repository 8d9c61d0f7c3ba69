package model

// Step is a single movement between two adjacent points.
type Step struct {
	// Path is nil when the vehicle already stands on the destination point.
	Path             *Path
	SourcePoint      string
	DestinationPoint string
	Orientation      Orientation
	RouteIndex       int
	// Costs are cumulative from the start of the route.
	Costs            int64
	ExecutionAllowed bool
}

// NewStep returns a step that is allowed to be executed.
func NewStep(path *Path, source, destination string, orientation Orientation, routeIndex int, costs int64) Step {
	return Step{
		Path:             path,
		SourcePoint:      source,
		DestinationPoint: destination,
		Orientation:      orientation,
		RouteIndex:       routeIndex,
		Costs:            costs,
		ExecutionAllowed: true,
	}
}

// WithPath returns a copy of the step using the given path object.
func (s Step) WithPath(p *Path) Step {
	s.Path = p
	return s
}

// WithExecutionAllowed returns a copy of the step with the flag set.
func (s Step) WithExecutionAllowed(allowed bool) Step {
	s.ExecutionAllowed = allowed
	return s
}

// Route is a non-empty sequence of steps.
type Route struct {
	Steps []Step
}

// NewRoute copies steps into a new route.
func NewRoute(steps []Step) *Route {
	return &Route{Steps: append([]Step(nil), steps...)}
}

// Costs returns the cumulative costs of the final step.
func (r *Route) Costs() int64 {
	if r == nil || len(r.Steps) == 0 {
		return 0
	}
	return r.Steps[len(r.Steps)-1].Costs
}

// FinalDestinationPoint returns the point the route ends on.
func (r *Route) FinalDestinationPoint() string {
	if r == nil || len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].DestinationPoint
}
