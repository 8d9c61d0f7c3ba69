package dispatch

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kilianp07/agvkernel/core/model"
)

type routingJob struct {
	vehicle model.Vehicle
	order   model.TransportOrder
	targets [][]string
}

// destinationPoints resolves every drive order destination to the points a
// vehicle may stop at. Locations resolve to their linked points.
func (d *Dispatcher) destinationPoints(o model.TransportOrder) ([][]string, error) {
	targets := make([][]string, len(o.DriveOrders))
	for i, do := range o.DriveOrders {
		switch do.Destination.Kind {
		case model.LocationDestination:
			loc, err := d.orders.Location(do.Destination.Name)
			if err != nil {
				return nil, err
			}
			if len(loc.Links) == 0 {
				return nil, fmt.Errorf("location %s is not linked to any point: %w", loc.Name, model.ErrInvalidArgument)
			}
			links := append([]string(nil), loc.Links...)
			slices.Sort(links)
			targets[i] = links
		default:
			if _, err := d.orders.Point(do.Destination.Name); err != nil {
				return nil, err
			}
			targets[i] = []string{do.Destination.Name}
		}
	}
	return targets, nil
}

// routeDriveOrders routes the drive orders one after the other starting at
// the vehicle's current position. It returns false if any leg has no route.
func (d *Dispatcher) routeDriveOrders(v model.Vehicle, driveOrders []model.DriveOrder, targets [][]string) ([]model.DriveOrder, bool) {
	from := v.CurrentPosition
	routed := make([]model.DriveOrder, 0, len(driveOrders))
	for i, do := range driveOrders {
		var best *model.Route
		for _, to := range targets[i] {
			r, ok := d.router.Route(v, from, to)
			if !ok || len(r.Steps) == 0 {
				continue
			}
			if best == nil || r.Costs() < best.Costs() {
				best = model.NewRoute(r.Steps)
			}
		}
		if best == nil {
			return nil, false
		}
		routed = append(routed, do.WithRoute(best))
		from = best.FinalDestinationPoint()
	}
	return routed, true
}

// candidateFor routes a single pair synchronously.
func (d *Dispatcher) candidateFor(v model.Vehicle, o model.TransportOrder) (AssignmentCandidate, bool, error) {
	targets, err := d.destinationPoints(o)
	if err != nil {
		return AssignmentCandidate{}, false, err
	}
	routed, ok := d.routeDriveOrders(v, o.DriveOrders, targets)
	if !ok {
		return AssignmentCandidate{}, false, nil
	}
	c, err := NewAssignmentCandidate(v, o, routed)
	if err != nil {
		return AssignmentCandidate{}, false, err
	}
	return c, true, nil
}

// eligible reports whether the order may be given to the vehicle at all.
func (d *Dispatcher) eligible(v model.Vehicle, o model.TransportOrder, sequences map[string]model.OrderSequence) bool {
	if !v.AcceptsOrderType(o.Type) {
		return false
	}
	if o.IntendedVehicle != "" && o.IntendedVehicle != v.Name {
		return false
	}
	if o.WrappingSequence != "" {
		seq := sequences[o.WrappingSequence]
		if seq.ProcessingVehicle != "" && seq.ProcessingVehicle != v.Name {
			return false
		}
	}
	return true
}

// buildCandidates routes every eligible pair on worker goroutines. Pairs
// without a route are dropped. The result keeps the vehicle/order input order.
func (d *Dispatcher) buildCandidates(ctx context.Context, vehicles []model.Vehicle, orders []model.TransportOrder) ([]AssignmentCandidate, error) {
	sequences := map[string]model.OrderSequence{}
	var jobs []routingJob
	for _, o := range orders {
		targets, err := d.destinationPoints(o)
		if err != nil {
			d.log.Debugf("order %s skipped: %v", o.Name, err)
			continue
		}
		if s := o.WrappingSequence; s != "" {
			if _, ok := sequences[s]; !ok {
				seq, err := d.orders.OrderSequence(s)
				if err != nil {
					return nil, fmt.Errorf("order %s: %w", o.Name, err)
				}
				sequences[s] = seq
			}
		}
		for _, v := range vehicles {
			if d.eligible(v, o, sequences) {
				jobs = append(jobs, routingJob{vehicle: v, order: o, targets: targets})
			}
		}
	}

	results := make([]*AssignmentCandidate, len(jobs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.workers)
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, job routingJob) {
			defer wg.Done()
			defer func() { <-sem }()
			routed, ok := d.routeDriveOrders(job.vehicle, job.order.DriveOrders, job.targets)
			if !ok {
				return
			}
			c, err := NewAssignmentCandidate(job.vehicle, job.order, routed)
			if err != nil {
				return
			}
			results[i] = &c
		}(i, job)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make([]AssignmentCandidate, 0, len(jobs))
	for i, c := range results {
		if c == nil {
			d.log.Debugf("no route for order %s and vehicle %s", jobs[i].order.Name, jobs[i].vehicle.Name)
			continue
		}
		candidates = append(candidates, *c)
	}
	return candidates, nil
}
