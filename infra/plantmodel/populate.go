package plantmodel

import (
	"github.com/kilianp07/agvkernel/core/model"
)

// Target receives the plant objects. It is implemented by the in-memory
// object pool.
type Target interface {
	AddPoint(model.Point)
	AddPath(model.Path)
	AddLocationType(model.LocationType)
	AddLocation(model.Location)
	AddVehicle(model.Vehicle)
	AddOrderSequence(model.OrderSequence)
	AddPeripheralJob(model.PeripheralJob)
}

// Populate adds the plant, vehicles, sequences and peripheral jobs to t.
// Initial transport orders are not added; create them through the kernel
// with TransportOrders so they pass activation. Sequences are added open
// so those orders can join them; close them afterwards with
// CompleteSequences.
func (p *Plant) Populate(t Target) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, pt := range p.Points {
		typ, _ := pointType(pt.Type)
		t.AddPoint(model.Point{Name: pt.Name, Type: typ})
	}
	for _, path := range p.expandedPaths() {
		t.AddPath(model.Path{
			Name:        path.Name,
			Source:      path.Source,
			Destination: path.Destination,
			Length:      path.Length,
			Locked:      path.Locked,
		})
	}
	for _, lt := range p.LocationTypes {
		t.AddLocationType(model.LocationType{Name: lt})
	}
	for _, loc := range p.Locations {
		t.AddLocation(model.Location{Name: loc.Name, Type: loc.Type, Links: loc.Links, Locked: loc.Locked})
	}
	for _, v := range p.Vehicles {
		mv, err := v.model()
		if err != nil {
			return err
		}
		t.AddVehicle(mv)
	}
	for _, s := range p.Sequences {
		t.AddOrderSequence(model.OrderSequence{Name: s.Name, FinishedIndex: -1})
	}
	for _, j := range p.PeripheralJobs {
		t.AddPeripheralJob(model.PeripheralJob{
			Name:                  j.Name,
			RelatedTransportOrder: j.Order,
			RelatedVehicle:        j.Vehicle,
			Operation: model.PeripheralOperation{
				Name:               j.Operation,
				Location:           j.Location,
				CompletionRequired: j.CompletionRequired,
			},
		})
	}
	return nil
}
