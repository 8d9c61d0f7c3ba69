package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/agvkernel/core/kernel"
	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/infra/objectpool"
	"github.com/kilianp07/agvkernel/infra/plantmodel"
	"github.com/kilianp07/agvkernel/infra/routing"
)

// Plant bundles the populated object pool with its router and the initial
// transport orders of the plant file.
type Plant struct {
	Objects *objectpool.Pool
	Router  *routing.Router
	Orders  []model.TransportOrder
	// Complete names the sequences closed once Orders exist.
	Complete []string
}

// LoadPlant reads the plant file and populates a fresh object pool.
func LoadPlant(path string, clock services.TimeProvider) (*Plant, error) {
	if path == "" {
		return nil, fmt.Errorf("plant: path is required")
	}
	p, err := plantmodel.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	objects := objectpool.New(clock)
	if err := p.Populate(objects); err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	return &Plant{
		Objects:  objects,
		Router:   routing.New(objects),
		Orders:   p.TransportOrders(),
		Complete: p.CompleteSequences(),
	}, nil
}

// CreateOrders submits the plant's initial orders to the kernel and then
// closes the sequences the plant marks complete.
func (p *Plant) CreateOrders(ctx context.Context, k *kernel.Kernel) error {
	for _, o := range p.Orders {
		if _, err := k.CreateTransportOrder(ctx, o); err != nil {
			return fmt.Errorf("plant order %s: %w", o.Name, err)
		}
	}
	for _, name := range p.Complete {
		if err := p.Objects.MarkOrderSequenceComplete(name); err != nil {
			return fmt.Errorf("plant sequence %s: %w", name, err)
		}
	}
	return nil
}
