package kernel

import (
	"context"
	"sort"

	"github.com/kilianp07/agvkernel/core/model"
	"github.com/kilianp07/agvkernel/internal/executor"
)

// VehicleInfo explains a vehicle's standing for dispatching.
type VehicleInfo struct {
	Vehicle     model.Vehicle
	Available   bool
	ParkReasons []string
}

// OrderInfo explains why an order is or is not dispatchable.
type OrderInfo struct {
	Order   model.TransportOrder
	Reasons []string
}

// Fleet returns every vehicle sorted by name, evaluated against the
// dispatcher's filters.
func (k *Kernel) Fleet(ctx context.Context) ([]VehicleInfo, error) {
	out, err := executor.CallResult(ctx, k.exec, func() ([]VehicleInfo, error) {
		var out []VehicleInfo
		for _, v := range k.objects.Vehicles() {
			ok, err := k.dispatcher.IsAvailable(v)
			if err != nil {
				return nil, err
			}
			out = append(out, VehicleInfo{Vehicle: v, Available: ok, ParkReasons: k.dispatcher.ParkReasons(v)})
		}
		return out, nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Vehicle.Name < out[j].Vehicle.Name })
	return out, err
}

// Orders returns every transport order sorted by name with the reasons the
// order filters give against dispatching it.
func (k *Kernel) Orders(ctx context.Context) ([]OrderInfo, error) {
	out, err := executor.CallResult(ctx, k.exec, func() ([]OrderInfo, error) {
		var out []OrderInfo
		for _, o := range k.objects.TransportOrders() {
			out = append(out, OrderInfo{Order: o, Reasons: k.dispatcher.OrderReasons(o)})
		}
		return out, nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Order.Name < out[j].Order.Name })
	return out, err
}
