// Package events defines the kernel events emitted on the event bus.
//
// Available event types:
//   - OrderStateChanged: a transport order changed its state
//   - VehicleAssigned: the dispatcher committed an order to a vehicle
//   - VehicleRerouted: the remaining route of a vehicle was replaced or patched
//   - PathLockChanged: a path was locked or unlocked
//   - VehicleUpdated: a vehicle report was applied
//   - CycleCompleted: a dispatch cycle finished
package events
