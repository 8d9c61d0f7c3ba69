package model

// PeripheralJobState is the processing state of a peripheral job.
type PeripheralJobState int

const (
	PeripheralJobToBeProcessed PeripheralJobState = iota
	PeripheralJobBeingProcessed
	PeripheralJobFinished
	PeripheralJobFailed
)

// IsFinal reports whether the job reached a terminal state.
func (s PeripheralJobState) IsFinal() bool {
	return s == PeripheralJobFinished || s == PeripheralJobFailed
}

// PeripheralOperation describes what a peripheral device has to do.
type PeripheralOperation struct {
	Name     string
	Location string
	// CompletionRequired means the vehicle must wait for the job to finish.
	CompletionRequired bool
}

// PeripheralJob is an operation executed by a peripheral device on behalf of an order.
type PeripheralJob struct {
	Name                  string
	RelatedTransportOrder string
	RelatedVehicle        string
	Operation             PeripheralOperation
	State                 PeripheralJobState
}
