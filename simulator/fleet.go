package main

import "fmt"

// GenerateNames returns n vehicle names Vehicle-0001..Vehicle-NNNN.
func GenerateNames(n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Vehicle-%04d", i+1)
	}
	return out
}

// Topics derives a vehicle's MQTT topics from the prefix.
type Topics struct {
	Order string
	State string
	Ack   string
}

// TopicsFor returns the topics the kernel uses for the given vehicle.
func TopicsFor(prefix, vehicle string) Topics {
	base := prefix + "/" + vehicle
	return Topics{Order: base + "/order", State: base + "/state", Ack: base + "/ack"}
}
