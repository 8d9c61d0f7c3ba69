// Package infra groups the adapters that connect the dispatching kernel to
// the outside world: MQTT vehicle controllers, the in-memory object pool, the
// gonum router, plant files, metrics exporters, Redis and Kafka.
// Adapters implement interfaces from core and never import each other's
// internals.
package infra
