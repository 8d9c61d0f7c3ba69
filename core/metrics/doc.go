// Package metrics defines the sink contracts used to record kernel activity
// for observability. Every sink records assignments; optional recorder
// interfaces cover dispatch cycles, reroutes, order transitions and vehicle
// snapshots. Sinks are built from configuration through the factory registry
// and combined with MultiSink when several are configured.
package metrics
