package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kilianp07/agvkernel/infra/logger"
)

func main() {
	cfg := parseFlags()
	log := logger.New("simulator")
	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid config: %v", err)
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevel("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat := RandomAck{Delay: cfg.AckLatency, DropRate: cfg.DropRate}
	runVehicles(ctx, buildVehicles(cfg, strat, log))
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	flag.StringVar(&cfg.TopicPrefix, "topic-prefix", "agv", "MQTT topic prefix")
	flag.StringVar(&cfg.Vehicles, "vehicles", "", "comma separated vehicle names")
	flag.IntVar(&cfg.Count, "count", 1, "number of generated vehicles when -vehicles is empty")
	flag.StringVar(&cfg.Start, "start", "", "initial position of every vehicle")
	flag.DurationVar(&cfg.AckLatency, "ack-latency", 0, "ack latency")
	flag.Float64Var(&cfg.DropRate, "drop-rate", 0, "ack drop rate")
	flag.Float64Var(&cfg.FailRate, "fail-rate", 0, "drive order failure rate")
	flag.DurationVar(&cfg.StepDelay, "step-delay", time.Second, "time to drive one route step")
	flag.DurationVar(&cfg.Interval, "interval", 10*time.Second, "state report interval")
	flag.IntVar(&cfg.EnergyLevel, "energy", 100, "initial energy level")
	flag.IntVar(&cfg.StepDrain, "step-drain", 1, "energy consumed per step")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func buildVehicles(cfg Config, strat AckStrategy, log logger.Logger) []*SimulatedVehicle {
	names := cfg.Names()
	out := make([]*SimulatedVehicle, 0, len(names))
	for _, n := range names {
		v := NewSimulatedVehicle(n, cfg.Broker, cfg.TopicPrefix, cfg.Start, strat, NewBattery(cfg.EnergyLevel, cfg.StepDrain))
		v.StepDelay = cfg.StepDelay
		v.Interval = cfg.Interval
		v.FailRate = cfg.FailRate
		v.Log = log
		out = append(out, v)
	}
	return out
}

func runVehicles(ctx context.Context, vehicles []*SimulatedVehicle) {
	var wg sync.WaitGroup
	for _, v := range vehicles {
		wg.Add(1)
		go func(v *SimulatedVehicle) {
			defer wg.Done()
			if err := v.Run(ctx); err != nil {
				v.Log.Errorf("%s: %v", v.ID, err)
			}
		}(v)
	}
	wg.Wait()
}
