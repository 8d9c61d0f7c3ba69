package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/agvkernel/config"
	"github.com/kilianp07/agvkernel/core/dispatch"
	"github.com/kilianp07/agvkernel/core/dispatch/logging"
	"github.com/kilianp07/agvkernel/core/kernel"
	coremetrics "github.com/kilianp07/agvkernel/core/metrics"
	coremqtt "github.com/kilianp07/agvkernel/core/mqtt"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/core/vehiclestatus"
	"github.com/kilianp07/agvkernel/infra/kafka"
	"github.com/kilianp07/agvkernel/infra/logger"
	"github.com/kilianp07/agvkernel/infra/metrics"
	"github.com/kilianp07/agvkernel/infra/mqtt"
	"github.com/kilianp07/agvkernel/infra/redis"
	"github.com/kilianp07/agvkernel/internal/eventbus"
)

const (
	subscriberBuffer = 256
	reportBuffer     = 256
)

// Service orchestrates the kernel, the vehicle link and the event consumers.
type Service struct {
	Kernel   *kernel.Kernel
	Plant    *Plant
	Status   vehiclestatus.Store
	LogStore logging.LogStore

	cfg       *config.Config
	cfgPath   string
	dispatch  *dispatch.ConfigHolder
	bus       *eventbus.Bus
	client    *mqtt.PahoClient
	sink      coremetrics.MetricsSink
	forwarder *kafka.Forwarder
	redis     *redis.Store
	reports   chan coremqtt.VehicleReport
	log       logger.Logger
}

// New builds the service from the configuration. cfgPath enables hot reload
// of the dispatch settings when not empty.
func New(ctx context.Context, cfg *config.Config, cfgPath string) (svc *Service, err error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	log := logger.New("service")
	svc = &Service{
		cfg:      cfg,
		cfgPath:  cfgPath,
		dispatch: dispatch.NewConfigHolder(cfg.Dispatch),
		bus:      eventbus.New(logger.New("eventbus")),
		reports:  make(chan coremqtt.VehicleReport, reportBuffer),
		log:      log,
	}
	defer func() {
		if err != nil {
			if cerr := svc.Close(); cerr != nil {
				log.Errorf("cleanup after failed start: %v", cerr)
			}
			svc = nil
		}
	}()

	if svc.Plant, err = LoadPlant(cfg.Plant.Path, nil); err != nil {
		return svc, err
	}

	var controllers services.VehicleControllerPool = nopControllerPool{}
	if cfg.MQTT.Enabled() {
		svc.client, err = mqtt.NewPahoClient(cfg.MQTT, svc.enqueueReport)
		if err != nil {
			return svc, fmt.Errorf("mqtt client: %w", err)
		}
		controllers = mqtt.NewControllerPool(svc.client, cfg.MQTT.AckTimeout(), nil, logger.New("controllers"))
	} else {
		log.Warnf("no MQTT broker configured, orders are not sent to vehicles")
	}

	svc.Kernel, err = kernel.New(kernel.Deps{
		Objects:          svc.Plant.Objects,
		Router:           svc.Plant.Router,
		Controllers:      controllers,
		Config:           svc.dispatch,
		Bus:              svc.bus,
		Logger:           logger.New("kernel"),
		QueueSize:        cfg.Kernel.QueueSize,
		DispatchOnEvents: cfg.Kernel.DispatchOnEvents,
	})
	if err != nil {
		return svc, fmt.Errorf("kernel: %w", err)
	}

	if svc.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return svc, fmt.Errorf("metrics sink: %w", err)
	}
	if svc.LogStore, err = logging.NewStore(cfg.Logging.DecisionLog); err != nil {
		return svc, fmt.Errorf("decision log: %w", err)
	}
	switch cfg.Status.Backend {
	case "redis":
		if svc.redis, err = redis.New(ctx, cfg.Status.Redis); err != nil {
			return svc, fmt.Errorf("status store: %w", err)
		}
		svc.Status = svc.redis
	default:
		svc.Status = vehiclestatus.NewMemoryStore()
	}
	if cfg.Events.Enabled() {
		if svc.forwarder, err = kafka.NewForwarder(cfg.Events, logger.New("kafka")); err != nil {
			return svc, fmt.Errorf("event forwarder: %w", err)
		}
	}
	return svc, nil
}

// enqueueReport runs on the paho callback goroutine and must not block.
func (s *Service) enqueueReport(r coremqtt.VehicleReport) {
	select {
	case s.reports <- r:
	default:
		s.log.Warnf("report queue full, dropping report of %s", r.Vehicle)
	}
}

// Run starts the event consumers and the periodic dispatch and blocks until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	var done []<-chan struct{}
	done = append(done,
		metrics.StartEventCollector(ctx, s.bus, s.sink, subscriberBuffer),
		logging.StartRecorder(ctx, s.bus, s.LogStore, logger.New("decision-log")),
		vehiclestatus.StartTracker(ctx, s.bus, s.Status, logger.New("vehicle-status")),
	)
	if s.forwarder != nil {
		done = append(done, s.forwarder.Start(ctx, s.bus))
	}
	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+port, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfgPath != "" {
		if err := config.Watch(ctx, s.cfgPath, s.applyConfig); err != nil {
			s.log.Warnf("config hot reload disabled: %v", err)
		}
	}
	go s.consumeReports(ctx)

	if err := s.Plant.CreateOrders(ctx, s.Kernel); err != nil {
		return err
	}
	s.redispatchLoop(ctx)

	s.waitFor(done)
	return nil
}

func (s *Service) applyConfig(c *config.Config) {
	s.dispatch.Set(c.Dispatch)
	if err := logger.SetLevel(c.Logging.Level); err != nil {
		s.log.Warnf("log level: %v", err)
	}
}

func (s *Service) consumeReports(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-s.reports:
			if err := s.Kernel.ApplyReport(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warnf("report of %s rejected: %v", r.Vehicle, err)
			}
		}
	}
}

// redispatchLoop runs a dispatch cycle immediately and then periodically. The
// interval is re-read every round so reloaded settings apply.
func (s *Service) redispatchLoop(ctx context.Context) {
	for {
		if _, err := s.Kernel.Dispatch(ctx); err != nil {
			if ctx.Err() != nil || kernel.IsStopped(err) {
				return
			}
			s.log.Errorf("dispatch cycle: %v", err)
		}
		interval := s.dispatch.Config().RedispatchInterval()
		if interval <= 0 {
			interval = 10 * time.Second
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Service) waitFor(done []<-chan struct{}) {
	timeout := time.After(s.cfg.Kernel.ShutdownTimeout())
	for _, d := range done {
		select {
		case <-d:
		case <-timeout:
			s.log.Warnf("event consumers did not stop in time")
			return
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.client != nil {
		s.client.Disconnect()
	}
	if s.Kernel != nil {
		s.Kernel.Close()
	}
	s.bus.Close()
	if s.LogStore != nil {
		errs = append(errs, s.LogStore.Close())
	}
	if s.forwarder != nil {
		errs = append(errs, s.forwarder.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return errors.Join(errs...)
}

type nopControllerPool struct{}

func (nopControllerPool) VehicleController(string) services.VehicleController {
	return services.NopController{}
}
