package cmd

import (
	"context"
	"fmt"

	"github.com/kilianp07/agvkernel/app"
	"github.com/kilianp07/agvkernel/config"
	"github.com/kilianp07/agvkernel/core/dispatch"
	"github.com/kilianp07/agvkernel/core/kernel"
	"github.com/kilianp07/agvkernel/core/services"
	"github.com/kilianp07/agvkernel/infra/logger"
)

// offlineKernel loads the configured plant into a kernel whose controllers
// only record what they were sent.
func offlineKernel(ctx context.Context) (*kernel.Kernel, *services.RecordingControllerPool, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, nil, err
	}
	plant, err := app.LoadPlant(cfg.Plant.Path, nil)
	if err != nil {
		return nil, nil, err
	}
	controllers := services.NewRecordingControllerPool()
	k, err := kernel.New(kernel.Deps{
		Objects:     plant.Objects,
		Router:      plant.Router,
		Controllers: controllers,
		Config:      dispatch.NewConfigHolder(cfg.Dispatch),
		Logger:      logger.New("kernel"),
		QueueSize:   cfg.Kernel.QueueSize,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := plant.CreateOrders(ctx, k); err != nil {
		k.Close()
		return nil, nil, err
	}
	return k, controllers, nil
}
