package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/agvkernel/infra/logger"
)

// Watch reloads the config file whenever it changes and passes every valid
// result to onChange. Invalid edits are logged and skipped. Watching stops
// when ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	parser, err := parserFor(path)
	if err != nil {
		return err
	}
	log := logger.New("config")
	f := file.Provider(path)
	err = f.Watch(func(_ interface{}, werr error) {
		if werr != nil {
			log.Errorf("watch %s: %v", path, werr)
			return
		}
		k := koanf.New(".")
		if err := k.Load(f, parser); err != nil {
			log.Errorf("reload %s: %v", path, err)
			return
		}
		cfg, err := fromKoanf(k)
		if err != nil {
			log.Warnf("ignoring invalid config %s: %v", path, err)
			return
		}
		log.Infof("config %s reloaded", path)
		onChange(cfg)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	go func() {
		<-ctx.Done()
		_ = f.Unwatch()
	}()
	return nil
}
