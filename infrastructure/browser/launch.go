package browser

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"pom_automation/domain/interfaces"
	"pom_automation/infrastructure/config"
	"pom_automation/infrastructure/storage"
)

// Open - starts the driver backend selected by cfg.Driver. Browser
// backends persist their session state under cfg.StateDir.
func Open(cfg config.Config, logger *logrus.Logger) (interfaces.Driver, error) {
	if cfg.Driver == config.DriverMemory {
		user, password := cfg.LoginUser, cfg.LoginPassword
		if user == "" {
			user, password = DemoUser, DemoPassword
		}
		logger.WithFields(logrus.Fields{"driver": "memory", "user": user}).Info("serving the in-memory demo site")
		return NewDemoDriver(cfg.BaseURL, user, password), nil
	}

	store, err := storage.NewBrowserState(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverPlaywright:
		d, err := LaunchPlaywright(cfg, store, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.DriverSelenium:
		d, err := LaunchSelenium(cfg, store, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
}
