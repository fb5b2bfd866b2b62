// entry point to app :)
package main

import (
	"github.com/ds124wfegd/image-transformer/config"
	"github.com/ds124wfegd/image-transformer/internal/appServer"
	"github.com/ds124wfegd/image-transformer/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	log := logger.New(cfg.Log)
	log.WithField("version", cfg.Server.AppVersion).Debug("config loaded")

	appServer.NewServer(cfg, log)
}
