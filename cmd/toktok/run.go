package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonakai-s/toktok/internal/app"
	"github.com/tonakai-s/toktok/pkg/logger"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Запустить мониторинг",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, v)
		},
	}
}

func runMonitor(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting toktok",
		logger.String("version", app.Version),
		logger.String("config", v.GetString("config")),
		logger.Int("services", len(cfg.Services)),
	)

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		log.Error("Failed to start toktok", logger.Error(err))
		return err
	}

	return a.Run(cmd.Context())
}
