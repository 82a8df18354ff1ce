package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonakai-s/toktok/internal/app"
	"github.com/tonakai-s/toktok/internal/domain"
	"github.com/tonakai-s/toktok/pkg/logger"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Проверить конфигурацию и собрать задачи и каналы уведомлений",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			log := logger.NewNop()
			tasks, err := app.BuildTasks(cfg, nil, log)
			if err != nil {
				return err
			}

			notifiers, closers, err := app.BuildNotifiers(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closers.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %d services, %d notifiers\n", len(tasks), len(notifiers))
			for _, task := range tasks {
				svc := cfg.Services[task.Name()]
				fmt.Fprintf(out, "  service  %s (%s) every %s\n", task.Name(), svc.Configuration.Type, task.Info.Interval)
			}
			for _, n := range notifiers {
				fmt.Fprintf(out, "  notifier %s\n", domain.NotifierName(n))
			}
			return nil
		},
	}
}
