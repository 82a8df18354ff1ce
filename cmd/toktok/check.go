package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonakai-s/toktok/internal/app"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check <service>",
		Short: "Выполнить одну проверку сервиса и вывести результат",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			result, err := app.CheckOnce(cmd.Context(), cfg, args[0], log)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			if !result.IsSuccess() {
				return fmt.Errorf("service %s is %s", result.ServiceName, result.Status)
			}
			return nil
		},
	}
}
