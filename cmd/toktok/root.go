package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tonakai-s/toktok/internal/app"
	"github.com/tonakai-s/toktok/pkg/config"
	"github.com/tonakai-s/toktok/pkg/logger"
)

// newRootCmd создает корневую команду. Без подкоманды toktok запускает мониторинг.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "toktok",
		Short: "toktok - периодические проверки доступности сервисов",
		Long: `toktok опрашивает сервисы по расписанию из конфигурационного файла
и рассылает уведомления, когда проверка завершается неуспешно.`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, v)
		},
	}

	flags := root.PersistentFlags()
	flags.StringP("config", "c", config.DefaultFile, "config file")
	flags.String("log-level", "", "log level override (debug, info, warn, error)")
	flags.String("environment", "", "environment override (dev, staging, prod)")

	v.SetEnvPrefix("toktok")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("log-level", flags.Lookup("log-level"))
	_ = v.BindPFlag("environment", flags.Lookup("environment"))

	root.AddCommand(newRunCmd(v))
	root.AddCommand(newValidateCmd(v))
	root.AddCommand(newCheckCmd(v))

	return root
}

// loadConfig читает конфигурацию и применяет переопределения из флагов и TOKTOK_*
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.LoadConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	overridden := false
	if level := v.GetString("log-level"); level != "" {
		cfg.Logger.Level = level
		overridden = true
	}
	if env := v.GetString("environment"); env != "" {
		cfg.Environment = env
		overridden = true
	}
	if overridden {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, "toktok")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
