package cli

import (
	"github.com/spf13/cobra"

	"github.com/theblitlabs/conductor-worker/internal/core/config"
	"github.com/theblitlabs/conductor-worker/pkg/logger"
)

// NewRootCommand builds the conductor-worker command tree
func NewRootCommand() *cobra.Command {
	var (
		logMode    string
		configPath string
	)

	root := &cobra.Command{
		Use:   "conductor-worker",
		Short: "Conductor task worker",
		Long:  `Polls a Conductor server for tasks, runs them on a pool of workers and reports the results`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			switch logMode {
			case "debug", "pretty", "info", "prod", "test":
				logger.InitWithMode(logger.LogMode(logMode))
			default:
				logger.InitWithMode(logger.LogModePretty)
			}
			config.GetConfigManager().SetConfigPath(configPath)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logMode, "log", "pretty", "Log mode: debug, pretty, info, prod, test")
	root.PersistentFlags().StringVar(&configPath, "config", ".env", "Path to the configuration file")

	root.AddCommand(NewWorkerCommand())
	root.AddCommand(NewWorkflowCommand())

	return root
}
