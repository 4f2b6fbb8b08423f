package app

import (
	"github.com/spf13/cobra"

	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/daemon"
	"github.com/GoUserPanel/GoUserPanel/internal/logger"
)

func init() { //nolint: gochecknoinits
	seedCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration directory")

	rootCmd.AddCommand(seedCmd)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the database and seed the Super Admin role and account",
	PreRun: func(_ *cobra.Command, _ []string) {
		if cfg, err = config.ReadConfig(configPath); err != nil {
			panic(err)
		}

		if err = logger.Init(cfg.Log); err != nil {
			panic(err)
		}
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return daemon.SeedOnly(&cfg)
	},
}
