package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/house-report/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "house-report",
	Short: "French property profile builder",
	Long:  "Geocodes an address, gathers risks, energy, market, schools, amenities, urbanism, air quality, connectivity and safety data from public and commercial providers, and assembles a property profile with recommendations and an AI analysis.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
