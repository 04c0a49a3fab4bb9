package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrcluster/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "addrcluster",
	Short: "Classify address points inside drawing boundaries",
	Long:  "Joins address point datasets against closed boundaries in a DXF drawing, clusters nearby points into structures, counts houses, apartments and buildings, and writes an annotated drawing.",
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
