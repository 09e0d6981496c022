package cmd

import (
	"fmt"

	"github.com/theirongolddev/convgauge/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s", config.ConfigPath())
	if !config.Exists() {
		fmt.Print(" (not created yet, showing defaults)")
	}
	fmt.Println()
	fmt.Println()
	fmt.Printf("  plan: %s\n", cfg.General.Plan)
	fmt.Printf("  transcript: %s\n", transcriptPath(cfg))
	fmt.Printf("  state: %s\n", statePath(cfg))
	fmt.Printf("  monitor addr: %s\n", cfg.Monitor.Addr)
	fmt.Printf("  poll interval: %s\n", cfg.Monitor.PollInterval())
	fmt.Printf("  refresh interval: %s\n", cfg.Monitor.RefreshInterval())
	return nil
}
