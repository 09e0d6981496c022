package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/convgauge/internal/config"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)

	// Load existing config or defaults
	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to convgauge!")
	fmt.Println()

	// 1. Plan
	fmt.Println("  1. Subscription plan")
	fmt.Println("     (1) Free")
	fmt.Println("     (2) Pro [default]")
	fmt.Println("     (3) Max")
	fmt.Print("     > ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	switch choice {
	case "1":
		cfg.General.Plan = "free"
	case "3":
		cfg.General.Plan = "max"
	default:
		cfg.General.Plan = "pro"
	}
	fmt.Println()

	// 2. Transcript path
	fmt.Println("  2. Transcript file to watch")
	fmt.Println("     The JSONL file your browser extension appends chat content to.")
	if cfg.General.TranscriptPath != "" {
		fmt.Printf("     Current: %s\n", cfg.General.TranscriptPath)
	}
	fmt.Print("     > ")
	path, _ := reader.ReadString('\n')
	path = strings.TrimSpace(path)
	if path != "" {
		cfg.General.TranscriptPath = path
	}

	// Save
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `convgauge setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
