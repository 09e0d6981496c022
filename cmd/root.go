package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/convgauge/internal/alert"
	"github.com/theirongolddev/convgauge/internal/cli"
	"github.com/theirongolddev/convgauge/internal/config"
	"github.com/theirongolddev/convgauge/internal/ledger"
	"github.com/theirongolddev/convgauge/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagStatePath  string
	flagTranscript string
)

var rootCmd = &cobra.Command{
	Use:   "convgauge",
	Short: "Chat usage monitor",
	Long:  "Track conversation and daily token usage against your plan's limits.",
	RunE:  runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagStatePath, "state", "", "State database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&flagTranscript, "transcript", "", "Transcript file to watch")
}

// statePath resolves the state database path: flag, then config, then the
// XDG default.
func statePath(cfg config.Config) string {
	if flagStatePath != "" {
		return flagStatePath
	}
	if cfg.General.StatePath != "" {
		return cfg.General.StatePath
	}
	return store.DefaultPath()
}

// transcriptPath resolves the transcript path: flag, then config.
func transcriptPath(cfg config.Config) string {
	if flagTranscript != "" {
		return flagTranscript
	}
	return cfg.General.TranscriptPath
}

// openLedger is the shared state loading path used by the one-shot commands.
func openLedger() (*store.Store, *ledger.Ledger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(statePath(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("opening state: %w", err)
	}

	return st, ledger.Open(st), nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	st, led, err := openLedger()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	c := led.Counters()
	r := led.Ratios()
	limits := ledger.LimitsFor(c.Plan)

	fmt.Printf("  Plan: %s\n", c.Plan)
	if c.LastURL != "" {
		fmt.Printf("  Conversation: %s\n", c.LastURL)
	}
	fmt.Println()
	fmt.Printf("  Today:        %s / %s tokens (%s)\n",
		cli.FormatTokens(c.DailyTokens), cli.FormatTokens(limits.DailyTokens), cli.FormatPercent(r.Daily))
	fmt.Printf("  Context:      %s / %s tokens (%s)\n",
		cli.FormatTokens(c.ConversationTokens), cli.FormatTokens(ledger.ContextWindowTokens), cli.FormatPercent(r.Context))
	fmt.Printf("  Messages:     %s / %d (%s)\n",
		cli.FormatNumber(c.ConversationMessages), limits.ConversationMessages, cli.FormatPercent(r.Message))

	alerts := alert.Evaluate(r)
	if len(alerts) > 0 {
		fmt.Println()
		for _, a := range alerts {
			fmt.Printf("  [%s] %s\n", a.Severity, a.Message)
		}
	}

	return nil
}
