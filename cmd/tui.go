package cmd

import (
	"github.com/theirongolddev/convgauge/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive live view of usage counters",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	st, led, err := openLedger()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	return tui.Run(led, st)
}
