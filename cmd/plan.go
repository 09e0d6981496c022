package cmd

import (
	"fmt"

	"github.com/theirongolddev/convgauge/internal/cli"
	"github.com/theirongolddev/convgauge/internal/ledger"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:       "plan [free|pro|max]",
	Short:     "Show or set the subscription plan",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"free", "pro", "max"},
	RunE:      runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(_ *cobra.Command, args []string) error {
	st, led, err := openLedger()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if len(args) == 1 {
		p := ledger.Plan(args[0])
		if ledger.ParsePlan(args[0]) != p {
			return fmt.Errorf("unknown plan %q (want free, pro or max)", args[0])
		}
		if err := led.SetPlan(p); err != nil {
			return err
		}
		fmt.Printf("  Plan set to %s\n", p)
	}

	p := led.Plan()
	limits := ledger.LimitsFor(p)
	fmt.Printf("  Plan: %s\n", p)
	fmt.Printf("  Daily limit: %s tokens\n", cli.FormatNumber(limits.DailyTokens))
	fmt.Printf("  Messages per conversation: %d\n", limits.ConversationMessages)
	fmt.Printf("  Context window: %s tokens (all plans)\n", cli.FormatNumber(ledger.ContextWindowTokens))
	return nil
}
