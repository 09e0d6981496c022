package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset usage counters",
}

var resetConversationCmd = &cobra.Command{
	Use:   "conversation",
	Short: "Zero the current conversation's token and message counters",
	RunE:  runResetConversation,
}

var resetDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Zero today's token counter",
	RunE:  runResetDaily,
}

func init() {
	resetCmd.AddCommand(resetConversationCmd)
	resetCmd.AddCommand(resetDailyCmd)
	rootCmd.AddCommand(resetCmd)
}

func runResetConversation(_ *cobra.Command, _ []string) error {
	st, led, err := openLedger()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := led.ResetConversation(led.LastURL()); err != nil {
		return err
	}
	fmt.Println("  Conversation counters reset")
	return nil
}

func runResetDaily(_ *cobra.Command, _ []string) error {
	st, led, err := openLedger()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := led.ResetDaily(time.Now().Format("2006-01-02")); err != nil {
		return err
	}
	fmt.Println("  Daily counter reset")
	return nil
}
