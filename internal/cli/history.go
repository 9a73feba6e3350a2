package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past consultations",
	Long: `List past consultations, newest first, with their last message.

Examples:
  medconsult history
  medconsult history -n 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max conversations (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	convs, err := apiClient.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(convs) == 0 {
		fmt.Fprintln(out, "No conversations found.")
		return nil
	}

	total := len(convs)
	if historyLimit > 0 && total > historyLimit {
		convs = convs[:historyLimit]
	}
	fmt.Fprintf(out, "Conversations (%d of %d):\n\n", len(convs), total)
	printConversations(out, convs)
	return nil
}
