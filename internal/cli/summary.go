package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <conversation-id>",
	Short: "Generate the medical summary of a consultation",
	Long: `Generate the medical summary of a consultation.

Transient service failures are retried (MEDCONSULT_SUMMARY_RETRIES, default 3).

Examples:
  medconsult summary 665f1c2e9b1d4a0012ab34cd`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	s, err := newSummaryService().Generate(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.Text)
	return nil
}
