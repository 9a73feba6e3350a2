package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var transcriptJSON bool

var transcriptCmd = &cobra.Command{
	Use:   "transcript <conversation-id>",
	Short: "Show all messages of a consultation",
	Long: `Show every message of a consultation in order, with translations.

Examples:
  medconsult transcript 665f1c2e9b1d4a0012ab34cd
  medconsult transcript 665f1c2e9b1d4a0012ab34cd --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscript,
}

func init() {
	transcriptCmd.Flags().BoolVar(&transcriptJSON, "json", false, "print messages as JSON")
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	id := args[0]

	msgs, err := apiClient.ListMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	out := cmd.OutOrStdout()
	if transcriptJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	}

	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}
	fmt.Fprintf(out, "Consultation %s (%d messages):\n\n", id, len(msgs))
	for _, m := range msgs {
		fmt.Fprintln(out, formatMessage(m))
	}
	return nil
}
