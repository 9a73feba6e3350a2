package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var audioOutput string

var audioCmd = &cobra.Command{
	Use:   "audio <audio-url>",
	Short: "Download the recording of an audio message",
	Long: `Download the recording referenced by an audio message.

The URL is the audio_url shown in a transcript; relative URLs are resolved
against the service base URL. Use -o - to write to stdout.

Examples:
  medconsult audio /api/audio/665f1c2e9b1d4a0012ab34ce -o question.webm
  medconsult audio /api/audio/665f1c2e9b1d4a0012ab34ce -o - | mpv -`,
	Args: cobra.ExactArgs(1),
	RunE: runAudio,
}

func init() {
	audioCmd.Flags().StringVarP(&audioOutput, "output", "o", "", "output file, or - for stdout")
	_ = audioCmd.MarkFlagRequired("output")
}

func runAudio(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	if audioOutput == "-" {
		_, _, err := apiClient.DownloadAudio(ctx, args[0], cmd.OutOrStdout())
		return err
	}

	f, err := os.Create(audioOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", audioOutput, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if err != nil {
			_ = os.Remove(audioOutput)
		}
	}()

	contentType, n, err := apiClient.DownloadAudio(ctx, args[0], f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes (%s) to %s\n", n, contentType, audioOutput)
	return nil
}
