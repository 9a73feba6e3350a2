// Package cli provides the command-line interface for medconsult.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/config"
	"github.com/raphaelgruber/medconsult-go/internal/metrics"
	"github.com/raphaelgruber/medconsult-go/internal/summary"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool
	apiURL  string

	// Global config, logger and service client
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "medconsult",
	Short: "Doctor-patient translation console",
	Long: `Medconsult lets a doctor and a patient who speak different languages hold a
consultation through a translation service.

Each typed or recorded message is sent as the active participant, translated
into the other participant's language, and shown in order. Ending the session
produces a medical summary of the conversation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if apiURL != "" {
			cfg.APIURL = apiURL
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		// Full-screen views own the terminal, so their logs go to the file only.
		console := !(cmd.Name() == "consult" && interactive())
		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel, console)
		slog.SetDefault(logger)

		collector = metrics.NewCollector()
		apiClient = client.New(cfg.APIURL, cfg.Timeout,
			client.WithLogger(logger),
			client.WithMetrics(collector))

		logger.Debug("configuration loaded",
			"api_url", cfg.APIURL,
			"timeout", cfg.Timeout,
			"doctor_language", cfg.DoctorLanguage,
			"patient_language", cfg.PatientLanguage)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if verbose && collector != nil {
			printStats(os.Stderr, collector.Snapshot())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newSummaryService wires summary generation to the configured client.
func newSummaryService() *summary.Service {
	return summary.NewService(apiClient, cfg.SummaryRetries, logger)
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and call statistics")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "translation service base URL (overrides MEDCONSULT_API_URL)")

	// Add subcommands
	rootCmd.AddCommand(consultCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(audioCmd)
}
