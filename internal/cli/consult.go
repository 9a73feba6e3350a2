package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/raphaelgruber/medconsult-go/internal/audio"
	"github.com/raphaelgruber/medconsult-go/internal/models"
	"github.com/raphaelgruber/medconsult-go/internal/session"
	"github.com/raphaelgruber/medconsult-go/internal/summary"
	"github.com/spf13/cobra"
)

var (
	consultRole            string
	consultDoctorLanguage  string
	consultPatientLanguage string
	consultAudioFile       string
	consultPlain           bool
)

var consultCmd = &cobra.Command{
	Use:   "consult",
	Short: "Start an interactive consultation",
	Long: `Start a consultation between a doctor and a patient.

The conversation is created on the service with the first message. Messages
are sent as the active role and translated into the other participant's
language.

Keys (interactive):
  enter    send the typed message
  tab      switch between doctor and patient
  ctrl+r   start / stop recording
  ctrl+u   resend the last failed recording
  ctrl+e   end the session and show the summary
  ctrl+c   quit without a summary

When stdin or stdout is not a terminal, lines are read from stdin instead.
Commands in line mode: /switch, /role doctor|patient, /record, /stop,
/retry, /end, /quit. Any other line is sent as a message.

Examples:
  medconsult consult
  medconsult consult --role patient
  medconsult consult --doctor-language English --patient-language Portuguese
  medconsult consult --audio-file question.webm
  printf 'Hello\n/end\n' | medconsult consult`,
	Args: cobra.NoArgs,
	RunE: runConsult,
}

func init() {
	consultCmd.Flags().StringVarP(&consultRole, "role", "r", "", "initial role: doctor or patient (default from config)")
	consultCmd.Flags().StringVar(&consultDoctorLanguage, "doctor-language", "", "doctor's language for this session (default from config)")
	consultCmd.Flags().StringVar(&consultPatientLanguage, "patient-language", "", "patient's language for this session (default from config)")
	consultCmd.Flags().StringVar(&consultAudioFile, "audio-file", "", "replay this file instead of recording from the microphone")
	consultCmd.Flags().BoolVar(&consultPlain, "plain", false, "use line mode even in a terminal")
}

func runConsult(cmd *cobra.Command, args []string) error {
	roleName := consultRole
	if roleName == "" {
		roleName = cfg.DefaultRole
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return err
	}

	device, format, err := captureDevice()
	if err != nil {
		return err
	}

	doctorLang, patientLang := consultLanguages()
	if strings.EqualFold(doctorLang, patientLang) {
		return fmt.Errorf("doctor and patient languages must differ (both %s)", doctorLang)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	deps := session.Dependencies{
		Service:         apiClient,
		Device:          device,
		Format:          format,
		DoctorLanguage:  doctorLang,
		PatientLanguage: patientLang,
		Role:            role,
		Logger:          logger,
	}

	if interactive() && !consultPlain {
		return runConsultTUI(ctx, deps, newSummaryService())
	}
	orch := session.New(deps)
	defer orch.Close()
	return runConsultLines(ctx, orch, newSummaryService(), cmd.InOrStdin(), cmd.OutOrStdout())
}

// consultLanguages returns the session languages: flags first, then config.
func consultLanguages() (doctor, patient string) {
	doctor, patient = cfg.DoctorLanguage, cfg.PatientLanguage
	if l := strings.TrimSpace(consultDoctorLanguage); l != "" {
		doctor = l
	}
	if l := strings.TrimSpace(consultPatientLanguage); l != "" {
		patient = l
	}
	return doctor, patient
}

// captureDevice selects the replay file or the configured recorder program.
func captureDevice() (audio.Device, audio.Format, error) {
	if consultAudioFile != "" {
		return &audio.FileDevice{Path: consultAudioFile}, audio.FormatForPath(consultAudioFile), nil
	}
	dev, err := audio.NewCommandDevice(cfg.RecorderCommand, logger)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("recorder: %w", err)
	}
	return dev, audio.WebM, nil
}

// runConsultLines drives a session from line input. It returns when input ends,
// on /quit, or after /end has printed the summary.
func runConsultLines(ctx context.Context, orch *session.Orchestrator, summaries *summary.Service, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Consultation started as %s. Type /end to finish.\n", orch.Role().Label())

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			msg, err := orch.SendTextMessage(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", describeError(err))
				continue
			}
			fmt.Fprintln(out, formatMessage(msg))
			continue
		}

		command, arg, _ := strings.Cut(line, " ")
		switch command {
		case "/switch":
			fmt.Fprintf(out, "Now speaking as %s.\n", orch.ToggleRole().Label())
		case "/role":
			role, err := models.ParseRole(arg)
			if err == nil {
				err = orch.SetRole(role)
			}
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Now speaking as %s.\n", role.Label())
		case "/record":
			if err := orch.StartRecording(ctx); err != nil {
				fmt.Fprintf(out, "Error: %s\n", describeError(err))
				continue
			}
			fmt.Fprintln(out, "Recording... type /stop to send.")
		case "/stop":
			msg, err := orch.StopRecording(ctx)
			switch {
			case err != nil:
				fmt.Fprintf(out, "Error: %s\n", describeError(err))
				if orch.Snapshot().PendingAudio {
					fmt.Fprintln(out, "Type /retry to resend the recording.")
				}
			case msg == nil:
				fmt.Fprintln(out, "Not recording.")
			default:
				fmt.Fprintln(out, formatMessage(*msg))
			}
		case "/retry":
			msg, err := orch.RetryAudioUpload(ctx)
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", describeError(err))
				continue
			}
			fmt.Fprintln(out, formatMessage(*msg))
		case "/end":
			id, err := orch.EndSession(ctx)
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", describeError(err))
				continue
			}
			return printSessionSummary(ctx, summaries, id, out)
		case "/quit":
			return nil
		default:
			fmt.Fprintf(out, "Unknown command %s\n", command)
		}
	}
	return scanner.Err()
}

func printSessionSummary(ctx context.Context, summaries *summary.Service, id string, out io.Writer) error {
	fmt.Fprintf(out, "Session %s ended. Generating summary...\n", models.ShortID(id, shortIDLen))
	s, err := summaries.Generate(ctx, id)
	if err != nil {
		return fmt.Errorf("summary for %s (retry with 'medconsult summary %s'): %w", id, id, err)
	}
	fmt.Fprintf(out, "\nSummary:\n%s\n", s.Text)
	return nil
}

// describeError turns session errors into a short user-facing line.
func describeError(err error) string {
	var (
		devErr      *session.DeviceAccessError
		creationErr *session.ConversationCreationError
		subErr      *session.SubmissionError
	)
	switch {
	case errors.Is(err, session.ErrBlankText):
		return "message is empty"
	case errors.Is(err, session.ErrEmptyAudio):
		return "nothing was recorded"
	case errors.Is(err, session.ErrNoConversation):
		return "no messages yet, nothing to summarize"
	case errors.Is(err, session.ErrCaptureActive):
		return "already recording"
	case errors.Is(err, session.ErrSessionEnded):
		return "session has ended"
	case errors.Is(err, session.ErrNothingToRetry):
		return "no failed recording to resend"
	case errors.As(err, &devErr):
		return "microphone unavailable: " + devErr.Err.Error()
	case errors.As(err, &creationErr):
		return "could not start the conversation: " + creationErr.Err.Error()
	case errors.As(err, &subErr):
		return fmt.Sprintf("message not sent (%s error): %v", subErr.Kind, subErr.Err)
	default:
		return err.Error()
	}
}
