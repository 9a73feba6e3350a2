package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/medconsult-go/internal/audio"
	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/config"
	"github.com/raphaelgruber/medconsult-go/internal/models"
	"github.com/raphaelgruber/medconsult-go/internal/session"
	"github.com/raphaelgruber/medconsult-go/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLineSession(t *testing.T, api *fakeAPI, device audio.Device, retries int) (*session.Orchestrator, *summary.Service) {
	t.Helper()
	c := newFakeClient(t, api)
	orch := session.New(session.Dependencies{
		Service:         c,
		Device:          device,
		Format:          audio.WebM,
		DoctorLanguage:  "English",
		PatientLanguage: "Spanish",
		Logger:          discardLogger(),
	})
	t.Cleanup(orch.Close)
	return orch, summary.NewService(c, retries, discardLogger(), summary.WithInitialInterval(time.Millisecond))
}

func TestConsultLinesScenario(t *testing.T) {
	api := &fakeAPI{}
	orch, summaries := newLineSession(t, api, &audio.FileDevice{Path: "missing.webm"}, 2)

	in := strings.NewReader("How are you feeling?\n\n/switch\nMe duele la cabeza\n/bogus\n/stop\n/end\n")
	var out bytes.Buffer
	require.NoError(t, runConsultLines(context.Background(), orch, summaries, in, &out))

	got := out.String()
	assert.Contains(t, got, "Consultation started as Doctor.")
	assert.Contains(t, got, "[Doctor] How are you feeling?\n  → (HOW ARE YOU FEELING?)")
	assert.Contains(t, got, "Now speaking as Patient.")
	assert.Contains(t, got, "[Patient] Me duele la cabeza")
	assert.Contains(t, got, "Unknown command /bogus")
	assert.Contains(t, got, "Not recording.")
	assert.Contains(t, got, "Session AB34CD ended")
	assert.Contains(t, got, "Summary:\n- Symptoms: headache")

	calls := api.calls()
	assert.Equal(t, 1, calls.creates)
	assert.Equal(t, []string{"doctor:How are you feeling?", "patient:Me duele la cabeza"}, calls.texts)
}

func TestConsultLinesEndWithoutMessages(t *testing.T) {
	api := &fakeAPI{}
	orch, summaries := newLineSession(t, api, &audio.FileDevice{Path: "missing.webm"}, 0)

	var out bytes.Buffer
	require.NoError(t, runConsultLines(context.Background(), orch, summaries, strings.NewReader("/end\n/role nurse\n/role patient\n"), &out))

	got := out.String()
	assert.Contains(t, got, "Error: no messages yet, nothing to summarize")
	assert.Contains(t, got, `Error: invalid role "nurse"`)
	assert.Contains(t, got, "Now speaking as Patient.")
	assert.Zero(t, api.calls().creates)
	assert.Zero(t, api.calls().summaries)
}

func TestConsultLinesRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "question.webm")
	require.NoError(t, os.WriteFile(path, []byte("webm-bytes"), 0o644))

	api := &fakeAPI{}
	orch, summaries := newLineSession(t, api, &audio.FileDevice{Path: path}, 0)

	var out bytes.Buffer
	in := strings.NewReader("/record\n/record\n/stop\n/quit\n")
	require.NoError(t, runConsultLines(context.Background(), orch, summaries, in, &out))

	got := out.String()
	assert.Contains(t, got, "Recording... type /stop to send.")
	assert.Contains(t, got, "Error: already recording")
	assert.Contains(t, got, "[Doctor] ♪ audio message (/api/audio/a1)")
	calls := api.calls()
	require.Len(t, calls.audio, 1)
	assert.Equal(t, "webm-bytes", string(calls.audio[0]))
}

func TestConsultLinesMissingMicrophone(t *testing.T) {
	api := &fakeAPI{}
	orch, summaries := newLineSession(t, api, &audio.FileDevice{Path: filepath.Join(t.TempDir(), "none.webm")}, 0)

	var out bytes.Buffer
	require.NoError(t, runConsultLines(context.Background(), orch, summaries, strings.NewReader("/record\n"), &out))
	assert.Contains(t, out.String(), "Error: microphone unavailable")
	assert.False(t, orch.Snapshot().Recording)
}

func TestConsultLinesSummaryRetry(t *testing.T) {
	t.Run("transient failure recovers", func(t *testing.T) {
		api := &fakeAPI{summaryFail: 1}
		orch, summaries := newLineSession(t, api, &audio.FileDevice{Path: "missing.webm"}, 2)

		var out bytes.Buffer
		require.NoError(t, runConsultLines(context.Background(), orch, summaries, strings.NewReader("hello\n/end\n"), &out))
		assert.Contains(t, out.String(), "- Symptoms: headache")
		assert.Equal(t, 2, api.calls().summaries)
	})

	t.Run("exhausted retries name the follow-up command", func(t *testing.T) {
		api := &fakeAPI{summaryFail: 10}
		orch, summaries := newLineSession(t, api, &audio.FileDevice{Path: "missing.webm"}, 1)

		var out bytes.Buffer
		err := runConsultLines(context.Background(), orch, summaries, strings.NewReader("hello\n/end\n"), &out)
		require.Error(t, err)
		assert.ErrorIs(t, err, client.ErrServer)
		assert.Contains(t, err.Error(), "medconsult summary 665f1c2e9b1d4a0012ab34cd")
		assert.Equal(t, 2, api.calls().summaries)
	})
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{session.ErrBlankText, "message is empty"},
		{session.ErrEmptyAudio, "nothing was recorded"},
		{session.ErrSessionEnded, "session has ended"},
		{&session.DeviceAccessError{Err: audio.ErrPermissionDenied}, "microphone unavailable: audio device permission denied"},
		{&session.ConversationCreationError{Err: errors.New("refused")}, "could not start the conversation: refused"},
		{&session.SubmissionError{Kind: client.KindServer, Err: errors.New("500")}, "message not sent (server error): 500"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeError(tt.err))
	}
}

func TestFormatMessage(t *testing.T) {
	original, translated := "Take two daily", "Tome dos al día"
	url := "/api/audio/a1"
	placeholder := "[Audio Message]"

	text := models.Message{SenderRole: models.RoleDoctor, OriginalText: &original, TranslatedText: &translated}
	assert.Equal(t, "[Doctor] Take two daily\n  → Tome dos al día", formatMessage(text))

	voice := models.Message{SenderRole: models.RolePatient, OriginalText: &placeholder, AudioURL: &url}
	assert.Equal(t, "[Patient] ♪ audio message (/api/audio/a1)", formatMessage(voice))
}

func TestConsultLanguagesFlagsOverrideConfig(t *testing.T) {
	prevCfg := cfg
	t.Cleanup(func() {
		cfg = prevCfg
		consultDoctorLanguage, consultPatientLanguage = "", ""
	})
	cfg = config.Config{DoctorLanguage: "English", PatientLanguage: "Spanish"}

	doctor, patient := consultLanguages()
	assert.Equal(t, "English", doctor)
	assert.Equal(t, "Spanish", patient)

	consultPatientLanguage = " Portuguese "
	doctor, patient = consultLanguages()
	assert.Equal(t, "English", doctor)
	assert.Equal(t, "Portuguese", patient)

	consultDoctorLanguage = "German"
	doctor, _ = consultLanguages()
	assert.Equal(t, "German", doctor)
}
