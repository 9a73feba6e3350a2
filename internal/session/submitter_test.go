package session

import (
	"context"
	"errors"
	"testing"

	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoSender returns a fixed record for every submission.
type echoSender struct {
	msg   *models.Message
	err   error
	calls int
}

func (e *echoSender) SendText(ctx context.Context, input client.SendTextInput) (*models.Message, error) {
	e.calls++
	return e.msg, e.err
}

func (e *echoSender) SendAudio(ctx context.Context, input client.SendAudioInput) (*models.Message, error) {
	e.calls++
	return e.msg, e.err
}

func TestSubmitterRejectsBeforeIO(t *testing.T) {
	sender := &echoSender{}
	s := NewSubmitter(sender, discardLogger())
	ctx := context.Background()

	_, err := s.SendText(ctx, "conv-1", models.RoleDoctor, "   \n\t")
	assert.ErrorIs(t, err, ErrBlankText)

	_, err = s.SendText(ctx, "", models.RoleDoctor, "hello")
	assert.ErrorIs(t, err, ErrNoConversation)

	_, err = s.SendAudio(ctx, "conv-1", models.RoleDoctor, Artifact{})
	assert.ErrorIs(t, err, ErrEmptyAudio)

	assert.Zero(t, sender.calls)
}

func TestSubmitterClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want client.ErrorKind
	}{
		{"server", &client.APIError{Op: "send_text", Kind: client.KindServer, StatusCode: 500}, client.KindServer},
		{"decode", &client.APIError{Op: "send_text", Kind: client.KindDecode}, client.KindDecode},
		{"unclassified", context.Canceled, client.KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSubmitter(&echoSender{err: tt.err}, discardLogger())
			_, err := s.SendText(context.Background(), "conv-1", models.RolePatient, "hola")

			var subErr *SubmissionError
			require.ErrorAs(t, err, &subErr)
			assert.Equal(t, tt.want, subErr.Kind)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestSubmitterConversationMismatch(t *testing.T) {
	s := NewSubmitter(&echoSender{msg: &models.Message{ID: "m1", ConversationID: "other"}}, discardLogger())

	_, err := s.SendText(context.Background(), "conv-1", models.RoleDoctor, "hello")
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, client.KindDecode, subErr.Kind)
}

func TestSubmitterFillsMissingConversation(t *testing.T) {
	s := NewSubmitter(&echoSender{msg: &models.Message{ID: "m1"}}, discardLogger())

	msg, err := s.SendAudio(context.Background(), "conv-1", models.RoleDoctor, Artifact{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", msg.ConversationID)
}
