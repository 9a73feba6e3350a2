package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// MessageSender submits messages to the remote service.
type MessageSender interface {
	SendText(ctx context.Context, input client.SendTextInput) (*models.Message, error)
	SendAudio(ctx context.Context, input client.SendAudioInput) (*models.Message, error)
}

// Submitter sends text and audio payloads bound to a conversation.
// It never touches the log; the orchestrator appends successful results.
type Submitter struct {
	sender MessageSender
	logger *slog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(sender MessageSender, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{sender: sender, logger: logger}
}

// SendText submits a text message and returns the translated record.
func (s *Submitter) SendText(ctx context.Context, conversationID string, role models.Role, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrBlankText
	}
	if conversationID == "" {
		return models.Message{}, ErrNoConversation
	}

	msg, err := s.sender.SendText(ctx, client.SendTextInput{
		ConversationID: conversationID,
		SenderRole:     role,
		Text:           text,
	})
	if err != nil {
		s.logger.Warn("text submission failed", "conversation_id", conversationID, "role", role, "error", err)
		return models.Message{}, submissionError(err)
	}
	return s.check(conversationID, msg)
}

// SendAudio uploads a finished recording and returns the stored record.
func (s *Submitter) SendAudio(ctx context.Context, conversationID string, role models.Role, artifact Artifact) (models.Message, error) {
	if artifact.Empty() {
		return models.Message{}, ErrEmptyAudio
	}
	if conversationID == "" {
		return models.Message{}, ErrNoConversation
	}

	msg, err := s.sender.SendAudio(ctx, client.SendAudioInput{
		ConversationID: conversationID,
		SenderRole:     role,
		Filename:       artifact.Filename,
		ContentType:    artifact.MediaType,
		Data:           artifact.Data,
	})
	if err != nil {
		s.logger.Warn("audio submission failed",
			"conversation_id", conversationID, "role", role, "bytes", len(artifact.Data), "error", err)
		return models.Message{}, submissionError(err)
	}
	return s.check(conversationID, msg)
}

// check enforces that the echoed record belongs to the conversation it was sent to.
// A record without a conversation id is attributed to the one it was sent to.
func (s *Submitter) check(conversationID string, msg *models.Message) (models.Message, error) {
	if msg == nil {
		return models.Message{}, &SubmissionError{Kind: client.KindDecode, Err: fmt.Errorf("empty response")}
	}
	out := *msg
	if out.ConversationID == "" {
		out.ConversationID = conversationID
	}
	if out.ConversationID != conversationID {
		return models.Message{}, &SubmissionError{
			Kind: client.KindDecode,
			Err:  fmt.Errorf("response belongs to conversation %s, not %s", out.ConversationID, conversationID),
		}
	}
	return out, nil
}
