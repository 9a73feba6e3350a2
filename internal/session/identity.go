package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/models"
	"golang.org/x/sync/singleflight"
)

// ConversationCreator creates conversations on the remote service.
type ConversationCreator interface {
	CreateConversation(ctx context.Context, input client.CreateConversationInput) (*models.Conversation, error)
}

const flightKey = "conversation"

// Identity lazily obtains the session's conversation identifier.
// Concurrent first callers share one creation request; a success is cached
// for the rest of the session and a failure is not.
type Identity struct {
	creator   ConversationCreator
	languages client.CreateConversationInput
	logger    *slog.Logger

	group singleflight.Group

	mu   sync.RWMutex
	conv *models.Conversation
}

// NewIdentity creates an Identity that will request a conversation between the two languages.
func NewIdentity(creator ConversationCreator, doctorLanguage, patientLanguage string, logger *slog.Logger) *Identity {
	if logger == nil {
		logger = slog.Default()
	}
	return &Identity{
		creator: creator,
		languages: client.CreateConversationInput{
			DoctorLanguage:  doctorLanguage,
			PatientLanguage: patientLanguage,
		},
		logger: logger,
	}
}

// ID returns the resolved identifier without any I/O.
func (i *Identity) ID() (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.conv == nil {
		return "", false
	}
	return i.conv.ID, true
}

// Conversation returns the resolved conversation record without any I/O.
func (i *Identity) Conversation() (models.Conversation, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.conv == nil {
		return models.Conversation{}, false
	}
	return *i.conv, true
}

// Ensure returns the conversation identifier, creating the conversation on first use.
// The creation request keeps the starting caller's values but not its
// cancellation, so one caller giving up does not fail the others; each caller
// stops waiting when its own context ends.
func (i *Identity) Ensure(ctx context.Context) (string, error) {
	if id, ok := i.ID(); ok {
		return id, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := i.group.DoChan(flightKey, func() (any, error) {
		// A flight that finished between our cache check and DoChan has already cached the id.
		if id, ok := i.ID(); ok {
			return id, nil
		}

		conv, err := i.creator.CreateConversation(flightCtx, i.languages)
		if err != nil {
			i.logger.Warn("conversation creation failed", "error", err)
			return "", &ConversationCreationError{Err: err}
		}

		i.mu.Lock()
		i.conv = conv
		i.mu.Unlock()

		i.logger.Info("conversation created",
			"conversation_id", conv.ID,
			"doctor_language", i.languages.DoctorLanguage,
			"patient_language", i.languages.PatientLanguage)
		return conv.ID, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", &ConversationCreationError{Err: ctx.Err()}
	}
}
