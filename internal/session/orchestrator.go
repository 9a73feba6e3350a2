// Package session implements the consultation session: lazy conversation
// creation, text and audio submission, the microphone capture lifecycle, and
// the ordered message log the display renders.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/raphaelgruber/medconsult-go/internal/audio"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// Service is the subset of the remote service a session talks to.
// *client.Client satisfies it.
type Service interface {
	ConversationCreator
	MessageSender
}

// Dependencies holds everything needed to build an Orchestrator.
type Dependencies struct {
	Service Service
	Device  audio.Device
	Format  audio.Format

	DoctorLanguage  string
	PatientLanguage string
	Role            models.Role

	Logger *slog.Logger

	// OnChange, when set, is called with a fresh snapshot after every state change.
	// It runs on the goroutine that made the change and must not block.
	OnChange func(State)
}

// State is a read-only snapshot of the session for display.
type State struct {
	Messages        []models.Message
	Role            models.Role
	Outstanding     bool
	ConversationID  string
	HasConversation bool
	Recording       bool
	PendingAudio    bool
	Ended           bool
}

// Orchestrator routes user actions to the session components. All methods are
// safe for concurrent use; messages are appended in the order responses arrive.
type Orchestrator struct {
	identity  *Identity
	submitter *Submitter
	recorder  *Recorder
	log       *Log
	logger    *slog.Logger
	onChange  func(State)

	mu       sync.Mutex
	role     models.Role
	inFlight int
	ended    bool
	pending  *Artifact // last recording whose upload failed
}

// New builds an Orchestrator and its components from deps.
func New(deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	role := deps.Role
	if role == "" {
		role = models.RoleDoctor
	}

	o := &Orchestrator{
		identity:  NewIdentity(deps.Service, deps.DoctorLanguage, deps.PatientLanguage, logger),
		submitter: NewSubmitter(deps.Service, logger),
		log:       &Log{},
		logger:    logger,
		onChange:  deps.OnChange,
		role:      role,
	}
	o.recorder = NewRecorder(deps.Device, deps.Format, logger, o.notify)
	return o
}

// Snapshot returns the current session state.
func (o *Orchestrator) Snapshot() State {
	id, ok := o.identity.ID()

	o.mu.Lock()
	defer o.mu.Unlock()
	return State{
		Messages:        o.log.View(),
		Role:            o.role,
		Outstanding:     o.inFlight > 0,
		ConversationID:  id,
		HasConversation: ok,
		Recording:       o.recorder.Active(),
		PendingAudio:    o.pending != nil,
		Ended:           o.ended,
	}
}

// Conversation returns the conversation record once it exists.
func (o *Orchestrator) Conversation() (models.Conversation, bool) {
	return o.identity.Conversation()
}

// Role returns the role future messages are sent as.
func (o *Orchestrator) Role() models.Role {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.role
}

// SetRole changes the role for future messages. Logged messages keep their role.
func (o *Orchestrator) SetRole(role models.Role) error {
	parsed, err := models.ParseRole(string(role))
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.role = parsed
	o.mu.Unlock()
	o.notify()
	return nil
}

// ToggleRole switches between doctor and patient and returns the new role.
func (o *Orchestrator) ToggleRole() models.Role {
	o.mu.Lock()
	o.role = o.role.Toggle()
	role := o.role
	o.mu.Unlock()
	o.notify()
	return role
}

// SendTextMessage submits text as the current role and appends the translated record.
// Blank text is rejected without any I/O.
func (o *Orchestrator) SendTextMessage(ctx context.Context, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrBlankText
	}
	role, err := o.activeRole()
	if err != nil {
		return models.Message{}, err
	}

	o.begin()
	defer o.finish()

	id, err := o.identity.Ensure(ctx)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := o.submitter.SendText(ctx, id, role, text)
	if err != nil {
		return models.Message{}, err
	}

	o.append(msg)
	return msg, nil
}

// StartRecording begins a capture. A second start while recording returns ErrCaptureActive.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	if _, err := o.activeRole(); err != nil {
		return err
	}
	if err := o.recorder.Start(ctx); err != nil {
		return err
	}
	o.notify()
	return nil
}

// StopRecording finishes the capture and uploads it as the current role.
// It returns (nil, nil) when nothing was being recorded.
func (o *Orchestrator) StopRecording(ctx context.Context) (*models.Message, error) {
	artifact, err := o.recorder.Stop(ctx)
	o.notify()
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, nil
	}
	if artifact.Empty() {
		return nil, ErrEmptyAudio
	}

	msg, err := o.uploadAudio(ctx, *artifact)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// RetryAudioUpload resends the last recording whose upload failed.
func (o *Orchestrator) RetryAudioUpload(ctx context.Context) (*models.Message, error) {
	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		return nil, ErrNothingToRetry
	}

	msg, err := o.uploadAudio(ctx, *pending)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (o *Orchestrator) uploadAudio(ctx context.Context, artifact Artifact) (models.Message, error) {
	role, err := o.activeRole()
	if err != nil {
		return models.Message{}, err
	}

	o.begin()
	defer o.finish()

	msg, err := o.sendAudio(ctx, role, artifact)
	if err != nil {
		o.mu.Lock()
		o.pending = &artifact
		o.mu.Unlock()
		return models.Message{}, err
	}

	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
	o.append(msg)
	return msg, nil
}

func (o *Orchestrator) sendAudio(ctx context.Context, role models.Role, artifact Artifact) (models.Message, error) {
	id, err := o.identity.Ensure(ctx)
	if err != nil {
		return models.Message{}, err
	}
	return o.submitter.SendAudio(ctx, id, role, artifact)
}

// EndSession closes the session and returns the conversation id for summary generation.
// It requires a conversation to exist; an active capture is discarded.
// Further actions fail with ErrSessionEnded.
func (o *Orchestrator) EndSession(ctx context.Context) (string, error) {
	id, ok := o.identity.ID()
	if !ok {
		return "", ErrNoConversation
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("end session: %w", err)
	}

	o.mu.Lock()
	already := o.ended
	o.ended = true
	o.mu.Unlock()

	if !already {
		o.recorder.Abort()
		o.logger.Info("session ended", "conversation_id", id, "messages", o.log.Len())
		o.notify()
	}
	return id, nil
}

// Close discards any active capture without ending the session on the service.
func (o *Orchestrator) Close() {
	o.recorder.Abort()
	o.notify()
}

// activeRole returns the current role, or ErrSessionEnded.
func (o *Orchestrator) activeRole() (models.Role, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ended {
		return "", ErrSessionEnded
	}
	return o.role, nil
}

func (o *Orchestrator) begin() {
	o.mu.Lock()
	o.inFlight++
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.inFlight--
	o.mu.Unlock()
	o.notify()
}

// append logs msg unless the session ended while its request was in flight.
func (o *Orchestrator) append(msg models.Message) {
	o.mu.Lock()
	if o.ended {
		o.mu.Unlock()
		o.logger.Info("response after session end not logged", "message_id", msg.ID)
		return
	}
	o.log.Append(msg)
	o.mu.Unlock()

	o.logger.Debug("message appended", "message_id", msg.ID, "role", msg.SenderRole, "audio", msg.IsAudio())
	o.notify()
}

func (o *Orchestrator) notify() {
	if o.onChange != nil {
		o.onChange(o.Snapshot())
	}
}
