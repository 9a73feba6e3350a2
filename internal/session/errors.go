package session

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/medconsult-go/internal/client"
)

// Sentinel errors for rejected session actions.
// Use errors.Is() to check for these errors in calling code.
var (
	ErrBlankText      = errors.New("message text is blank")
	ErrEmptyAudio     = errors.New("audio recording is empty")
	ErrNoConversation = errors.New("no conversation has been started")
	ErrCaptureActive  = errors.New("a recording is already in progress")
	ErrSessionEnded   = errors.New("session has ended")
	ErrNothingToRetry = errors.New("no failed recording to resend")
)

// ConversationCreationError reports that the conversation could not be created.
// Nothing is cached; the triggering action can be retried.
type ConversationCreationError struct {
	Err error
}

func (e *ConversationCreationError) Error() string {
	return fmt.Sprintf("create conversation: %v", e.Err)
}

func (e *ConversationCreationError) Unwrap() error {
	return e.Err
}

// SubmissionError reports a failed message submission. The log is unchanged
// and the same payload can be resubmitted.
type SubmissionError struct {
	Kind client.ErrorKind
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit message (%s): %v", e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// DeviceAccessError reports that the microphone could not be acquired or failed mid-capture.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("microphone unavailable: %v", e.Err)
}

func (e *DeviceAccessError) Unwrap() error {
	return e.Err
}

// submissionError classifies a service failure. Errors without a kind
// (cancelled contexts, request construction) count as network failures.
func submissionError(err error) error {
	kind, ok := client.KindOf(err)
	if !ok {
		kind = client.KindNetwork
	}
	return &SubmissionError{Kind: kind, Err: err}
}
