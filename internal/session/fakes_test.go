package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/raphaelgruber/medconsult-go/internal/client"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService is an in-memory stand-in for the consultation service.
// Text sends can be held with gate so tests control response order.
type fakeService struct {
	mu sync.Mutex

	creates  atomic.Int32
	texts    atomic.Int32
	audios   atomic.Int32
	nextID   int
	convID   string
	createErr error

	// createGate, when set, blocks CreateConversation until closed.
	createGate chan struct{}
	// gates holds per-text gates keyed by message text.
	gates map[string]chan struct{}

	textErr  error
	audioErr error

	lastAudio client.SendAudioInput
}

func newFakeService() *fakeService {
	return &fakeService{convID: "conv-1", gates: map[string]chan struct{}{}}
}

func (f *fakeService) gate(text string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[text] = ch
	return ch
}

func (f *fakeService) id(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return prefix + "-" + strconv.Itoa(f.nextID)
}

func (f *fakeService) CreateConversation(ctx context.Context, input client.CreateConversationInput) (*models.Conversation, error) {
	f.creates.Add(1)
	if f.createGate != nil {
		select {
		case <-f.createGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &models.Conversation{
		ID:              f.convID,
		DoctorLanguage:  input.DoctorLanguage,
		PatientLanguage: input.PatientLanguage,
	}, nil
}

func (f *fakeService) SendText(ctx context.Context, input client.SendTextInput) (*models.Message, error) {
	f.texts.Add(1)

	f.mu.Lock()
	gate := f.gates[input.Text]
	err := f.textErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	original := input.Text
	translated := "[es] " + input.Text
	return &models.Message{
		ID:             f.id("msg"),
		ConversationID: input.ConversationID,
		SenderRole:     input.SenderRole,
		OriginalText:   &original,
		TranslatedText: &translated,
	}, nil
}

func (f *fakeService) SendAudio(ctx context.Context, input client.SendAudioInput) (*models.Message, error) {
	f.audios.Add(1)

	f.mu.Lock()
	f.lastAudio = input
	err := f.audioErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	url := "/api/audio/file-1"
	placeholder := "[Audio Message]"
	return &models.Message{
		ID:             f.id("audio"),
		ConversationID: input.ConversationID,
		SenderRole:     input.SenderRole,
		OriginalText:   &placeholder,
		AudioURL:       &url,
	}, nil
}

func (f *fakeService) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeService) setTextErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textErr = err
}

func (f *fakeService) setAudioErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioErr = err
}

// fakeDevice hands out fake streams and records every stream it opened.
type fakeDevice struct {
	mu      sync.Mutex
	openErr error
	chunks  [][]byte
	streams []*fakeStream
	// failErr makes streams fail once their chunks are consumed.
	failErr error
}

func (d *fakeDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := newFakeStream(d.chunks, d.failErr)
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) opened() []*fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeStream(nil), d.streams...)
}

// heldStreams counts streams that were opened and not yet released.
func (d *fakeDevice) heldStreams() int {
	held := 0
	for _, s := range d.opened() {
		if !s.released() {
			held++
		}
	}
	return held
}

// fakeStream yields its chunks, then blocks like a live microphone until
// closed (or fails with failErr). It records whether it was released.
type fakeStream struct {
	chunks  chan []byte
	closed  chan struct{}
	once    sync.Once
	failErr error
	isDone  atomic.Bool
}

func newFakeStream(chunks [][]byte, failErr error) *fakeStream {
	s := &fakeStream{
		chunks:  make(chan []byte, len(chunks)),
		closed:  make(chan struct{}),
		failErr: failErr,
	}
	for _, c := range chunks {
		s.chunks <- bytes.Clone(c)
	}
	return s
}

func (s *fakeStream) Read(p []byte) (int, error) {
	select {
	case c := <-s.chunks:
		return copy(p, c), nil
	default:
	}
	if s.failErr != nil {
		return 0, s.failErr
	}
	<-s.closed
	return 0, errors.New("read on closed stream")
}

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		s.isDone.Store(true)
		close(s.closed)
	})
	return nil
}

func (s *fakeStream) released() bool {
	return s.isDone.Load()
}

// recordingStates collects OnChange snapshots.
type recordingStates struct {
	mu     sync.Mutex
	states []State
}

func (r *recordingStates) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingStates) last() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return State{}
	}
	return r.states[len(r.states)-1]
}

func (r *recordingStates) sawOutstanding() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s.Outstanding {
			return true
		}
	}
	return false
}
