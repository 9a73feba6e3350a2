package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/medconsult-go/internal/audio"
)

// readChunkSize is the size of each read from the capture stream.
const readChunkSize = 4096

// CaptureState is the recorder's lifecycle state.
type CaptureState int

const (
	StateIdle CaptureState = iota
	StateCapturing
	StateFinalizing
)

func (s CaptureState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Artifact is a finished recording ready for upload.
type Artifact struct {
	Data      []byte
	Filename  string
	MediaType string
	Duration  time.Duration
}

// Empty reports whether the recording captured no audio.
func (a Artifact) Empty() bool {
	return len(a.Data) == 0
}

// recording is the state of one capture between Start and Stop.
type recording struct {
	stream   io.ReadCloser
	started  time.Time
	stopping atomic.Bool
	done     chan struct{}

	mu     sync.Mutex
	chunks [][]byte
}

func (r *recording) add(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
}

func (r *recording) concat() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Join(r.chunks, nil)
}

// Recorder owns the microphone for one capture at a time.
//
// States move Idle -> Capturing -> Finalizing -> Idle. A device failure while
// capturing releases the stream and returns to Idle. The stream is never held
// outside Capturing and Finalizing.
type Recorder struct {
	device    audio.Device
	format    audio.Format
	logger    *slog.Logger
	onFailure func()

	// op serializes Start, Stop and Abort; mu guards the fields below and is
	// never held across device I/O.
	op      sync.Mutex
	mu      sync.Mutex
	state   CaptureState
	rec     *recording
	failure error
}

// NewRecorder creates a Recorder that tags artifacts with format.
// onFailure, when set, is called after a device failure has returned the recorder to Idle.
func NewRecorder(device audio.Device, format audio.Format, logger *slog.Logger, onFailure func()) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if format.MediaType == "" {
		format = audio.WebM
	}
	return &Recorder{device: device, format: format, logger: logger, onFailure: onFailure}
}

// State returns the current lifecycle state.
func (r *Recorder) State() CaptureState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active reports whether a capture holds the microphone.
func (r *Recorder) Active() bool {
	return r.State() != StateIdle
}

// Start acquires the microphone and begins accumulating audio.
// It fails with ErrCaptureActive while a capture is running and with
// *DeviceAccessError when the device cannot be opened.
func (r *Recorder) Start(ctx context.Context) error {
	r.op.Lock()
	defer r.op.Unlock()

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrCaptureActive
	}
	r.failure = nil
	r.mu.Unlock()

	stream, err := r.device.Open(ctx)
	if err != nil {
		r.logger.Warn("microphone unavailable", "error", err)
		return &DeviceAccessError{Err: err}
	}

	rec := &recording{
		stream:  stream,
		started: time.Now(),
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	r.rec = rec
	r.state = StateCapturing
	r.mu.Unlock()

	go r.capture(rec)

	r.logger.Debug("capture started")
	return nil
}

// capture reads the stream until it ends, the recorder stops it, or the device fails.
func (r *Recorder) capture(rec *recording) {
	defer close(rec.done)

	buf := make([]byte, readChunkSize)
	for {
		n, err := rec.stream.Read(buf)
		if n > 0 {
			rec.add(bytes.Clone(buf[:n]))
		}
		if err == nil {
			continue
		}
		if rec.stopping.Load() || errors.Is(err, io.EOF) {
			// Stopped, or the source ran dry; the capture stays open until Stop.
			return
		}
		r.fail(rec, err)
		return
	}
}

// fail handles a device error while capturing: release the stream and return to Idle.
func (r *Recorder) fail(rec *recording, err error) {
	r.mu.Lock()
	if r.rec != rec || rec.stopping.Load() {
		r.mu.Unlock()
		return
	}
	rec.stopping.Store(true)
	r.rec = nil
	r.state = StateIdle
	r.failure = &DeviceAccessError{Err: err}
	r.mu.Unlock()

	if cerr := rec.stream.Close(); cerr != nil {
		r.logger.Warn("release microphone after failure", "error", cerr)
	}
	r.logger.Error("capture failed", "error", err)

	if r.onFailure != nil {
		r.onFailure()
	}
}

// Stop ends the capture, releases the microphone, and returns the finished artifact.
// ctx bounds the wait for the last reads after the stream is closed.
// Stop while idle is a no-op returning (nil, nil), except that a device failure since
// the last Start is returned once.
func (r *Recorder) Stop(ctx context.Context) (*Artifact, error) {
	r.op.Lock()
	defer r.op.Unlock()

	rec, err := r.beginFinalize()
	if rec == nil {
		return nil, err
	}

	if cerr := rec.stream.Close(); cerr != nil {
		r.logger.Warn("release microphone", "error", cerr)
	}
	select {
	case <-rec.done:
	case <-ctx.Done():
		// A stream that ignores Close; keep what was read so far.
		r.logger.Warn("capture reader did not finish", "error", ctx.Err())
	}

	artifact := &Artifact{
		Data:      rec.concat(),
		Filename:  r.format.Filename,
		MediaType: r.format.MediaType,
		Duration:  time.Since(rec.started),
	}

	r.mu.Lock()
	r.rec = nil
	r.state = StateIdle
	r.mu.Unlock()

	r.logger.Info("capture finished",
		"bytes", len(artifact.Data),
		"duration_ms", artifact.Duration.Milliseconds(),
		"media_type", artifact.MediaType)
	return artifact, nil
}

// Abort ends any capture and discards its audio.
func (r *Recorder) Abort() {
	r.op.Lock()
	defer r.op.Unlock()

	rec, _ := r.beginFinalize()
	if rec == nil {
		return
	}
	_ = rec.stream.Close()
	<-rec.done

	r.mu.Lock()
	r.rec = nil
	r.state = StateIdle
	r.mu.Unlock()

	r.logger.Info("capture discarded")
}

// beginFinalize moves Capturing -> Finalizing. When idle it returns the pending failure, if any.
func (r *Recorder) beginFinalize() (*recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCapturing {
		err := r.failure
		r.failure = nil
		return nil, err
	}
	rec := r.rec
	rec.stopping.Store(true)
	r.state = StateFinalizing
	return rec, nil
}
