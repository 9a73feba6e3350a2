package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// defaultDrainTimeout bounds how long Close waits for the recorder to flush after an interrupt.
const defaultDrainTimeout = 3 * time.Second

// maxStderr is how much recorder stderr is kept for error reports.
const maxStderr = 4 << 10

// CommandDevice captures audio by running an external recorder (ffmpeg, arecord, sox)
// that writes encoded audio to stdout.
type CommandDevice struct {
	Name         string
	Args         []string
	DrainTimeout time.Duration
	Logger       *slog.Logger
}

var _ Device = (*CommandDevice)(nil)

// NewCommandDevice builds a device from a whitespace-separated command line.
// Arguments containing spaces are not supported.
func NewCommandDevice(commandLine string, logger *slog.Logger) (*CommandDevice, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty recorder command", ErrNoDevice)
	}
	return &CommandDevice{Name: fields[0], Args: fields[1:], Logger: logger}, nil
}

// Open starts the recorder. The process runs until the returned stream is closed.
func (d *CommandDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(d.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrNoDevice, d.Name)
	}

	// The capture outlives ctx, so the process is not bound to it.
	cmd := exec.Command(path, d.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recorder stdout: %w", err)
	}
	stderr := &limitedBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("start recorder: %w", err)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("recorder started", "command", d.Name, "pid", cmd.Process.Pid)

	drain := d.DrainTimeout
	if drain == 0 {
		drain = defaultDrainTimeout
	}

	return &commandStream{
		cmd:          cmd,
		stdout:       stdout,
		stderr:       stderr,
		drained:      make(chan struct{}),
		drainTimeout: drain,
		logger:       logger,
	}, nil
}

// commandStream is a running recorder process.
type commandStream struct {
	cmd          *exec.Cmd
	stdout       io.ReadCloser
	stderr       *limitedBuffer
	drainTimeout time.Duration
	logger       *slog.Logger

	closing     atomic.Bool
	drained     chan struct{}
	drainedOnce sync.Once
	closeOnce   sync.Once
	waitOnce    sync.Once
	waitErr     error
}

func (s *commandStream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err == nil {
		return n, nil
	}

	s.drainedOnce.Do(func() { close(s.drained) })
	if s.closing.Load() {
		return n, io.EOF
	}

	// The recorder ended without being asked to.
	werr := s.wait()
	detail := strings.TrimSpace(s.stderr.String())
	if werr == nil {
		werr = errors.New("exit status 0")
	}
	if detail != "" {
		return n, fmt.Errorf("%w: %v: %s", ErrRecorderExited, werr, detail)
	}
	return n, fmt.Errorf("%w: %v", ErrRecorderExited, werr)
}

// Close interrupts the recorder so it can finalize its container, waits for
// stdout to drain, and kills it if it does not exit in time.
func (s *commandStream) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)

		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			_ = s.cmd.Process.Kill()
		}

		select {
		case <-s.drained:
		case <-time.After(s.drainTimeout):
			s.logger.Warn("recorder did not drain, killing", "pid", s.cmd.Process.Pid)
			_ = s.cmd.Process.Kill()
		}

		// An interrupted recorder exits non-zero; that is the expected outcome here.
		_ = s.wait()
		s.logger.Debug("recorder stopped", "pid", s.cmd.Process.Pid)
	})
	return nil
}

func (s *commandStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
