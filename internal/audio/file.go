package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileDevice replays a pre-recorded file as if it were the microphone.
type FileDevice struct {
	Path string
}

var _ Device = (*FileDevice)(nil)

// Open opens the file for one capture.
func (d *FileDevice) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(d.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, d.Path)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, d.Path)
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}
	return f, nil
}
