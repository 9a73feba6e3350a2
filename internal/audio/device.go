// Package audio provides microphone sources for the consultation recorder.
//
// A device hands out one stream per capture. Reading it yields encoded
// audio in arrival order; closing it releases the microphone.
package audio

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// Sentinel errors for device acquisition and capture.
var (
	// ErrNoDevice indicates no capture device or recorder program is available.
	ErrNoDevice = errors.New("no audio capture device")

	// ErrPermissionDenied indicates the device exists but access was refused.
	ErrPermissionDenied = errors.New("audio device permission denied")

	// ErrRecorderExited indicates the recorder stopped producing audio on its own.
	ErrRecorderExited = errors.New("recorder exited unexpectedly")
)

// Device is a source of microphone audio.
type Device interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Format describes the container the device produces.
type Format struct {
	Filename  string
	MediaType string
}

// WebM is the format produced by the default recorder command.
var WebM = Format{Filename: "recording.webm", MediaType: "audio/webm"}

// knownFormats covers common recorder outputs whose system MIME mapping varies.
var knownFormats = map[string]string{
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

// FormatForPath derives the upload format from a file's extension, falling back to WebM.
func FormatForPath(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return WebM
	}
	mediaType, ok := knownFormats[ext]
	if !ok {
		mediaType, _, _ = strings.Cut(mime.TypeByExtension(ext), ";")
		mediaType = strings.TrimSpace(mediaType)
		if !strings.HasPrefix(mediaType, "audio/") {
			return WebM
		}
	}
	return Format{Filename: "recording" + ext, MediaType: mediaType}
}
