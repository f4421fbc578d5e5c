// Package storage persists rendered artifacts (.mid files) behind a small
// FileStore interface, so the service can write to local disk in development
// and to S3 in production without changing the melody service.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any existing file.
	// The caller must close the returned WriteCloser to commit the data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// MelodyPath returns the artifact path of a saved melody's MIDI file.
func MelodyPath(id string) string {
	return "melodies/" + id + ".mid"
}

// WriteFile writes data to path in a single call.
func WriteFile(ctx context.Context, fs FileStore, path string, data []byte) error {
	w, err := fs.Write(ctx, path)
	if err != nil {
		return fmt.Errorf("storage: open %s: %w", path, err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: commit %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the whole file at path.
func ReadFile(ctx context.Context, fs FileStore, path string) ([]byte, error) {
	r, err := fs.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// contentType returns the MIME type stored alongside an artifact.
func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".mid", ".midi":
		return "audio/midi"
	case ".wav":
		return "audio/wav"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// cleanPath rejects paths that would escape the store root.
func cleanPath(p string) (string, error) {
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(p, "/") {
		return "", fmt.Errorf("storage: invalid path %q", p)
	}
	return cleaned, nil
}
